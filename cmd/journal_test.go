package cmd

import (
	"strings"
	"testing"

	"github.com/fakeyudi/codewalk/internal/tracker"
)

func resetJournalFlags() {
	journalSummary = false
	journalJSON = false
	journalAll = false
}

func TestJournalEmpty(t *testing.T) {
	setupStorage(t)
	resetJournalFlags()

	out, err := executeCommand(rootCmd, "journal")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	if !strings.Contains(out, "no journals recorded") {
		t.Errorf("output = %q", out)
	}
}

func TestJournalPlainRendering(t *testing.T) {
	tmp := setupStorage(t)
	resetJournalFlags()

	store, err := tracker.NewJournalStore(tmp)
	if err != nil {
		t.Fatalf("NewJournalStore: %v", err)
	}
	c := testChange("abcdef1234", "explained")
	c.Explanation = "Adds the request handler."
	if err := store.SaveFinalized(testJournal("done", true, c)); err != nil {
		t.Fatalf("SaveFinalized: %v", err)
	}

	out, err := executeCommand(rootCmd, "journal")
	if err != nil {
		t.Fatalf("journal: %v", err)
	}
	for _, want := range []string{"## Changes (1)", "internal/server/handler.go", "10-12", "agent/explained", "abcdef12", "Adds the request handler."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestJournalSummaryFlag(t *testing.T) {
	tmp := setupStorage(t)
	resetJournalFlags()

	store, err := tracker.NewJournalStore(tmp)
	if err != nil {
		t.Fatalf("NewJournalStore: %v", err)
	}
	j := testJournal("done", true,
		testChange("c1", "pending"), testChange("c2", "explained"), testChange("c3", "explained"))
	if err := store.SaveFinalized(j); err != nil {
		t.Fatalf("SaveFinalized: %v", err)
	}

	out, err := executeCommand(rootCmd, "journal", "--summary")
	if err != nil {
		t.Fatalf("journal --summary: %v", err)
	}
	if !strings.Contains(out, "3 changes") {
		t.Errorf("summary output = %q", out)
	}
}

func TestJournalJSONFlag(t *testing.T) {
	tmp := setupStorage(t)
	resetJournalFlags()

	store, err := tracker.NewJournalStore(tmp)
	if err != nil {
		t.Fatalf("NewJournalStore: %v", err)
	}
	if err := store.SaveFinalized(testJournal("done", true, testChange("c1", "pending"))); err != nil {
		t.Fatalf("SaveFinalized: %v", err)
	}

	out, err := executeCommand(rootCmd, "journal", "--json")
	if err != nil {
		t.Fatalf("journal --json: %v", err)
	}
	for _, want := range []string{`"id": "done"`, `"change_type": "added"`, `"status": "pending"`} {
		if !strings.Contains(out, want) {
			t.Errorf("json output missing %q:\n%s", want, out)
		}
	}
}

func TestJournalAllFlag(t *testing.T) {
	tmp := setupStorage(t)
	resetJournalFlags()

	store, err := tracker.NewJournalStore(tmp)
	if err != nil {
		t.Fatalf("NewJournalStore: %v", err)
	}
	for _, id := range []string{"first", "second"} {
		if err := store.SaveFinalized(testJournal(id, true)); err != nil {
			t.Fatalf("SaveFinalized: %v", err)
		}
	}

	out, err := executeCommand(rootCmd, "journal", "--all")
	if err != nil {
		t.Fatalf("journal --all: %v", err)
	}
	if !strings.Contains(out, "first") || !strings.Contains(out, "second") {
		t.Errorf("output = %q", out)
	}
}

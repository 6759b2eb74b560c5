package tracker_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/fakeyudi/codewalk/internal/change"
	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tracker"
)

// fakeGenerator counts calls and can be told to fail.
type fakeGenerator struct {
	mu    sync.Mutex
	calls int
	fail  bool
	text  string
}

func (g *fakeGenerator) Explain(_ context.Context, req explain.Request) (explain.Response, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls++
	if g.fail {
		return explain.Response{}, errors.New("generation failed")
	}
	text := g.text
	if text == "" {
		text = "explanation of " + req.FilePath
	}
	return explain.Response{Explanation: text}, nil
}

func (g *fakeGenerator) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

func (g *fakeGenerator) setFail(fail bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.fail = fail
}

const testWindow = 20 * time.Millisecond

// settle waits long enough for any armed debounce timer to fire.
func settle() { time.Sleep(5 * testWindow) }

func newTestTracker(gen explain.Generator) *tracker.Tracker {
	return tracker.New(gen, tracker.NewPolicy("", nil),
		tracker.WithDebounceWindow(testWindow))
}

// Code blob long enough to pass the noise filters.
const editText = "func add(a, b int) int {\n\treturn a + b\n}\n"

func TestDebounceCoalescesSameKey(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("main.go", 10, "func first() {\n\treturn\n}\n")
	tr.OnEditEvent("main.go", 10, "func second() {\n\treturn\n}\n")
	settle()

	changes := tr.Changes()
	if len(changes) != 1 {
		t.Fatalf("expected 1 change after coalescing, got %d", len(changes))
	}
	if changes[0].Code != "func second() {\n\treturn\n}\n" {
		t.Errorf("expected the second edit's text to win, got %q", changes[0].Code)
	}
}

func TestDebounceKeysAreIndependent(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("main.go", 10, editText)
	tr.OnEditEvent("main.go", 50, editText)
	tr.OnEditEvent("other.go", 10, editText)
	settle()

	if got := len(tr.Changes()); got != 3 {
		t.Fatalf("expected 3 changes for 3 distinct keys, got %d", got)
	}
}

func TestChangeFieldsAtDetection(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("pkg/server.go", 7, editText)
	settle()

	changes := tr.Changes()
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	c := changes[0]
	if c.ID == "" {
		t.Error("expected a fresh id")
	}
	if c.FilePath != "pkg/server.go" {
		t.Errorf("FilePath = %q", c.FilePath)
	}
	if c.Type != change.TypeAdded {
		t.Errorf("Type = %q, want added", c.Type)
	}
	if c.Range.StartLine != 7 || c.Range.EndLine != 9 {
		t.Errorf("Range = %v, want 7-9", c.Range)
	}
	if c.Status != change.StatusPending {
		t.Errorf("Status = %q, want pending", c.Status)
	}
	if c.Source != change.SourceAgent {
		t.Errorf("Source = %q, want agent for a balanced function", c.Source)
	}
}

func TestEditEventFilters(t *testing.T) {
	tests := []struct {
		name string
		path string
		text string
	}{
		{"empty text", "main.go", ""},
		{"whitespace only", "main.go", "  \n\t\n  "},
		{"short single line", "main.go", "x := 1"},
		{"lockfile ignored", "package-lock.json", editText},
		{"dependency dir ignored", "node_modules/lib/index.js", editText},
		{"minified ignored", "app.min.js", editText},
		{"source map ignored", "app.js.map", editText},
		{"storage dir ignored", ".codewalk/tours/t.json", editText},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &fakeGenerator{}
			tr := newTestTracker(gen)
			tr.StartTracking()
			tr.OnEditEvent(tt.path, 1, tt.text)
			settle()
			if got := len(tr.Changes()); got != 0 {
				t.Errorf("expected event to be filtered, got %d changes", got)
			}
		})
	}
}

func TestEditEventIgnoredWhenNotTracking(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)

	tr.OnEditEvent("main.go", 1, editText)
	settle()

	if got := len(tr.Changes()); got != 0 {
		t.Fatalf("expected no changes before StartTracking, got %d", got)
	}
}

func TestStartTrackingIdempotent(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)

	tr.StartTracking()
	first := tr.Journal()
	tr.StartTracking()
	if tr.Journal() != first {
		t.Error("repeated StartTracking must not replace the active journal")
	}
}

func TestStopTrackingFinalizesJournal(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)

	if j := tr.StopTracking(); j != nil {
		t.Fatalf("StopTracking before start should return nil, got %v", j)
	}

	tr.StartTracking()
	tr.OnEditEvent("main.go", 1, editText)
	settle()

	finalized := tr.StopTracking()
	if finalized == nil {
		t.Fatal("expected a finalized journal")
	}
	if finalized.SessionEnd == nil {
		t.Error("expected SessionEnd to be stamped")
	}
	if len(finalized.Changes) != 1 {
		t.Errorf("finalized journal has %d changes, want 1", len(finalized.Changes))
	}

	tr.StartTracking()
	fresh := tr.Journal()
	if fresh.ID == finalized.ID {
		t.Error("new session must get a new journal id")
	}
	if len(fresh.Changes) != 0 {
		t.Errorf("new journal should start empty, has %d changes", len(fresh.Changes))
	}
	if finalized.SessionEnd == nil || len(finalized.Changes) != 1 {
		t.Error("finalized journal must not be retroactively altered")
	}
}

func TestStopTrackingDiscardsPendingDebounce(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("main.go", 1, editText)
	j := tr.StopTracking() // cancels the armed timer
	settle()

	if len(j.Changes) != 0 {
		t.Errorf("edits inside the debounce window must be discarded, got %d", len(j.Changes))
	}
	if got := len(tr.Changes()); got != 0 {
		t.Errorf("global map should not gain discarded changes, got %d", got)
	}
}

func TestExplainChangeTransitions(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("main.go", 1, editText)
	settle()
	c := tr.Changes()[0]

	tr.ExplainChange(context.Background(), c.ID)
	if c.Status != change.StatusExplained {
		t.Fatalf("Status = %q, want explained", c.Status)
	}
	if c.Explanation == "" {
		t.Error("expected an explanation to be set")
	}

	// Explained is terminal: no further generator calls.
	tr.ExplainChange(context.Background(), c.ID)
	if gen.callCount() != 1 {
		t.Errorf("generator called %d times, want 1", gen.callCount())
	}
}

func TestExplainChangeUnknownIDIsNoop(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.ExplainChange(context.Background(), "no-such-id")
	if gen.callCount() != 0 {
		t.Errorf("generator called %d times for unknown id, want 0", gen.callCount())
	}
}

func TestExplainChangeErrorThenRetry(t *testing.T) {
	gen := &fakeGenerator{fail: true}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("main.go", 1, editText)
	settle()
	c := tr.Changes()[0]

	tr.ExplainChange(context.Background(), c.ID)
	if c.Status != change.StatusError {
		t.Fatalf("Status = %q after failure, want error", c.Status)
	}
	if c.Explanation != "" {
		t.Error("failed explanation must not set text")
	}

	// Error state is eligible for retry.
	gen.setFail(false)
	tr.ExplainChange(context.Background(), c.ID)
	if c.Status != change.StatusExplained {
		t.Errorf("Status = %q after retry, want explained", c.Status)
	}
	if gen.callCount() != 2 {
		t.Errorf("generator called %d times, want 2", gen.callCount())
	}
}

func TestOnSaveEventExplainsPendingForFile(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("a.go", 1, editText)
	tr.OnEditEvent("a.go", 50, editText)
	tr.OnEditEvent("b.go", 1, editText)
	settle()

	tr.OnSaveEvent(context.Background(), "a.go")

	var aExplained, bPending int
	for _, c := range tr.Changes() {
		switch {
		case c.FilePath == "a.go" && c.Status == change.StatusExplained:
			aExplained++
		case c.FilePath == "b.go" && c.Status == change.StatusPending:
			bPending++
		}
	}
	if aExplained != 2 {
		t.Errorf("expected both a.go changes explained, got %d", aExplained)
	}
	if bPending != 1 {
		t.Errorf("expected b.go change untouched, got %d pending", bPending)
	}
	if gen.callCount() != 2 {
		t.Errorf("generator called %d times, want 2", gen.callCount())
	}
}

func TestChangesSortedNewestFirst(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	for i := 0; i < 4; i++ {
		tr.OnEditEvent(fmt.Sprintf("f%d.go", i), 1, editText)
		settle()
	}

	changes := tr.Changes()
	if len(changes) != 4 {
		t.Fatalf("expected 4 changes, got %d", len(changes))
	}
	for i := 1; i < len(changes); i++ {
		if changes[i].Timestamp.After(changes[i-1].Timestamp) {
			t.Fatalf("changes not sorted newest first at index %d", i)
		}
	}
}

func TestClearEmptiesJournalOnly(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)
	tr.StartTracking()

	tr.OnEditEvent("main.go", 1, editText)
	settle()

	j := tr.Journal()
	start := j.SessionStart

	tr.Clear()

	if len(j.Changes) != 0 {
		t.Errorf("journal should be empty after Clear, has %d", len(j.Changes))
	}
	if !j.SessionStart.Equal(start) {
		t.Error("Clear must not alter SessionStart")
	}
	if j.SessionEnd != nil {
		t.Error("Clear must not stamp SessionEnd")
	}
	if got := len(tr.Changes()); got != 0 {
		t.Errorf("cleared changes should leave the snapshot, got %d", got)
	}
}

func TestResumeMakesStoredChangesAddressable(t *testing.T) {
	gen := &fakeGenerator{}
	tr := newTestTracker(gen)

	j := &change.Journal{
		ID:           "stored",
		SessionStart: time.Now().Add(-time.Hour),
		Changes: []*change.Change{{
			ID:       "c1",
			FilePath: "main.go",
			Range:    change.Range{StartLine: 1, EndLine: 3},
			Code:     editText,
			Status:   change.StatusPending,
			Source:   change.SourceAgent,
		}},
	}
	tr.Resume(j)

	tr.ExplainChange(context.Background(), "c1")
	if j.Changes[0].Status != change.StatusExplained {
		t.Errorf("Status = %q, want explained", j.Changes[0].Status)
	}
}

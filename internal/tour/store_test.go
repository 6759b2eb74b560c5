package tour_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tour"
)

func generateStep(t *rapid.T, index int) *tour.Step {
	start := rapid.IntRange(1, 400).Draw(t, "start")
	step := &tour.Step{
		Index:    index,
		FilePath: rapid.StringMatching(`[a-z]{1,8}/[a-z]{1,8}\.go`).Draw(t, "path"),
		Range:    tour.Range{StartLine: start, EndLine: start + rapid.IntRange(0, 30).Draw(t, "span")},
		Content: tour.StepContent{
			Summary:     rapid.StringN(1, 72, -1).Draw(t, "summary"),
			Explanation: rapid.StringN(0, 200, -1).Draw(t, "explanation"),
		},
		CodeSnippet: rapid.StringN(0, 200, -1).Draw(t, "snippet"),
	}
	if rapid.Bool().Draw(t, "has_levels") {
		step.Content.Explanations = map[explain.DetailLevel]string{
			rapid.SampledFrom(explain.Levels).Draw(t, "level"): rapid.StringN(1, 100, -1).Draw(t, "level_text"),
		}
	}
	return step
}

func generateTour(t *rapid.T) *tour.Tour {
	sec := rapid.Int64Range(0, 1_700_000_000).Draw(t, "created_sec")
	tr := &tour.Tour{
		ID:        rapid.StringMatching(`[a-f0-9-]{8,36}`).Draw(t, "id"),
		Title:     rapid.StringN(1, 80, -1).Draw(t, "title"),
		CreatedAt: time.Unix(sec, 0).UTC(),
	}
	n := rapid.IntRange(1, 6).Draw(t, "num_steps")
	for i := 0; i < n; i++ {
		tr.Steps = append(tr.Steps, generateStep(t, i))
	}
	return tr
}

func TestTourPersistenceRoundTrip(t *testing.T) {
	store, err := tour.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	rapid.Check(t, func(rt *rapid.T) {
		original := generateTour(rt)

		if err := store.Save(original); err != nil {
			rt.Fatalf("Save: %v", err)
		}
		loaded, err := store.Load(original.ID)
		if err != nil {
			rt.Fatalf("Load: %v", err)
		}

		if loaded.ID != original.ID || loaded.Title != original.Title {
			rt.Errorf("identity mismatch: got %q/%q", loaded.ID, loaded.Title)
		}
		if !loaded.CreatedAt.Equal(original.CreatedAt) {
			rt.Errorf("CreatedAt mismatch: got %v, want %v", loaded.CreatedAt, original.CreatedAt)
		}
		if len(loaded.Steps) != len(original.Steps) {
			rt.Fatalf("step count mismatch: got %d, want %d", len(loaded.Steps), len(original.Steps))
		}
		for i, want := range original.Steps {
			got := loaded.Steps[i]
			if got.Index != want.Index || got.FilePath != want.FilePath ||
				got.Range != want.Range || got.CodeSnippet != want.CodeSnippet {
				rt.Errorf("Steps[%d] mismatch: got %+v, want %+v", i, got, want)
			}
			if got.Content.Summary != want.Content.Summary ||
				got.Content.Explanation != want.Content.Explanation {
				rt.Errorf("Steps[%d].Content mismatch", i)
			}
			if len(got.Content.Explanations) != len(want.Content.Explanations) {
				rt.Errorf("Steps[%d] cached levels mismatch", i)
			}
			for l, text := range want.Content.Explanations {
				if got.Content.Explanations[l] != text {
					rt.Errorf("Steps[%d].Explanations[%s] = %q, want %q", i, l, got.Content.Explanations[l], text)
				}
			}
		}
	})
}

func TestLoadMissingTour(t *testing.T) {
	store, err := tour.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if _, err := store.Load("nope"); !errors.Is(err, tour.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestLoadByPrefix(t *testing.T) {
	store, err := tour.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	a := makeTour(1)
	a.ID = "abc12345"
	b := makeTour(1)
	b.ID = "abd67890"
	for _, tr := range []*tour.Tour{a, b} {
		if err := store.Save(tr); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	got, err := store.Load("abc")
	if err != nil {
		t.Fatalf("Load by prefix: %v", err)
	}
	if got.ID != "abc12345" {
		t.Errorf("Load(abc) = %q", got.ID)
	}

	if _, err := store.Load("ab"); err == nil {
		t.Error("expected ambiguous prefix to fail")
	}
	if _, err := store.Load("zz"); !errors.Is(err, tour.ErrNotFound) {
		t.Errorf("expected ErrNotFound for unmatched prefix, got %v", err)
	}
}

func TestListNewestFirst(t *testing.T) {
	store, err := tour.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	base := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		tr := makeTour(1)
		tr.ID = fmt.Sprintf("tour-%d", i)
		tr.CreatedAt = base.Add(time.Duration(i) * time.Hour)
		if err := store.Save(tr); err != nil {
			t.Fatalf("Save: %v", err)
		}
	}

	tours, err := store.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(tours) != 3 {
		t.Fatalf("got %d tours, want 3", len(tours))
	}
	for i := 1; i < len(tours); i++ {
		if tours[i].CreatedAt.After(tours[i-1].CreatedAt) {
			t.Fatalf("tours not sorted newest first at index %d", i)
		}
	}
}

func TestDeleteTour(t *testing.T) {
	store, err := tour.NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}

	tr := makeTour(1)
	if err := store.Save(tr); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := store.Delete(tr.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := store.Load(tr.ID); !errors.Is(err, tour.ErrNotFound) {
		t.Errorf("tour should be gone, got %v", err)
	}
	if err := store.Delete(tr.ID); err != nil {
		t.Errorf("deleting a missing tour should not fail: %v", err)
	}
}

// Package tracker owns the stream of observed edits. It debounces raw edit
// events into discrete Change records, classifies their probable origin,
// drives asynchronous explanation generation, and maintains the active
// Journal for the session.
package tracker

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/codewalk/internal/change"
	"github.com/fakeyudi/codewalk/internal/explain"
)

// DebounceWindow is the fixed delay after the last edit at a location before
// a Change is finalized.
const DebounceWindow = 2000 * time.Millisecond

// minSingleLineLen filters keystroke-level noise: single-line insertions
// shorter than this are dropped.
const minSingleLineLen = 10

// Tracker observes edit and save events and maintains the change journal.
// All mutating operations serialize on one mutex; debounce timers and
// generator calls are the only asynchronous boundaries.
type Tracker struct {
	mu     sync.Mutex
	gen    explain.Generator
	policy *Policy
	store  *JournalStore // optional; nil disables persistence
	notify func(*change.Change)
	window time.Duration

	tracking bool
	journal  *change.Journal
	changes  map[string]*change.Change // every change ever seen, across sessions
	order    []string                  // change ids in detection order
	timers   map[string]*time.Timer    // debounce key → pending timer
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithDebounceWindow overrides the debounce window. Used by tests; the
// production window is fixed.
func WithDebounceWindow(d time.Duration) Option {
	return func(t *Tracker) { t.window = d }
}

// WithStore enables best-effort journal persistence.
func WithStore(s *JournalStore) Option {
	return func(t *Tracker) { t.store = s }
}

// WithNotify registers a callback invoked after a change is detected or its
// status moves. The callback runs outside the tracker lock.
func WithNotify(fn func(*change.Change)) Option {
	return func(t *Tracker) { t.notify = fn }
}

// New builds a Tracker. The generator and policy are required collaborators.
func New(gen explain.Generator, policy *Policy, opts ...Option) *Tracker {
	t := &Tracker{
		gen:     gen,
		policy:  policy,
		window:  DebounceWindow,
		changes: make(map[string]*change.Change),
		timers:  make(map[string]*time.Timer),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// StartTracking opens a new journal and begins accepting edit and save
// events. Calling it while already tracking is a no-op.
func (t *Tracker) StartTracking() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.tracking {
		return
	}
	t.journal = &change.Journal{
		ID:           uuid.New().String(),
		SessionStart: time.Now(),
		Changes:      []*change.Change{},
	}
	t.tracking = true
	t.persistActiveLocked()
}

// StopTracking finalizes and returns the current journal, or nil when not
// tracking. All pending debounce timers are cancelled outright: edits still
// inside the debounce window are discarded so incomplete edits are never
// captured.
func (t *Tracker) StopTracking() *change.Journal {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking {
		return nil
	}
	for key, timer := range t.timers {
		timer.Stop()
		delete(t.timers, key)
	}
	now := time.Now()
	j := t.journal
	j.SessionEnd = &now
	t.tracking = false
	t.journal = nil
	if t.store != nil {
		_ = t.store.Finalize(j) // best-effort; the journal is still returned
	}
	return j
}

// IsTracking reports whether a session is active.
func (t *Tracker) IsTracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.tracking
}

// Journal returns the active journal, or nil when not tracking.
func (t *Tracker) Journal() *change.Journal {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.journal
}

// Resume loads a previously persisted journal into the tracker without
// starting a session, so ExplainChange and Clear can operate on stored
// changes from a fresh process.
func (t *Tracker) Resume(j *change.Journal) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.journal = j
	for _, c := range j.Changes {
		if _, ok := t.changes[c.ID]; !ok {
			t.order = append(t.order, c.ID)
		}
		t.changes[c.ID] = c
	}
}

// OnEditEvent feeds one raw edit into the debounce table. Events are ignored
// while not tracking, for ignored paths, for empty or whitespace-only
// insertions, and for single-line insertions under ten characters. Edits at
// the same (file, start line) key reset each other's timer; the Change that
// eventually fires carries only the text of the last edit.
func (t *Tracker) OnEditEvent(filePath string, startLine int, insertedText string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.tracking {
		return
	}
	if t.policy != nil && t.policy.Ignored(filePath) {
		return
	}
	trimmed := strings.TrimSpace(insertedText)
	if trimmed == "" {
		return
	}
	if !strings.Contains(insertedText, "\n") && len(trimmed) < minSingleLineLen {
		return
	}

	key := filePath + ":" + strconv.Itoa(startLine)
	if timer, ok := t.timers[key]; ok {
		timer.Stop()
	}
	t.timers[key] = time.AfterFunc(t.window, func() {
		t.recordChange(key, filePath, startLine, insertedText)
	})
}

// recordChange runs when a debounce timer fires and synthesizes the Change.
func (t *Tracker) recordChange(key, filePath string, startLine int, insertedText string) {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return
	}
	delete(t.timers, key)

	lineCount := countLines(insertedText)
	c := &change.Change{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		FilePath:  filePath,
		Type:      change.TypeAdded,
		Range: change.Range{
			StartLine: startLine,
			EndLine:   startLine + lineCount - 1,
		},
		Code:   insertedText,
		Status: change.StatusPending,
		Source: change.Classify(insertedText),
	}
	t.changes[c.ID] = c
	t.order = append(t.order, c.ID)
	t.journal.Changes = append(t.journal.Changes, c)
	t.persistActiveLocked()
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(c)
	}
}

// OnSaveEvent explains every pending change for the saved file, one at a
// time in detection order.
func (t *Tracker) OnSaveEvent(ctx context.Context, filePath string) {
	t.mu.Lock()
	if !t.tracking {
		t.mu.Unlock()
		return
	}
	var pending []string
	for _, id := range t.order {
		c := t.changes[id]
		if c.FilePath == filePath && c.Status == change.StatusPending {
			pending = append(pending, id)
		}
	}
	t.mu.Unlock()

	for _, id := range pending {
		t.ExplainChange(ctx, id)
	}
}

// ExplainChange generates an explanation for one change. It is a no-op for
// unknown ids and for changes already explaining or explained; a change in
// error state is eligible again, which is how retry works. Generator
// failures are recorded as error status and never propagate: this method
// always returns normally.
func (t *Tracker) ExplainChange(ctx context.Context, changeID string) {
	t.mu.Lock()
	c, ok := t.changes[changeID]
	if !ok || c.Status == change.StatusExplaining || c.Status == change.StatusExplained {
		t.mu.Unlock()
		return
	}
	c.Status = change.StatusExplaining
	req := explain.Request{
		Code:          c.Code,
		FilePath:      c.FilePath,
		StartLine:     c.Range.StartLine,
		EndLine:       c.Range.EndLine,
		Detail:        explain.LevelGeneral,
		AgentAuthored: c.Source == change.SourceAgent,
	}
	notify := t.notify
	t.mu.Unlock()
	if notify != nil {
		notify(c)
	}

	resp, err := t.gen.Explain(ctx, req)

	t.mu.Lock()
	if err != nil {
		c.Status = change.StatusError
	} else {
		c.Explanation = resp.Explanation
		c.Status = change.StatusExplained
	}
	t.persistActiveLocked()
	t.mu.Unlock()
	if notify != nil {
		notify(c)
	}
}

// Changes returns a snapshot of all changes across sessions, most recent
// first.
func (t *Tracker) Changes() []*change.Change {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*change.Change, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.changes[id])
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp.After(out[j].Timestamp)
	})
	return out
}

// Clear empties the active journal's change list in place, leaving session
// boundaries untouched. Only the journal's own entries are removed from the
// global map; changes from previously finalized journals stay addressable.
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.journal == nil {
		return
	}
	removed := make(map[string]bool, len(t.journal.Changes))
	for _, c := range t.journal.Changes {
		removed[c.ID] = true
		delete(t.changes, c.ID)
	}
	kept := t.order[:0]
	for _, id := range t.order {
		if !removed[id] {
			kept = append(kept, id)
		}
	}
	t.order = kept
	t.journal.Changes = t.journal.Changes[:0]
	t.persistActiveLocked()
}

// persistActiveLocked saves the active journal; failures are swallowed so a
// broken disk never breaks tracking. Callers must hold the lock.
func (t *Tracker) persistActiveLocked() {
	if t.store == nil || t.journal == nil {
		return
	}
	_ = t.store.SaveActive(t.journal)
}

// countLines counts the lines of an insertion; a trailing newline does not
// open a new line.
func countLines(s string) int {
	return strings.Count(strings.TrimSuffix(s, "\n"), "\n") + 1
}

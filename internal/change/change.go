// Package change defines the data model for tracked edits: a Change is one
// detected, debounced edit to a file, and a Journal is one tracking session's
// ordered collection of Changes.
package change

import (
	"fmt"
	"time"
)

// Type classifies what kind of edit a Change records.
type Type string

const (
	TypeAdded    Type = "added"
	TypeModified Type = "modified"
	TypeDeleted  Type = "deleted"
)

// Status is the explanation state of a Change. Transitions move forward only:
// pending → explaining → explained or error. A change in error state may go
// back to explaining (retry); explained is terminal.
type Status string

const (
	StatusPending    Status = "pending"
	StatusExplaining Status = "explaining"
	StatusExplained  Status = "explained"
	StatusError      Status = "error"
)

// Source is the probable origin of a Change, set once at creation.
type Source string

const (
	SourceManual Source = "manual"
	SourceAgent  Source = "agent"
	SourceAuto   Source = "auto"
)

// Range is a 1-based inclusive line span in the current document.
type Range struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

// Valid reports whether the range is well-formed.
func (r Range) Valid() bool {
	return r.StartLine >= 1 && r.EndLine >= r.StartLine
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.StartLine, r.EndLine)
}

// Change is a single detected edit.
type Change struct {
	ID          string    `json:"id"`
	Timestamp   time.Time `json:"timestamp"`
	FilePath    string    `json:"file_path"`
	Type        Type      `json:"change_type"`
	Range       Range     `json:"range"`
	Code        string    `json:"code"`
	Status      Status    `json:"status"`
	Source      Source    `json:"source"`
	Explanation string    `json:"explanation,omitempty"`
}

// Journal is one tracking session. Changes are append-only in detection
// order; they are never reordered or deduplicated.
type Journal struct {
	ID           string     `json:"id"`
	SessionStart time.Time  `json:"session_start"`
	SessionEnd   *time.Time `json:"session_end,omitempty"`
	Changes      []*Change  `json:"changes"`
	Summary      string     `json:"summary,omitempty"`
}

// Active reports whether the session has not been finalized yet.
func (j *Journal) Active() bool {
	return j.SessionEnd == nil
}

// Summarize produces an on-demand summary of the journal's contents. It does
// not store the result; callers assign to Summary if they want it persisted.
func (j *Journal) Summarize() string {
	byStatus := map[Status]int{}
	bySource := map[Source]int{}
	files := map[string]bool{}
	for _, c := range j.Changes {
		byStatus[c.Status]++
		bySource[c.Source]++
		files[c.FilePath] = true
	}
	return fmt.Sprintf(
		"%d changes across %d files (%d explained, %d pending, %d failed; %d agent, %d manual)",
		len(j.Changes), len(files),
		byStatus[StatusExplained], byStatus[StatusPending], byStatus[StatusError],
		bySource[SourceAgent], bySource[SourceManual])
}

// Package tour defines generated code walkthroughs and the playback
// controller that drives them.
package tour

import (
	"fmt"
	"time"

	"github.com/fakeyudi/codewalk/internal/explain"
)

// Range is a 1-based inclusive line span in the source file, fixed when the
// step is created.
type Range struct {
	StartLine int `json:"start_line"`
	EndLine   int `json:"end_line"`
}

func (r Range) String() string {
	return fmt.Sprintf("%d-%d", r.StartLine, r.EndLine)
}

// SourceContext records where a tour was generated from.
type SourceContext struct {
	Repository string `json:"repository,omitempty"`
	Branch     string `json:"branch,omitempty"`
}

// StepContent holds a step's narration. Explanation is the default
// general-level text, set at creation and never overwritten. Explanations
// optionally carries pre-baked text per detail level; it is only ever added
// to, never evicted.
type StepContent struct {
	Summary      string                         `json:"summary"`
	Explanation  string                         `json:"explanation"`
	Explanations map[explain.DetailLevel]string `json:"explanations,omitempty"`
}

// Step is one scene of a tour, bound to a fixed file and line range.
// CodeSnippet keeps the verbatim excerpt so richer detail can be generated
// later without re-reading the file.
type Step struct {
	Index       int         `json:"step_index"`
	FilePath    string      `json:"file_path"`
	Range       Range       `json:"range"`
	Content     StepContent `json:"content"`
	CodeSnippet string      `json:"code_snippet,omitempty"`
}

// Tour is a generated walkthrough. Steps are fixed once created; they are
// mutated only to add cached explanations.
type Tour struct {
	ID        string         `json:"id"`
	Title     string         `json:"title"`
	CreatedAt time.Time      `json:"created_at"`
	Source    *SourceContext `json:"source_context,omitempty"`
	Steps     []*Step        `json:"steps"`
}

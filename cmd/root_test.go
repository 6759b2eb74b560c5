package cmd

import (
	"bytes"
	"testing"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/change"
)

// executeCommand runs a cobra command with the given args and captures combined output.
func executeCommand(root *cobra.Command, args ...string) (output string, err error) {
	buf := new(bytes.Buffer)
	root.SetOut(buf)
	root.SetErr(buf)
	root.SetArgs(args)
	_, err = root.ExecuteC()
	return buf.String(), err
}

// setupStorage points all commands at temp state: storage dir, home (so no
// real config is read), and an empty API key (so the placeholder generator
// is used).
func setupStorage(t *testing.T) string {
	t.Helper()
	tmp := t.TempDir()
	t.Setenv("CODEWALK_DIR", tmp)
	t.Setenv("HOME", t.TempDir())
	t.Setenv("OPENAI_API_KEY", "")
	return tmp
}

func testJournal(id string, finalized bool, changes ...*change.Change) *change.Journal {
	j := &change.Journal{
		ID:           id,
		SessionStart: time.Now().Add(-time.Hour),
		Changes:      changes,
	}
	if finalized {
		end := time.Now()
		j.SessionEnd = &end
	}
	if j.Changes == nil {
		j.Changes = []*change.Change{}
	}
	return j
}

func testChange(id, status string) *change.Change {
	return &change.Change{
		ID:        id,
		Timestamp: time.Now(),
		FilePath:  "internal/server/handler.go",
		Type:      change.TypeAdded,
		Range:     change.Range{StartLine: 10, EndLine: 12},
		Code:      "func handle() {\n\treturn\n}",
		Status:    change.Status(status),
		Source:    change.SourceAgent,
	}
}

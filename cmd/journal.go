package cmd

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/change"
	"github.com/fakeyudi/codewalk/internal/tracker"
)

var (
	journalSummary bool
	journalJSON    bool
	journalAll     bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Review the change journal",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracker.NewJournalStore(storageDir())
		if err != nil {
			return err
		}

		if journalAll {
			journals, err := store.List()
			if err != nil {
				return err
			}
			if len(journals) == 0 {
				cmd.Println("no journals recorded")
				return nil
			}
			for _, j := range journals {
				end := "active"
				if j.SessionEnd != nil {
					end = j.SessionEnd.Format("2006-01-02 15:04:05")
				}
				cmd.Printf("  %s  %s → %s  (%d changes)\n",
					j.ID, j.SessionStart.Format("2006-01-02 15:04:05"), end, len(j.Changes))
			}
			return nil
		}

		j, err := store.LoadLatest()
		if err != nil {
			if errors.Is(err, tracker.ErrNoJournal) {
				cmd.Println("no journals recorded")
				return nil
			}
			return err
		}

		if journalJSON {
			data, err := json.MarshalIndent(j, "", "  ")
			if err != nil {
				return err
			}
			cmd.Println(string(data))
			return nil
		}

		if journalSummary {
			cmd.Println(j.Summarize())
			return nil
		}

		printJournal(cmd, j)
		return nil
	},
}

// printJournal writes a plain-text rendering to the command's output,
// changes newest first.
func printJournal(cmd *cobra.Command, j *change.Journal) {
	cmd.Println("## Session")
	cmd.Printf("  ID:       %s\n", j.ID)
	cmd.Printf("  Started:  %s\n", j.SessionStart.Format("2006-01-02 15:04:05 MST"))
	if j.SessionEnd != nil {
		cmd.Printf("  Stopped:  %s\n", j.SessionEnd.Format("2006-01-02 15:04:05 MST"))
		cmd.Printf("  Duration: %s\n", j.SessionEnd.Sub(j.SessionStart).Round(time.Second))
	} else {
		cmd.Println("  Stopped:  (active)")
	}
	cmd.Println()

	cmd.Printf("## Changes (%d)\n", len(j.Changes))
	if len(j.Changes) == 0 {
		cmd.Println("  (none)")
		return
	}

	changes := make([]*change.Change, len(j.Changes))
	copy(changes, j.Changes)
	sort.SliceStable(changes, func(a, b int) bool {
		return changes[a].Timestamp.After(changes[b].Timestamp)
	})

	for _, c := range changes {
		cmd.Printf("  [%s] %s %s  %s/%s  %s\n",
			c.Timestamp.Format("15:04:05"), c.FilePath, c.Range, c.Source, c.Status, shortID(c.ID))
		if c.Explanation != "" {
			cmd.Println(indent(c.Explanation, "      "))
		}
		cmd.Println()
	}
}

// shortID abbreviates a uuid for display.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func init() {
	journalCmd.Flags().BoolVar(&journalSummary, "summary", false, "print per-status and per-source counts only")
	journalCmd.Flags().BoolVar(&journalJSON, "json", false, "print the raw journal JSON")
	journalCmd.Flags().BoolVar(&journalAll, "all", false, "list all recorded journals")
	rootCmd.AddCommand(journalCmd)
}

func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/change"
	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tracker"
)

var explainAll bool

var explainCmd = &cobra.Command{
	Use:   "explain [change-id]",
	Short: "Generate or retry the explanation for recorded changes",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 && !explainAll {
			return fmt.Errorf("provide a change id or --all")
		}

		store, err := tracker.NewJournalStore(storageDir())
		if err != nil {
			return err
		}
		j, err := store.LoadLatest()
		if err != nil {
			if errors.Is(err, tracker.ErrNoJournal) {
				return fmt.Errorf("no journals recorded")
			}
			return err
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		gen := explain.NewFromEnv(cfg.Model)
		tr := tracker.New(gen, tracker.NewPolicy(cwd, cfg.IgnorePatterns))
		tr.Resume(j)

		var targets []*change.Change
		if explainAll {
			for _, c := range j.Changes {
				if c.Status == change.StatusPending || c.Status == change.StatusError {
					targets = append(targets, c)
				}
			}
			if len(targets) == 0 {
				cmd.Println("nothing to explain")
				return nil
			}
		} else {
			c := findChange(j, args[0])
			if c == nil {
				return fmt.Errorf("no change with id %q in journal %s", args[0], j.ID)
			}
			targets = append(targets, c)
		}

		for _, c := range targets {
			tr.ExplainChange(cmd.Context(), c.ID)
			if c.Status == change.StatusError {
				cmd.Printf("  %s: explanation failed\n", shortID(c.ID))
			} else {
				cmd.Printf("  %s: %s\n", shortID(c.ID), c.Status)
			}
		}

		// Write the updated journal back where it came from.
		if j.Active() {
			return store.SaveActive(j)
		}
		return store.SaveFinalized(j)
	},
}

// findChange resolves a change by full id or unambiguous prefix.
func findChange(j *change.Journal, id string) *change.Change {
	var match *change.Change
	for _, c := range j.Changes {
		if c.ID == id {
			return c
		}
		if strings.HasPrefix(c.ID, id) {
			if match != nil {
				return nil // ambiguous
			}
			match = c
		}
	}
	return match
}

func init() {
	explainCmd.Flags().BoolVar(&explainAll, "all", false, "explain every pending or failed change")
	rootCmd.AddCommand(explainCmd)
}

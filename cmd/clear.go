package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tracker"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all changes from the latest journal",
	RunE: func(cmd *cobra.Command, args []string) error {
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
		tr := tracker.New(explain.NewFromEnv(cfg.Model), tracker.NewPolicy(cwd, cfg.IgnorePatterns))
		tr.Resume(j)

		n := len(j.Changes)
		tr.Clear()

		if j.Active() {
			err = store.SaveActive(j)
		} else {
			err = store.SaveFinalized(j)
		}
		if err != nil {
			return err
		}

		cmd.Printf("Cleared %d changes from journal %s.\n", n, shortID(j.ID))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/tracker"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current tracking session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracker.NewJournalStore(storageDir())
		if err != nil {
			return err
		}

		j, err := store.LoadActive()
		if err != nil {
			if errors.Is(err, tracker.ErrNoJournal) {
				cmd.Println("no active session")
				return nil
			}
			return err
		}

		cmd.Printf("Started: %s\n", j.SessionStart.Format(time.RFC3339))
		cmd.Printf("Duration: %s\n", time.Since(j.SessionStart).Round(time.Second).String())
		cmd.Printf("Changes: %d\n", len(j.Changes))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/tracker"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Finalize a tracking session left behind by an interrupted start",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracker.NewJournalStore(storageDir())
		if err != nil {
			return err
		}

		j, err := store.LoadActive()
		if err != nil {
			if errors.Is(err, tracker.ErrNoJournal) {
				return fmt.Errorf("no tracking session in progress")
			}
			return err
		}

		if j.SessionEnd == nil {
			now := time.Now()
			j.SessionEnd = &now
		}
		if err := store.Finalize(j); err != nil {
			return err
		}

		fmt.Printf("Session %s finalized.\n", j.ID)
		fmt.Println(j.Summarize())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/change"
	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tracker"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Begin a tracking session and watch the working directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tracker.NewJournalStore(storageDir())
		if err != nil {
			return err
		}

		j, err := store.LoadActive()
		if err != nil && !errors.Is(err, tracker.ErrNoJournal) {
			return err
		}
		if j != nil {
			return fmt.Errorf("tracking session already in progress (started at %s); run 'codewalk stop' first",
				j.SessionStart.Format(time.RFC3339))
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		policy := tracker.NewPolicy(cwd, cfg.IgnorePatterns)
		gen := explain.NewFromEnv(cfg.Model)
		tr := tracker.New(gen, policy,
			tracker.WithStore(store),
			tracker.WithNotify(printChange),
		)

		tr.StartTracking()
		fmt.Println("Tracking started. Press Ctrl-C to stop.")

		ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		w := tracker.NewWatcher(cwd, tr, policy)
		if err := w.Run(ctx); err != nil && ctx.Err() == nil {
			tr.StopTracking()
			return err
		}

		journal := tr.StopTracking()
		fmt.Println()
		fmt.Println("Tracking stopped.")
		if journal != nil {
			fmt.Println(journal.Summarize())
		}
		return nil
	},
}

// printChange announces tracker activity as it happens.
func printChange(c *change.Change) {
	switch c.Status {
	case change.StatusPending:
		fmt.Printf("  [%s] %s %s (%s)\n",
			c.Timestamp.Format("15:04:05"), c.FilePath, c.Range, c.Source)
	case change.StatusExplained:
		fmt.Printf("  [%s] explained %s %s\n",
			time.Now().Format("15:04:05"), c.FilePath, c.Range)
	case change.StatusError:
		fmt.Printf("  [%s] explanation failed for %s %s\n",
			time.Now().Format("15:04:05"), c.FilePath, c.Range)
	}
}

func init() {
	rootCmd.AddCommand(startCmd)
}

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tour"
	"github.com/fakeyudi/codewalk/internal/tui"
)

var playPlain bool

var playCmd = &cobra.Command{
	Use:   "play <tour-id>",
	Short: "Play a stored tour",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tour.NewStore(storageDir())
		if err != nil {
			return err
		}
		t, err := store.Load(args[0])
		if err != nil {
			if errors.Is(err, tour.ErrNotFound) {
				return fmt.Errorf("tour not found: %s", args[0])
			}
			return err
		}

		if playPlain {
			printTour(cmd, t)
			return nil
		}
		if !term.IsTerminal(os.Stdout.Fd()) {
			return fmt.Errorf("stdout is not a terminal; use --plain")
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}
		player := tour.NewPlayer(explain.NewFromEnv(cfg.Model),
			tour.WithTourStore(store),
			tour.WithFileReader(tour.ReadRange(cwd)),
		)
		if level := explain.DetailLevel(cfg.DetailLevel); level.Valid() {
			player.SetDetailLevel(level)
		}
		player.SetSpeed(cfg.PlaybackSpeed)

		return tui.Run(player, t, cfg.StepSeconds)
	},
}

// printTour writes a plain-text rendering of the tour to the command output.
func printTour(cmd *cobra.Command, t *tour.Tour) {
	cmd.Printf("## %s\n", t.Title)
	cmd.Printf("  Created: %s\n", t.CreatedAt.Format("2006-01-02 15:04:05 MST"))
	if t.Source != nil {
		cmd.Printf("  Source:  %s (%s)\n", t.Source.Repository, t.Source.Branch)
	}
	cmd.Println()

	for _, s := range t.Steps {
		cmd.Printf("### Step %d/%d — %s\n", s.Index+1, len(t.Steps), s.Content.Summary)
		cmd.Printf("  %s %s\n", s.FilePath, s.Range)
		if s.CodeSnippet != "" {
			cmd.Println(indent(s.CodeSnippet, "    "))
		}
		if s.Content.Explanation != "" {
			cmd.Println(indent(s.Content.Explanation, "  "))
		}
		cmd.Println()
	}
}

func init() {
	playCmd.Flags().BoolVar(&playPlain, "plain", false, "plain text output instead of the TUI player")
	rootCmd.AddCommand(playCmd)
}

package cmd

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/explain"
	"github.com/fakeyudi/codewalk/internal/tour"
)

var generateTitle string

var generateCmd = &cobra.Command{
	Use:   "generate <file> <start-line> <end-line>",
	Short: "Build a tour from a code selection",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		startLine, err := strconv.Atoi(args[1])
		if err != nil {
			return fmt.Errorf("invalid start line %q", args[1])
		}
		endLine, err := strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid end line %q", args[2])
		}

		cwd, err := os.Getwd()
		if err != nil {
			return err
		}

		b := &tour.Builder{
			WorkDir: cwd,
			Gen:     explain.NewFromEnv(cfg.Model),
		}
		t, err := b.Build(cmd.Context(), args[0], startLine, endLine, generateTitle)
		if err != nil {
			return err
		}

		store, err := tour.NewStore(storageDir())
		if err != nil {
			return err
		}
		if err := store.Save(t); err != nil {
			return err
		}

		cmd.Printf("Tour %q created with %d steps.\n", t.Title, len(t.Steps))
		cmd.Printf("Play it with: codewalk play %s\n", shortID(t.ID))
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateTitle, "title", "t", "", "tour title (defaults to file and line range)")
	rootCmd.AddCommand(generateCmd)
}

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/codewalk/internal/tour"
)

var toursCmd = &cobra.Command{
	Use:   "tours",
	Short: "List stored tours, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := tour.NewStore(storageDir())
		if err != nil {
			return err
		}
		tours, err := store.List()
		if err != nil {
			return err
		}
		if len(tours) == 0 {
			cmd.Println("no tours stored; create one with 'codewalk generate'")
			return nil
		}
		for _, t := range tours {
			cmd.Printf("  %s  %s  (%d steps)  %s\n",
				shortID(t.ID), t.CreatedAt.Format("2006-01-02 15:04"), len(t.Steps), t.Title)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(toursCmd)
}

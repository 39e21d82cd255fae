package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablekit/sheetsync/internal/history"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent sync attempts",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.Recent(historyLimit)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Println("No sync runs recorded yet")
			return nil
		}

		for _, run := range runs {
			line := fmt.Sprintf("%s  %-7s  %4d cells  %6.2fs",
				run.StartedAt.Local().Format("2006-01-02 15:04:05"),
				run.Outcome, run.UpdatedCells, run.Duration.Seconds())
			if run.Detail != "" {
				line += "  " + run.Detail
			}
			fmt.Println(line)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum number of runs to show")
}

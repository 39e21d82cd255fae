package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablekit/sheetsync/internal/fingerprint"
	"github.com/tablekit/sheetsync/internal/history"
	"github.com/tablekit/sheetsync/internal/ui"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the configured files and the last sync outcome",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println(ui.Heading("Files"))
		fmt.Println(ui.KeyValue("Source", pathStatus(cfg.SourcePath)))
		fmt.Println(ui.KeyValue("Target", pathStatus(cfg.TargetPath)))

		if cfg.SourcePath != "" {
			if fp, err := fingerprint.File(cfg.SourcePath); err == nil {
				fmt.Println(ui.KeyValue("Fingerprint", string(fp[:12])))
			}
		}

		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()

		last, err := store.Last()
		if err != nil {
			return err
		}

		fmt.Println()
		fmt.Println(ui.Heading("Last sync"))
		if last == nil {
			fmt.Println("never")
			return nil
		}

		fmt.Println(ui.KeyValue("When", last.StartedAt.Local().Format("2006-01-02 15:04:05")))
		fmt.Println(ui.KeyValue("Outcome", renderOutcome(last)))
		return nil
	},
}

func pathStatus(path string) string {
	if path == "" {
		return "(not set)"
	}
	if _, err := os.Stat(path); err != nil {
		return path + " " + ui.Error("(missing)")
	}
	return path
}

func renderOutcome(run *history.Run) string {
	switch run.Outcome {
	case "synced":
		return ui.Success(fmt.Sprintf("synced %d cells in %.2fs", run.UpdatedCells, run.Duration.Seconds()))
	case "failed":
		return ui.Error("failed: " + run.Detail)
	default:
		return run.Outcome
	}
}

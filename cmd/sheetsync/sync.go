package main

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/tablekit/sheetsync/internal/coordinator"
	"github.com/tablekit/sheetsync/internal/history"
	"github.com/tablekit/sheetsync/internal/ui"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Run one sync from source to target",
	Long: `Reconcile the target spreadsheet against the source once.

Loads both files, overwrites every differing cell in matched rows with the
source value, and rewrites the target only if something actually changed.
The attempt is recorded in the sync history.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.SourcePath == "" || cfg.TargetPath == "" {
			return fmt.Errorf("no spreadsheets configured; run \"sheetsync init\" first")
		}

		store, err := history.Open(cfg.HistoryPath)
		if err != nil {
			return err
		}
		defer store.Close()

		logger := log.New(os.Stderr, "[sheetsync] ", log.LstdFlags)
		coord := coordinator.New(&coordinator.Config{
			Cooldown: cfg.Cooldown,
			Logger:   logger,
			Recorder: store,
		})
		if err := coord.SetPaths(cfg.SourcePath, cfg.TargetPath); err != nil {
			return err
		}

		outcome, err := coord.SyncOnce()
		if err != nil {
			fmt.Println(ui.Error("Sync failed."))
			return err
		}

		switch {
		case outcome.Skipped:
			fmt.Printf("Sync skipped (%s)\n", outcome.SkipReason)
		case outcome.UpdatedCells > 0:
			fmt.Println(ui.Success(fmt.Sprintf("Synced %d cells in %.2f seconds", outcome.UpdatedCells, outcome.Elapsed.Seconds())))
		default:
			fmt.Println("No changes needed")
		}
		return nil
	},
}

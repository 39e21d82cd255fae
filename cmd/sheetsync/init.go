package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/tablekit/sheetsync/internal/config"
	"github.com/tablekit/sheetsync/internal/ui"
)

var (
	initSource string
	initTarget string
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Choose the source and target spreadsheets",
	Long: `Set the source (master) and target (to update) spreadsheet paths.

With --source and --target the paths are taken from the flags; otherwise
an interactive form prompts for them. Both files must exist. The paths are
persisted to config.yaml so later sync and watch runs pick them up.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		source, target := initSource, initTarget

		if source == "" || target == "" {
			form := huh.NewForm(
				huh.NewGroup(
					huh.NewInput().
						Title("Source spreadsheet (master)").
						Description("Changes flow FROM this file").
						Value(&source).
						Validate(validateSpreadsheetPath),
					huh.NewInput().
						Title("Target spreadsheet (to update)").
						Description("Changes flow INTO this file").
						Value(&target).
						Validate(validateSpreadsheetPath),
				),
			)
			if err := form.Run(); err != nil {
				return err
			}
		} else {
			if err := validateSpreadsheetPath(source); err != nil {
				return fmt.Errorf("source: %w", err)
			}
			if err := validateSpreadsheetPath(target); err != nil {
				return fmt.Errorf("target: %w", err)
			}
		}

		cfg.SourcePath = source
		cfg.TargetPath = target
		if err := config.Save(cfgDir, cfg); err != nil {
			return err
		}

		fmt.Println(ui.Success("Configuration saved."))
		fmt.Println(ui.KeyValue("Source", source))
		fmt.Println(ui.KeyValue("Target", target))
		return nil
	},
}

func init() {
	initCmd.Flags().StringVar(&initSource, "source", "", "source spreadsheet path")
	initCmd.Flags().StringVar(&initTarget, "target", "", "target spreadsheet path")
}

// validateSpreadsheetPath requires a non-empty path to an existing
// regular file.
func validateSpreadsheetPath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("file does not exist: %s", path)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

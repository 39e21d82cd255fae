package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tablekit/sheetsync/internal/config"
)

const version = "1.0.0"

// Global flag values.
var (
	flagConfigDir string
)

// cfg and cfgDir are loaded by PersistentPreRunE so all subcommands can
// use them.
var (
	cfg    *config.Config
	cfgDir string
)

var rootCmd = &cobra.Command{
	Use:     "sheetsync",
	Short:   "Propagate spreadsheet changes from a source file to a target file",
	Version: version,
	Long: `sheetsync keeps a target spreadsheet up to date with a source spreadsheet.

Rows are matched by the value in the first column of each file. Wherever a
matched row's cell differs, the source value overwrites the target value.
Rows and columns that exist only in the target are never touched.

Run "sheetsync init" to choose the files, "sheetsync sync" for a one-shot
update, or "sheetsync watch" to sync automatically whenever the source
file changes on disk.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dir := flagConfigDir
		if dir == "" {
			var err error
			dir, err = config.DefaultDir()
			if err != nil {
				return err
			}
		}

		loaded, err := config.Load(dir)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		cfg = loaded
		cfgDir = dir
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigDir, "config-dir", "", "configuration directory (default: $SHEETSYNC_CONFIG_DIR or the user config dir)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(historyCmd)
}

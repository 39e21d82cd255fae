// Package main provides the sheetsync CLI.
//
// sheetsync propagates changed cell values from a source spreadsheet into
// a target spreadsheet, keyed by each row's first column, either once
// (sync) or continuously (watch).
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

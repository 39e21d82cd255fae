// Package reconcile computes and applies cell-level differences from a
// source spreadsheet to a target spreadsheet.
//
// Rows are matched by the value in the first column of each table. The
// source always wins: wherever a matched row's cell differs between the
// two files, the target cell is overwritten with the source value. Rows
// and columns that exist only in the target are never touched; rows and
// columns that exist only in the source are ignored.
package reconcile

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/tablekit/sheetsync/internal/table"
)

// ErrTargetLocked indicates the target file is exclusively locked by
// another process, typically because it is open in Excel. The condition
// is recoverable: close the file and sync again.
var ErrTargetLocked = errors.New("target file is locked by another process")

// Result summarizes a completed reconciliation.
type Result struct {
	// UpdatedCells is the number of target cells that were changed.
	// Zero means the target file was left untouched on disk.
	UpdatedCells int
}

// Reconciler applies source-wins cell updates to a target spreadsheet.
type Reconciler struct {
	logger *log.Logger
}

// New creates a Reconciler. If logger is nil, a default logger writing to
// stderr is used.
func New(logger *log.Logger) *Reconciler {
	if logger == nil {
		logger = log.New(os.Stderr, "[reconcile] ", log.LstdFlags)
	}
	return &Reconciler{logger: logger}
}

// Reconcile loads both spreadsheets, applies every differing source value
// to the matching target row, and writes the target back in place.
//
// The target file is rewritten only when at least one cell changed; a
// no-op reconciliation leaves the file bytes and timestamps alone so it
// does not trigger spurious file-modification events.
//
// A malformed file surfaces as a *table.ParseError; a write to a locked
// target surfaces as an error wrapping ErrTargetLocked. Neither is
// retried automatically.
func (r *Reconciler) Reconcile(sourcePath, targetPath string) (Result, error) {
	src, err := table.Load(sourcePath)
	if err != nil {
		return Result{}, fmt.Errorf("load source: %w", err)
	}

	tgt, err := table.Load(targetPath)
	if err != nil {
		return Result{}, fmt.Errorf("load target: %w", err)
	}

	updated := apply(src, tgt)
	if updated == 0 {
		return Result{}, nil
	}

	if lockFileExists(targetPath) {
		return Result{}, fmt.Errorf("write %s: %w", targetPath, ErrTargetLocked)
	}
	if err := table.Save(targetPath, tgt); err != nil {
		if errors.Is(err, fs.ErrPermission) {
			return Result{}, fmt.Errorf("write %s: %w", targetPath, ErrTargetLocked)
		}
		return Result{}, fmt.Errorf("write target: %w", err)
	}

	r.logger.Printf("Updated %d cells in %s", updated, targetPath)
	return Result{UpdatedCells: updated}, nil
}

// apply copies differing source values into tgt and returns the number of
// cells changed. Rows are matched on the first column; within a matched
// row every column after the key is eligible when the source has it.
func apply(src, tgt *table.Table) int {
	sourceMap := src.Dedupe()

	updated := 0
	for _, row := range tgt.Rows {
		cells, ok := sourceMap[row.Key()]
		if !ok {
			continue // target-only row, leave untouched
		}

		for i := 1; i < len(tgt.Columns); i++ {
			want, ok := cells[tgt.Columns[i]]
			if !ok {
				continue // column absent from source
			}
			if !row[i].Equal(want) {
				row[i] = want
				updated++
			}
		}
	}
	return updated
}

// lockFileExists reports whether an Excel owner file ("~$name.xlsx") sits
// next to the target, which means Excel has the file open for editing.
func lockFileExists(path string) bool {
	base := filepath.Base(path)
	if !strings.HasPrefix(strings.ToLower(filepath.Ext(base)), ".xls") {
		return false
	}
	owner := filepath.Join(filepath.Dir(path), "~$"+base)
	_, err := os.Stat(owner)
	return err == nil
}

package reconcile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/tablekit/sheetsync/internal/table"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
	return path
}

func loadCell(t *testing.T, path string, row, col int) table.Value {
	t.Helper()
	tbl, err := table.Load(path)
	if err != nil {
		t.Fatalf("Failed to reload %s: %v", path, err)
	}
	return tbl.Rows[row][col]
}

// TestReconcile_UpdateCounting verifies a missing target value is filled
// from the source and counted as one update.
func TestReconcile_UpdateCounting(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,5\n")
	target := writeCSV(t, dir, "target.csv", "id,val\nX,\n")

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}

	if res.UpdatedCells != 1 {
		t.Errorf("UpdatedCells = %d, want 1", res.UpdatedCells)
	}
	if got := loadCell(t, target, 0, 1); !got.Equal(table.Number(5)) {
		t.Errorf("Target val = %q, want 5", got.String())
	}
}

// TestReconcile_NoopLeavesFileUntouched verifies identical values cause
// zero updates and no rewrite of the target file.
func TestReconcile_NoopLeavesFileUntouched(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,5\n")
	target := writeCSV(t, dir, "target.csv", "id,val\nX,5\n")

	before, err := os.Stat(target)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if res.UpdatedCells != 0 {
		t.Errorf("UpdatedCells = %d, want 0", res.UpdatedCells)
	}

	after, err := os.Stat(target)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("Target file was rewritten despite zero updates")
	}
}

// TestReconcile_KeepLastDuplicate verifies the keep-last dedup policy for
// duplicate source keys.
func TestReconcile_KeepLastDuplicate(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nK,a\nK,b\n")
	target := writeCSV(t, dir, "target.csv", "id,val\nK,\n")

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if res.UpdatedCells != 1 {
		t.Errorf("UpdatedCells = %d, want 1", res.UpdatedCells)
	}
	if got := loadCell(t, target, 0, 1); !got.Equal(table.Text("b")) {
		t.Errorf("Effective value for duplicated key = %q, want %q", got.String(), "b")
	}
}

// TestReconcile_UnmatchedRowPreserved verifies target rows absent from the
// source are left unchanged.
func TestReconcile_UnmatchedRowPreserved(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,9\n")
	target := writeCSV(t, dir, "target.csv", "id,val\nX,1\nZ,keep\n")

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if res.UpdatedCells != 1 {
		t.Errorf("UpdatedCells = %d, want 1", res.UpdatedCells)
	}
	if got := loadCell(t, target, 1, 1); !got.Equal(table.Text("keep")) {
		t.Errorf("Unmatched row value = %q, want %q", got.String(), "keep")
	}
}

// TestReconcile_ColumnsOnlyOnOneSide verifies target-only columns are
// never touched and source-only columns are ignored.
func TestReconcile_ColumnsOnlyOnOneSide(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val,extra\nX,5,ignored\n")
	target := writeCSV(t, dir, "target.csv", "id,val,note\nX,1,mine\n")

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if res.UpdatedCells != 1 {
		t.Errorf("UpdatedCells = %d, want 1", res.UpdatedCells)
	}

	tbl, err := table.Load(target)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}
	if len(tbl.Columns) != 3 || tbl.Columns[2] != "note" {
		t.Errorf("Target columns changed: %v", tbl.Columns)
	}
	if got := tbl.Rows[0][2]; !got.Equal(table.Text("mine")) {
		t.Errorf("Target-only column value = %q, want %q", got.String(), "mine")
	}
}

// TestReconcile_NumericEquivalence verifies "5.0" and 5 do not count as a
// change.
func TestReconcile_NumericEquivalence(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,5\n")
	target := writeCSV(t, dir, "target.csv", "id,val\nX,5.0\n")

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if res.UpdatedCells != 0 {
		t.Errorf("UpdatedCells = %d, want 0", res.UpdatedCells)
	}
}

// TestReconcile_RewritePreservesUntouchedCellText verifies a rewrite
// triggered by one real update leaves the original text of every other
// cell intact: a leading-zero code in a target-only column must not be
// renormalized to its numeric form.
func TestReconcile_RewritePreservesUntouchedCellText(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,5\n")
	target := writeCSV(t, dir, "target.csv", "id,val,note\nX,,0123\n")

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if res.UpdatedCells != 1 {
		t.Errorf("UpdatedCells = %d, want 1", res.UpdatedCells)
	}

	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("Failed to read target: %v", err)
	}
	if got, want := string(data), "id,val,note\nX,5,0123\n"; got != want {
		t.Errorf("Target after rewrite = %q, want %q", got, want)
	}
}

// TestReconcile_RewritePreservesLongDigitStrings verifies identifiers too
// long for float64 precision survive a rewrite byte for byte.
func TestReconcile_RewritePreservesLongDigitStrings(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,5\n")
	target := writeCSV(t, dir, "target.csv", "id,val,ref\nX,,12345678901234567890\n")

	if _, err := New(nil).Reconcile(source, target); err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}

	if got := loadCell(t, target, 0, 2).String(); got != "12345678901234567890" {
		t.Errorf("Long identifier after rewrite = %q, want it unchanged", got)
	}
}

// TestReconcile_NaNCellsAreStable verifies identical NaN cells never
// count as an update, so repeated runs stay no-ops.
func TestReconcile_NaNCellsAreStable(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,NaN\n")
	target := writeCSV(t, dir, "target.csv", "id,val\nX,NaN\n")

	before, err := os.Stat(target)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	time.Sleep(20 * time.Millisecond)

	r := New(nil)
	for i := 0; i < 2; i++ {
		res, err := r.Reconcile(source, target)
		if err != nil {
			t.Fatalf("Reconcile() run %d failed: %v", i+1, err)
		}
		if res.UpdatedCells != 0 {
			t.Errorf("Run %d UpdatedCells = %d, want 0", i+1, res.UpdatedCells)
		}
	}

	after, err := os.Stat(target)
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if !after.ModTime().Equal(before.ModTime()) {
		t.Error("Target file was rewritten despite identical NaN cells")
	}
}

// TestReconcile_Idempotent verifies a second run right after a successful
// sync performs zero updates.
func TestReconcile_Idempotent(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,a,b\nX,1,2\nY,3,4\n")
	target := writeCSV(t, dir, "target.csv", "id,a,b\nX,,\nY,9,4\n")

	r := New(nil)
	first, err := r.Reconcile(source, target)
	if err != nil {
		t.Fatalf("First Reconcile() failed: %v", err)
	}
	if first.UpdatedCells != 3 {
		t.Errorf("First run UpdatedCells = %d, want 3", first.UpdatedCells)
	}

	second, err := r.Reconcile(source, target)
	if err != nil {
		t.Fatalf("Second Reconcile() failed: %v", err)
	}
	if second.UpdatedCells != 0 {
		t.Errorf("Second run UpdatedCells = %d, want 0", second.UpdatedCells)
	}
}

// TestReconcile_EmptyTables verifies header-only files yield zero updates
// without error.
func TestReconcile_EmptyTables(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\n")
	target := writeCSV(t, dir, "target.csv", "id,val\n")

	res, err := New(nil).Reconcile(source, target)
	if err != nil {
		t.Fatalf("Reconcile() failed: %v", err)
	}
	if res.UpdatedCells != 0 {
		t.Errorf("UpdatedCells = %d, want 0", res.UpdatedCells)
	}
}

// TestReconcile_ParseError verifies a malformed table surfaces as a typed
// parse error.
func TestReconcile_ParseError(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\n\"broken,1\n")
	target := writeCSV(t, dir, "target.csv", "id,val\nX,5\n")

	_, err := New(nil).Reconcile(source, target)
	var parseErr *table.ParseError
	if !errors.As(err, &parseErr) {
		t.Errorf("Expected *table.ParseError, got %v", err)
	}
}

// TestReconcile_TargetLocked verifies an Excel owner file next to the
// target is reported as the target being locked.
func TestReconcile_TargetLocked(t *testing.T) {
	dir := t.TempDir()
	source := writeCSV(t, dir, "source.csv", "id,val\nX,5\n")

	target := filepath.Join(dir, "target.xlsx")
	tbl := &table.Table{
		Columns: []string{"id", "val"},
		Rows:    []table.Row{{table.Text("X"), table.Number(1)}},
	}
	if err := table.Save(target, tbl); err != nil {
		t.Fatalf("Failed to create target: %v", err)
	}

	owner := filepath.Join(dir, "~$target.xlsx")
	if err := os.WriteFile(owner, []byte("excel owner file"), 0644); err != nil {
		t.Fatalf("Failed to create owner file: %v", err)
	}

	_, err := New(nil).Reconcile(source, target)
	if !errors.Is(err, ErrTargetLocked) {
		t.Errorf("Expected ErrTargetLocked, got %v", err)
	}
}

package fingerprint

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// TestFile_Stability verifies that fingerprinting an unmodified file twice
// returns equal values.
func TestFile_Stability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("id,val\nX,5\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	first, err := File(path)
	if err != nil {
		t.Fatalf("File() failed: %v", err)
	}
	second, err := File(path)
	if err != nil {
		t.Fatalf("File() failed: %v", err)
	}

	if first != second {
		t.Errorf("Fingerprints differ for unmodified file: %s vs %s", first, second)
	}
	if len(first) != 64 {
		t.Errorf("Expected 64-char hex digest, got %d chars", len(first))
	}
}

// TestFile_ChangesAfterModification verifies that any byte-level change
// yields a different fingerprint.
func TestFile_ChangesAfterModification(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("id,val\nX,5\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	before, err := File(path)
	if err != nil {
		t.Fatalf("File() failed: %v", err)
	}

	if err := os.WriteFile(path, []byte("id,val\nX,6\n"), 0644); err != nil {
		t.Fatalf("Failed to modify file: %v", err)
	}

	after, err := File(path)
	if err != nil {
		t.Fatalf("File() failed: %v", err)
	}

	if before == after {
		t.Error("Fingerprint did not change after modification")
	}
}

// TestFile_NotFound verifies the soft error for unreadable files.
func TestFile_NotFound(t *testing.T) {
	_, err := File(filepath.Join(t.TempDir(), "missing.csv"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

// TestChanged covers the three outcomes: unchanged, changed, unreadable.
func TestChanged(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data.csv")
	if err := os.WriteFile(path, []byte("id,val\nX,5\n"), 0644); err != nil {
		t.Fatalf("Failed to write file: %v", err)
	}

	fp, err := File(path)
	if err != nil {
		t.Fatalf("File() failed: %v", err)
	}

	if Changed(path, fp) {
		t.Error("Changed() = true for unmodified file")
	}
	if !Changed(path, "stale") {
		t.Error("Changed() = false for differing previous fingerprint")
	}
	if Changed(filepath.Join(t.TempDir(), "missing.csv"), fp) {
		t.Error("Changed() = true for unreadable file")
	}
}

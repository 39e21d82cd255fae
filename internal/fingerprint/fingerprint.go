// Package fingerprint provides cheap content-based change detection for
// spreadsheet files.
//
// A fingerprint is a SHA-256 digest of the file's raw bytes. Comparing
// fingerprints answers "did this file really change?" without parsing the
// spreadsheet, which keeps the watch loop inexpensive.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
)

// ErrNotFound indicates the file could not be read (missing, locked, or
// permission denied). This is a soft condition: callers log it and retry
// on the next trigger rather than aborting.
var ErrNotFound = errors.New("file not readable")

// Fingerprint is a hex-encoded SHA-256 digest of a file's contents.
type Fingerprint string

// File computes the fingerprint of the file at path.
//
// Any read failure is reported as ErrNotFound; the caller cannot
// distinguish a missing file from a locked one, and does not need to.
func File(path string) (Fingerprint, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, ErrNotFound)
	}

	sum := sha256.Sum256(data)
	return Fingerprint(hex.EncodeToString(sum[:])), nil
}

// Changed reports whether the file at path currently has a fingerprint
// that differs from previous. An unreadable file never counts as changed.
func Changed(path string, previous Fingerprint) bool {
	fp, err := File(path)
	if err != nil {
		return false
	}
	return fp != previous
}

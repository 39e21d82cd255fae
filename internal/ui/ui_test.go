package ui

import "testing"

// Tests run with stdout detached from a terminal, so every helper takes
// the plain, unstyled path.

func TestKeyValue_Plain(t *testing.T) {
	if got := KeyValue("Source", "/tmp/a.csv"); got != "Source: /tmp/a.csv" {
		t.Errorf("KeyValue() = %q", got)
	}
}

func TestLogLines_Plain(t *testing.T) {
	lines := []string{"[10:00:01] Synced 2 cells", "[10:00:00] Starting sync..."}

	if got := LogLines(lines); got != "[10:00:01] Synced 2 cells\n[10:00:00] Starting sync..." {
		t.Errorf("LogLines() = %q", got)
	}
	if got := LogLines(nil); got != "" {
		t.Errorf("LogLines(nil) = %q, want empty", got)
	}
}

func TestPassthroughHelpers_Plain(t *testing.T) {
	for _, fn := range []func(string) string{Heading, Success, Error} {
		if got := fn("message"); got != "message" {
			t.Errorf("Plain render = %q, want %q", got, "message")
		}
	}
}

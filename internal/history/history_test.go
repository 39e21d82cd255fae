package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/tablekit/sheetsync/internal/coordinator"
)

func openTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s, path
}

func TestStore_RecordAndRecent(t *testing.T) {
	s, _ := openTestStore(t)

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	runs := []coordinator.Run{
		{StartedAt: base, Duration: 120 * time.Millisecond, UpdatedCells: 3, Outcome: coordinator.RunSynced},
		{StartedAt: base.Add(time.Minute), Duration: 40 * time.Millisecond, Outcome: coordinator.RunNoop},
		{StartedAt: base.Add(2 * time.Minute), Duration: 10 * time.Millisecond, Outcome: coordinator.RunFailed, Detail: "target file is locked"},
	}
	for _, run := range runs {
		if err := s.RecordRun(run); err != nil {
			t.Fatalf("RecordRun() failed: %v", err)
		}
	}

	got, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("Recent() returned %d runs, want 3", len(got))
	}

	// Most recent first.
	if got[0].Outcome != coordinator.RunFailed {
		t.Errorf("First run outcome = %q, want %q", got[0].Outcome, coordinator.RunFailed)
	}
	if got[0].Detail != "target file is locked" {
		t.Errorf("First run detail = %q", got[0].Detail)
	}
	if got[2].UpdatedCells != 3 {
		t.Errorf("Oldest run updated cells = %d, want 3", got[2].UpdatedCells)
	}
	if !got[2].StartedAt.Equal(base) {
		t.Errorf("Oldest run started at %v, want %v", got[2].StartedAt, base)
	}
	if got[2].Duration != 120*time.Millisecond {
		t.Errorf("Oldest run duration = %v, want 120ms", got[2].Duration)
	}
}

func TestStore_RecentLimit(t *testing.T) {
	s, _ := openTestStore(t)

	for i := 0; i < 5; i++ {
		run := coordinator.Run{StartedAt: time.Now(), Outcome: coordinator.RunNoop}
		if err := s.RecordRun(run); err != nil {
			t.Fatalf("RecordRun() failed: %v", err)
		}
	}

	got, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent() failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Recent(2) returned %d runs, want 2", len(got))
	}
}

func TestStore_LastEmpty(t *testing.T) {
	s, _ := openTestStore(t)

	last, err := s.Last()
	if err != nil {
		t.Fatalf("Last() failed: %v", err)
	}
	if last != nil {
		t.Errorf("Last() on empty journal = %+v, want nil", last)
	}
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	run := coordinator.Run{
		StartedAt:    time.Now(),
		Duration:     time.Second,
		UpdatedCells: 7,
		Outcome:      coordinator.RunSynced,
	}
	if err := s.RecordRun(run); err != nil {
		t.Fatalf("RecordRun() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	s2, err := Open(path)
	if err != nil {
		t.Fatalf("Reopen failed: %v", err)
	}
	defer s2.Close()

	last, err := s2.Last()
	if err != nil {
		t.Fatalf("Last() failed: %v", err)
	}
	if last == nil {
		t.Fatal("Last() returned nil after reopen")
	}
	if last.UpdatedCells != 7 || last.Outcome != coordinator.RunSynced {
		t.Errorf("Last() = %+v, want 7 cells synced", last)
	}
}

func TestStore_DoubleClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Second Close() failed: %v", err)
	}
}

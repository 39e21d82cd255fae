package coordinator

import (
	"fmt"
	"sync"
	"time"
)

// activityCapacity is how many log lines the activity ring retains.
const activityCapacity = 20

// ActivityLog is a bounded, most-recent-first log of timestamped
// human-readable messages. It is what an embedding shell renders to the
// user; the oldest line is dropped once capacity is reached.
type ActivityLog struct {
	mu      sync.Mutex
	entries []string
	cap     int
}

// NewActivityLog creates an empty activity log with the given capacity.
func NewActivityLog(capacity int) *ActivityLog {
	if capacity <= 0 {
		capacity = activityCapacity
	}
	return &ActivityLog{cap: capacity}
}

// Append records a message, timestamped, at the front of the log.
func (l *ActivityLog) Append(msg string) {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), msg)

	l.mu.Lock()
	defer l.mu.Unlock()

	l.entries = append([]string{line}, l.entries...)
	if len(l.entries) > l.cap {
		l.entries = l.entries[:l.cap]
	}
}

// Entries returns a copy of the log, most recent first.
func (l *ActivityLog) Entries() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]string, len(l.entries))
	copy(out, l.entries)
	return out
}

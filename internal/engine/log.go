package engine

import (
	"sync"
	"time"
)

// LogEntry is one completed operation.
type LogEntry struct {
	Op        Operation
	AppliedAt time.Time
}

// RollbackLog is the append-only record of completed operations in the
// order they completed. Appends may come from several goroutines; reading
// is only meaningful once every appender has returned.
type RollbackLog struct {
	mu      sync.Mutex
	entries []LogEntry
}

// Append records op as completed now.
func (l *RollbackLog) Append(op Operation) {
	l.mu.Lock()
	l.entries = append(l.entries, LogEntry{Op: op, AppliedAt: time.Now()})
	l.mu.Unlock()
}

// Entries returns a copy of the log in completion order.
func (l *RollbackLog) Entries() []LogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]LogEntry(nil), l.entries...)
}

// Len returns the number of completed operations.
func (l *RollbackLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}

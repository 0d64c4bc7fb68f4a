package logging

import (
	"sync"
	"time"
)

// LogEntry is one captured log record, kept in a shape that serializes
// directly into the logs API and the SSE stream.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer retains the most recent log entries for replay to clients
// that connect after the fact. Writes never block and never grow memory
// past the fixed capacity.
type RingBuffer struct {
	mu      sync.RWMutex
	entries []LogEntry
	next    int
	full    bool
}

// NewRingBuffer creates a buffer holding up to capacity entries.
func NewRingBuffer(capacity int) *RingBuffer {
	return &RingBuffer{entries: make([]LogEntry, capacity)}
}

// Write appends an entry, overwriting the oldest once full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.entries[rb.next] = entry
	rb.next++
	if rb.next == len(rb.entries) {
		rb.next = 0
		rb.full = true
	}
}

// ReadAll returns a copy of the retained entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if !rb.full {
		if rb.next == 0 {
			return nil
		}
		out := make([]LogEntry, rb.next)
		copy(out, rb.entries[:rb.next])
		return out
	}

	out := make([]LogEntry, len(rb.entries))
	n := copy(out, rb.entries[rb.next:])
	copy(out[n:], rb.entries[:rb.next])
	return out
}

// Count returns how many entries are retained.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	if rb.full {
		return len(rb.entries)
	}
	return rb.next
}

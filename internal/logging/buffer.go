package logging

import (
	"sync"
	"time"
)

// LogEntry is one structured controller log line as kept in the history
// ring and replayed to SSE clients on connect.
type LogEntry struct {
	Timestamp  time.Time      `json:"timestamp"`
	Level      string         `json:"level"`
	Module     string         `json:"module"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// RingBuffer keeps the most recent controller log entries in a fixed-size
// ring so a client connecting mid-run still sees recent history.
type RingBuffer struct {
	mu    sync.RWMutex
	slots []LogEntry
	start int // index of the oldest entry
	n     int
}

// NewRingBuffer creates a ring holding at most size entries.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 1
	}
	return &RingBuffer{slots: make([]LogEntry, size)}
}

// Write appends an entry, evicting the oldest when the ring is full.
func (rb *RingBuffer) Write(entry LogEntry) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.n == len(rb.slots) {
		rb.slots[rb.start] = entry
		rb.start = (rb.start + 1) % len(rb.slots)
		return
	}
	rb.slots[(rb.start+rb.n)%len(rb.slots)] = entry
	rb.n++
}

// ReadAll returns the buffered entries, oldest first.
func (rb *RingBuffer) ReadAll() []LogEntry {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.n == 0 {
		return nil
	}
	out := make([]LogEntry, rb.n)
	for i := range out {
		out[i] = rb.slots[(rb.start+i)%len(rb.slots)]
	}
	return out
}

// Count returns the number of buffered entries.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.n
}

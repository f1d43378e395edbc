package process

import (
	"sync"
	"time"
)

// DefaultLogBufferSize is the per-process log buffer capacity.
const DefaultLogBufferSize = 500

// Stream identifies the origin of a captured log line.
type Stream string

const (
	StreamStdout Stream = "stdout"
	StreamStderr Stream = "stderr"
	// StreamSystem marks lines written by the controller itself, such as
	// stop and kill notices.
	StreamSystem Stream = "system"
)

// Entry is one captured log line.
type Entry struct {
	Timestamp time.Time `json:"timestamp" doc:"Capture time"`
	Stream    Stream    `json:"stream" example:"stdout" doc:"Line origin"`
	Text      string    `json:"text" doc:"Line content without trailing newline"`
}

// Buffer is a fixed-capacity FIFO log buffer. When full, appending evicts
// the oldest entry.
type Buffer struct {
	mu      sync.Mutex
	entries []Entry
	head    int
	size    int
}

// NewBuffer creates a buffer with the given capacity.
func NewBuffer(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultLogBufferSize
	}
	return &Buffer{
		entries: make([]Entry, capacity),
	}
}

// Append adds a line to the buffer, evicting the oldest entry when full.
func (b *Buffer) Append(stream Stream, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entry := Entry{
		Timestamp: time.Now(),
		Stream:    stream,
		Text:      text,
	}

	if b.size < len(b.entries) {
		b.entries[(b.head+b.size)%len(b.entries)] = entry
		b.size++
	} else {
		b.entries[b.head] = entry
		b.head = (b.head + 1) % len(b.entries)
	}
}

// System appends a controller-generated line.
func (b *Buffer) System(text string) {
	b.Append(StreamSystem, text)
}

// Tail returns the most recent entries, oldest first. A limit <= 0 or
// greater than the buffered count returns everything.
func (b *Buffer) Tail(limit int) []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := b.size
	if limit > 0 && limit < n {
		n = limit
	}

	result := make([]Entry, n)
	start := b.size - n
	for i := range n {
		result[i] = b.entries[(b.head+start+i)%len(b.entries)]
	}
	return result
}

// Len returns the number of buffered entries.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.size
}

// Cap returns the buffer capacity.
func (b *Buffer) Cap() int {
	return len(b.entries)
}

// Package logbuffer keeps the most recent log entries in memory so the log
// viewer can render them. Entries reach the buffer through a zapcore.Core
// (see NewCore), so every component logs through zap as usual.
package logbuffer

import (
	"sync"
	"time"
)

// DefaultCapacity is the number of entries retained when none is configured.
const DefaultCapacity = 1000

// TimestampLayout renders entry timestamps for display.
const TimestampLayout = "January 02, 2006 at 15:04 GMT"

// Entry is one immutable log line.
type Entry struct {
	Timestamp time.Time
	Level     string
	Message   string
}

// Line renders the entry as "[<timestamp>] <message>".
func (e Entry) Line() string {
	return "[" + e.Timestamp.UTC().Format(TimestampLayout) + "] " + e.Message
}

// Buffer is a fixed-capacity FIFO ring of entries. Appends past capacity evict
// the oldest entry. Safe for concurrent use.
type Buffer struct {
	mu       sync.Mutex
	entries  []Entry
	start    int
	count    int
	capacity int
}

// New returns a Buffer holding at most capacity entries.
func New(capacity int) *Buffer {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Buffer{
		entries:  make([]Entry, capacity),
		capacity: capacity,
	}
}

// Append adds entry, evicting the oldest one when full.
func (b *Buffer) Append(entry Entry) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.count < b.capacity {
		b.entries[(b.start+b.count)%b.capacity] = entry
		b.count++
		return
	}
	b.entries[b.start] = entry
	b.start = (b.start + 1) % b.capacity
}

// Entries returns a copy of the buffered entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, b.count)
	for i := 0; i < b.count; i++ {
		out[i] = b.entries[(b.start+i)%b.capacity]
	}
	return out
}

// Len reports how many entries are buffered.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Capacity reports the maximum number of retained entries.
func (b *Buffer) Capacity() int {
	return b.capacity
}

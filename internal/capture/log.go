package capture

import (
	"sync"
	"time"
)

// DefaultLogCapacity bounds the run log kept for status displays.
const DefaultLogCapacity = 300

// Entry is one timestamped run log message.
type Entry struct {
	Time    time.Time
	Message string
}

// String renders the entry as "15:04:05 message".
func (e Entry) String() string {
	return e.Time.Format(time.TimeOnly) + " " + e.Message
}

// Log is a bounded FIFO of run messages. The oldest entry is evicted once the
// capacity is reached. It is safe for concurrent use.
type Log struct {
	mu      sync.Mutex
	entries []Entry // ring buffer, len == capacity
	head    int     // index of the oldest entry
	size    int
	now     func() time.Time
}

// NewLog returns a log holding at most capacity entries. A non-positive
// capacity uses DefaultLogCapacity.
func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &Log{entries: make([]Entry, capacity), now: time.Now}
}

// Push appends a timestamped message, overwriting the oldest entry when the
// log is full.
func (l *Log) Push(message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := Entry{Time: l.now(), Message: message}
	if l.size < len(l.entries) {
		l.entries[(l.head+l.size)%len(l.entries)] = entry
		l.size++
		return
	}
	l.entries[l.head] = entry
	l.head = (l.head + 1) % len(l.entries)
}

// Entries returns a copy of the retained entries, oldest first.
func (l *Log) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, l.size)
	n := copy(out, l.entries[l.head:min(l.head+l.size, len(l.entries))])
	copy(out[n:], l.entries[:l.size-n])
	return out
}

// Lines returns the retained entries formatted for display.
func (l *Log) Lines() []string {
	entries := l.Entries()
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.String()
	}
	return lines
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Reset discards every entry and keeps the capacity.
func (l *Log) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.entries)
	l.head = 0
	l.size = 0
}

// Package activity holds the append-only, timestamped record of printer
// session outcomes shown to the user.
package activity

import (
	"fmt"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// TimeLayout is the HH:MM:SS layout used when rendering entries
const TimeLayout = "15:04:05"

// Entry is one immutable line of the activity log
type Entry struct {
	Sequence  int64     `json:"sequence"`
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Line renders the entry as "> [HH:MM:SS] message"
func (e Entry) Line() string {
	return fmt.Sprintf("> [%s] %s", e.Timestamp.Format(TimeLayout), e.Message)
}

// Listener receives every appended entry, in sequence order. It is the
// scroll-to-end signal for the presentation layer. It may read the log but
// must not append to it.
type Listener interface {
	EntryAppended(entry Entry)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(entry Entry)

func (f ListenerFunc) EntryAppended(entry Entry) { f(entry) }

// Options configures a Log
type Options struct {
	// Capacity bounds the number of retained entries. Zero keeps everything.
	Capacity int
	Clock    clockwork.Clock
}

// Log is the ordered activity log. Insertion order is display order.
type Log struct {
	// notifyMu serializes append and delivery so listeners see entries in sequence order.
	notifyMu  sync.Mutex
	mu        sync.RWMutex
	entries   []Entry
	nextSeq   int64
	capacity  int
	clock     clockwork.Clock
	listeners map[int]Listener
	nextLID   int
}

// New creates an empty activity log
func New(opts Options) *Log {
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	capacity := opts.Capacity
	if capacity < 0 {
		capacity = 0
	}

	return &Log{
		entries:   make([]Entry, 0),
		nextSeq:   1,
		capacity:  capacity,
		clock:     clock,
		listeners: make(map[int]Listener),
	}
}

// Append stamps message with the current time and adds it to the end of the log.
func (l *Log) Append(message string) Entry {
	l.notifyMu.Lock()
	defer l.notifyMu.Unlock()

	l.mu.Lock()
	entry := Entry{
		Sequence:  l.nextSeq,
		Timestamp: l.clock.Now(),
		Message:   message,
	}
	l.nextSeq++
	l.entries = append(l.entries, entry)
	if l.capacity > 0 && len(l.entries) > l.capacity {
		l.entries = append(l.entries[:0:0], l.entries[len(l.entries)-l.capacity:]...)
	}

	listeners := make([]Listener, 0, len(l.listeners))
	for _, listener := range l.listeners {
		listeners = append(listeners, listener)
	}
	l.mu.Unlock()

	for _, listener := range listeners {
		listener.EntryAppended(entry)
	}
	return entry
}

// Subscribe registers a listener and returns a function that removes it
func (l *Log) Subscribe(listener Listener) func() {
	l.mu.Lock()
	id := l.nextLID
	l.nextLID++
	l.listeners[id] = listener
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.listeners, id)
			l.mu.Unlock()
		})
	}
}

// Render returns every retained entry as a display line, oldest first
func (l *Log) Render() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	lines := make([]string, len(l.entries))
	for i, entry := range l.entries {
		lines[i] = entry.Line()
	}
	return lines
}

// Entries returns a copy of every retained entry
func (l *Log) Entries() []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Entry, len(l.entries))
	copy(result, l.entries)
	return result
}

// Tail returns the last n entries. n <= 0 returns everything.
func (l *Log) Tail(n int) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	start := 0
	if n > 0 && len(l.entries) > n {
		start = len(l.entries) - n
	}
	result := make([]Entry, len(l.entries)-start)
	copy(result, l.entries[start:])
	return result
}

// Since returns the entries with a sequence greater than seq
func (l *Log) Since(seq int64) []Entry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]Entry, 0)
	for _, entry := range l.entries {
		if entry.Sequence > seq {
			result = append(result, entry)
		}
	}
	return result
}

// Len returns the number of retained entries
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}

// Capacity returns the configured bound, zero meaning unbounded
func (l *Log) Capacity() int {
	return l.capacity
}

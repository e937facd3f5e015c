package tracking

import (
	"sync"
	"time"

	"github.com/unklstewy/skytrack/pkg/protocol"
)

// Direction tells whether a frame was sent or received.
type Direction string

const (
	Outgoing Direction = "out"
	Ingoing  Direction = "in"
)

// HistoryEntry is one exchanged frame, kept for diagnostics.
type HistoryEntry struct {
	Command   protocol.Command `json:"command"`
	Size      int              `json:"size"`
	Payload   []byte           `json:"payload"`
	Direction Direction        `json:"direction"`
	Time      time.Time        `json:"time"`
}

func newHistoryEntry(p *protocol.Package, dir Direction) HistoryEntry {
	return HistoryEntry{
		Command:   p.Command,
		Size:      p.Size(),
		Payload:   p.Payload(),
		Direction: dir,
		Time:      time.Now().UTC(),
	}
}

// History is a bounded, oldest-evicted log of exchanged frames.
type History struct {
	mu      sync.Mutex
	limit   int
	entries []HistoryEntry
}

// NewHistory returns a history holding at most limit entries.
func NewHistory(limit int) *History {
	if limit <= 0 {
		limit = 1
	}
	return &History{limit: limit}
}

// Append adds an entry and evicts the oldest ones beyond the limit.
func (h *History) Append(e HistoryEntry) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.entries = append(h.entries, e)
	if excess := len(h.entries) - h.limit; excess > 0 {
		h.entries = append(h.entries[:0], h.entries[excess:]...)
	}
}

// SetLimit changes the capacity, trimming immediately if needed.
func (h *History) SetLimit(limit int) {
	if limit <= 0 {
		limit = 1
	}
	h.mu.Lock()
	defer h.mu.Unlock()

	h.limit = limit
	if excess := len(h.entries) - h.limit; excess > 0 {
		h.entries = append(h.entries[:0], h.entries[excess:]...)
	}
}

// Entries returns a copy of the history, oldest first.
func (h *History) Entries() []HistoryEntry {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]HistoryEntry(nil), h.entries...)
}

// Len returns the number of stored entries.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.entries)
}

// Clear drops all entries.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.entries = nil
}

package history

import "sync"

// Ledger keeps the most recent live events in memory for snapshots. It is a
// bounded ring: old events fall off once capacity is reached.
type Ledger struct {
	mu     sync.Mutex
	events []LiveEvent
	cap    int
}

// NewLedger creates a ledger keeping up to capacity events (50 when <= 0).
func NewLedger(capacity int) *Ledger {
	if capacity <= 0 {
		capacity = 50
	}
	return &Ledger{events: make([]LiveEvent, 0, capacity), cap: capacity}
}

// Append records an event, evicting the oldest when full.
func (l *Ledger) Append(e LiveEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, e)
	if len(l.events) > l.cap {
		l.events = l.events[len(l.events)-l.cap:]
	}
}

// Recent returns a copy of the most recent n events (all when n <= 0).
func (l *Ledger) Recent(n int) []LiveEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n <= 0 || n > len(l.events) {
		n = len(l.events)
	}
	out := make([]LiveEvent, n)
	copy(out, l.events[len(l.events)-n:])
	return out
}

// Reset drops all recorded events.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.events = l.events[:0]
	l.mu.Unlock()
}

package events

import (
	"sync"
	"time"
)

type Kind string

const (
	MatchCreated   = Kind("matchCreated")
	RoundStarted   = Kind("roundStarted")
	MatchFinished  = Kind("matchFinished")
	MatchAbandoned = Kind("matchAbandoned")
)

// MatchEvent describes one step in a match's lifecycle.
type MatchEvent struct {
	Kind    Kind      `json:"kind"`
	MatchID string    `json:"matchId"`
	Players []string  `json:"players,omitempty"`
	Round   int       `json:"round,omitempty"`
	At      time.Time `json:"at"`
}

type Bus struct {
	mu      sync.RWMutex
	closed  bool
	Matches chan MatchEvent
}

func NewBus() *Bus {
	return &Bus{
		Matches: make(chan MatchEvent, 64),
	}
}

// Publish queues ev without blocking. It reports false when the buffer is
// full, the bus is closed, or b is nil.
func (b *Bus) Publish(ev MatchEvent) bool {
	if b == nil {
		return false
	}
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return false
	}
	select {
	case b.Matches <- ev:
		return true
	default:
		return false
	}
}

// Close stops the bus; consumers ranging over Matches return.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.Matches)
}

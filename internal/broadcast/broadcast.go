// Package broadcast fans match lifecycle events out to feed subscribers.
package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"reactionduel/internal/events"
)

type Message struct {
	Event string
	Data  string
}

type Broadcaster struct {
	Mu      sync.Mutex
	Clients map[chan Message]bool
	done    chan struct{}
}

// NewBroadcaster forwards every event published on bus until the bus is
// closed.
func NewBroadcaster(bus *events.Bus, logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	b := &Broadcaster{
		Clients: make(map[chan Message]bool),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(b.done)
		for ev := range bus.Matches {
			data, err := json.Marshal(ev)
			if err != nil {
				logger.Error("marshal match event", "component", "broadcast", "err", err)
				continue
			}
			b.Broadcast(string(ev.Kind), string(data))
		}
	}()
	return b
}

// Done is closed once the bus has been drained.
func (b *Broadcaster) Done() <-chan struct{} {
	return b.done
}

func (b *Broadcaster) Subscribe() chan Message {
	ch := make(chan Message, 10)
	b.Mu.Lock()
	b.Clients[ch] = true
	b.Mu.Unlock()
	return ch
}

func (b *Broadcaster) Unsubscribe(ch chan Message) {
	b.Mu.Lock()
	delete(b.Clients, ch)
	b.Mu.Unlock()
	close(ch)
}

func (b *Broadcaster) Broadcast(event string, data string) {
	b.Mu.Lock()
	defer b.Mu.Unlock()
	for ch := range b.Clients {
		select {
		case ch <- Message{Event: event, Data: data}:
		default:
			// skip subscribers with full channels
		}
	}
}

// Package queue holds players waiting to be paired.
package queue

import "sync"

type Entry struct {
	ConnID   string
	PlayerID string
	Username string
}

// Waiting is a FIFO of players. Pairs are always taken from the front.
type Waiting struct {
	mu      sync.Mutex
	entries []Entry
}

func NewWaiting() *Waiting {
	return &Waiting{}
}

// Enqueue appends e. It returns false if the connection is already queued.
func (w *Waiting) Enqueue(e Entry) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if containsConn(w.entries, e.ConnID) {
		return false
	}
	w.entries = append(w.entries, e)
	return true
}

// TryPair removes and returns the two oldest entries when at least two are
// waiting.
func (w *Waiting) TryPair() (Entry, Entry, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.entries) < 2 {
		return Entry{}, Entry{}, false
	}
	a, b := w.entries[0], w.entries[1]
	w.entries = append(w.entries[:0:0], w.entries[2:]...)
	return a, b, true
}

// PushFront puts entries back at the head of the queue in the given order,
// skipping connections that are queued already.
func (w *Waiting) PushFront(entries ...Entry) {
	w.mu.Lock()
	defer w.mu.Unlock()
	var front []Entry
	for _, e := range entries {
		if !containsConn(w.entries, e.ConnID) && !containsConn(front, e.ConnID) {
			front = append(front, e)
		}
	}
	w.entries = append(front, w.entries...)
}

func containsConn(entries []Entry, connID string) bool {
	for _, q := range entries {
		if q.ConnID == connID {
			return true
		}
	}
	return false
}

// Remove drops the entry for connID, if any.
func (w *Waiting) Remove(connID string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	for i, q := range w.entries {
		if q.ConnID == connID {
			w.entries = append(w.entries[:i], w.entries[i+1:]...)
			return true
		}
	}
	return false
}

func (w *Waiting) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.entries)
}

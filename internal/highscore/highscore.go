// Package highscore tracks reaction samples and turns them into averaged
// highscores.
package highscore

import (
	"errors"
	"sync"
)

// DefaultThreshold is the number of samples every tracked player needs
// before averages are produced.
const DefaultThreshold = 10

var ErrNoSamples = errors.New("no samples")

// Average returns the arithmetic mean of samples.
func Average(samples []float64) (float64, error) {
	if len(samples) == 0 {
		return 0, ErrNoSamples
	}
	var sum float64
	for _, s := range samples {
		sum += s
	}
	return sum / float64(len(samples)), nil
}

// Samples is the process-wide set of reaction times keyed by player id.
// It is not scoped to a match.
type Samples struct {
	mu        sync.Mutex
	threshold int
	byPlayer  map[string][]float64
	order     []string
}

func NewSamples(threshold int) *Samples {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Samples{
		threshold: threshold,
		byPlayer:  make(map[string][]float64),
	}
}

// Mean is one player's averaged reaction time.
type Mean struct {
	PlayerID string
	Value    float64
}

// Add records a sample for playerID. When every tracked player holds at
// least the threshold number of samples it returns the mean of each, in
// the order players were first seen. Samples are kept afterwards, so every
// later Add returns means again.
func (s *Samples) Add(playerID string, ms float64) []Mean {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byPlayer[playerID]; !ok {
		s.order = append(s.order, playerID)
	}
	s.byPlayer[playerID] = append(s.byPlayer[playerID], ms)

	for _, id := range s.order {
		if len(s.byPlayer[id]) < s.threshold {
			return nil
		}
	}

	means := make([]Mean, 0, len(s.order))
	for _, id := range s.order {
		avg, err := Average(s.byPlayer[id])
		if err != nil {
			continue
		}
		means = append(means, Mean{PlayerID: id, Value: avg})
	}
	return means
}

// Reset drops every player's samples.
func (s *Samples) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byPlayer = make(map[string][]float64)
	s.order = nil
}

// Count returns how many samples playerID holds.
func (s *Samples) Count(playerID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byPlayer[playerID])
}

// Players returns how many players are tracked.
func (s *Samples) Players() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.order)
}

// Package stimulus produces the randomized position and delay of each
// round's virus.
package stimulus

import (
	"math/rand"
	"sync"
	"time"
)

const (
	GridCells = 25
	MinDelay  = 1000 // ms
	MaxDelay  = 10000
)

type Stimulus struct {
	Position int
	Delay    int // ms before the virus appears
}

// Generator draws stimuli from an injectable source so tests can seed it.
type Generator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// New returns a Generator over src. A nil src is seeded from the clock.
func New(src rand.Source) *Generator {
	if src == nil {
		src = rand.NewSource(time.Now().UnixNano())
	}
	return &Generator{rnd: rand.New(src)}
}

// Position returns a grid cell in [0, GridCells).
func (g *Generator) Position() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(GridCells)
}

// Delay returns a delay in [MinDelay, MaxDelay) milliseconds.
func (g *Generator) Delay() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rnd.Intn(MaxDelay-MinDelay) + MinDelay
}

func (g *Generator) Next() Stimulus {
	return Stimulus{Position: g.Position(), Delay: g.Delay()}
}

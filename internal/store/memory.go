package store

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory is an in-process Store. It is the default when no database is
// configured and backs the coordinator tests.
type Memory struct {
	mu         sync.Mutex
	players    map[string]*Player
	games      map[string]*Game
	results    []Result
	highscores []Highscore
	now        func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		players: make(map[string]*Player),
		games:   make(map[string]*Game),
		now:     time.Now,
	}
}

func (m *Memory) FindPlayer(_ context.Context, id string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.players[id]
	if !ok {
		return nil, fmt.Errorf("finding player %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (m *Memory) CreatePlayer(_ context.Context, id, username string) (*Player, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.players[id]; exists {
		return nil, fmt.Errorf("creating player %s: already exists", id)
	}
	p := &Player{ID: id, Username: username, CreatedAt: m.now()}
	m.players[id] = p
	cp := *p
	return &cp, nil
}

func (m *Memory) DeletePlayer(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.players[id]; !ok {
		return fmt.Errorf("deleting player %s: %w", id, ErrNotFound)
	}
	delete(m.players, id)
	return nil
}

func (m *Memory) CreateGame(_ context.Context, playerIDs []string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range playerIDs {
		if _, ok := m.players[id]; !ok {
			return nil, fmt.Errorf("creating game: player %s: %w", id, ErrNotFound)
		}
	}
	g := &Game{
		ID:        uuid.New().String(),
		PlayerIDs: slices.Clone(playerIDs),
		CreatedAt: m.now(),
	}
	m.games[g.ID] = g
	for _, id := range playerIDs {
		m.players[id].GameID = g.ID
	}
	cp := *g
	cp.PlayerIDs = slices.Clone(g.PlayerIDs)
	return &cp, nil
}

func (m *Memory) FindGame(_ context.Context, id string) (*Game, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[id]
	if !ok {
		return nil, fmt.Errorf("finding game %s: %w", id, ErrNotFound)
	}
	cp := *g
	cp.PlayerIDs = slices.Clone(g.PlayerIDs)
	return &cp, nil
}

func (m *Memory) DisconnectPlayer(_ context.Context, gameID, playerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.games[gameID]
	if !ok {
		return fmt.Errorf("disconnecting player from game %s: %w", gameID, ErrNotFound)
	}
	g.PlayerIDs = slices.DeleteFunc(g.PlayerIDs, func(id string) bool { return id == playerID })
	if p, ok := m.players[playerID]; ok && p.GameID == gameID {
		p.GameID = ""
	}
	return nil
}

func (m *Memory) CreateResult(_ context.Context, r Result) (*Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.ID = uuid.New().String()
	r.CreatedAt = m.now()
	m.results = append(m.results, r)
	return &r, nil
}

func (m *Memory) ListResults(_ context.Context) ([]Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Result, len(m.results))
	// newest first; append order breaks ties on equal timestamps
	for i, r := range m.results {
		out[len(m.results)-1-i] = r
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateHighscore(_ context.Context, username string, value float64) (*Highscore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	h := Highscore{
		ID:        uuid.New().String(),
		Username:  username,
		Highscore: value,
		CreatedAt: m.now(),
	}
	m.highscores = append(m.highscores, h)
	return &h, nil
}

func (m *Memory) ListHighscores(_ context.Context) ([]Highscore, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Highscore, len(m.highscores))
	copy(out, m.highscores)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Highscore < out[j].Highscore })
	return out, nil
}

func (m *Memory) Ping(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

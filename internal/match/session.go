package match

import (
	"context"
	"sync"
	"time"

	"reactionduel/internal/queue"
	"reactionduel/internal/stimulus"
)

type Phase string

const (
	PhaseForming     = Phase("forming")
	PhaseCountdown   = Phase("countdown")
	PhaseRoundActive = Phase("roundActive")
	PhaseRoundScored = Phase("roundScored")
	PhaseFinished    = Phase("finished")
	PhaseAbandoned   = Phase("abandoned")
)

// ScoreEntry is one player's running score. Ledger order is the order in
// which players first scored.
type ScoreEntry struct {
	PlayerID string
	Score    int
}

// Session is the in-memory state of one match. Every field is guarded by mu.
type Session struct {
	mu sync.Mutex

	id         string
	players    [2]queue.Entry
	phase      Phase
	round      int
	clicks     int
	active     bool
	ledger     []ScoreEntry
	lastScorer string
	stim       stimulus.Stimulus
	stimAt     time.Time
	createdAt  time.Time
	finishedAt time.Time

	cancel context.CancelFunc
}

func newSession(id string, a, b queue.Entry, now time.Time) *Session {
	return &Session{
		id:        id,
		players:   [2]queue.Entry{a, b},
		phase:     PhaseForming,
		createdAt: now,
	}
}

// Snapshot is a copy of a session's state.
type Snapshot struct {
	MatchID       string
	Players       [2]queue.Entry
	Phase         Phase
	Round         int
	ClicksInRound int
	Active        bool
	Scores        []ScoreEntry
	LastScorer    string
	Stimulus      stimulus.Stimulus
	StimulusAt    time.Time
	CreatedAt     time.Time
	FinishedAt    time.Time
}

func (s *Session) snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	scores := make([]ScoreEntry, len(s.ledger))
	copy(scores, s.ledger)
	return Snapshot{
		MatchID:       s.id,
		Players:       s.players,
		Phase:         s.phase,
		Round:         s.round,
		ClicksInRound: s.clicks,
		Active:        s.active,
		Scores:        scores,
		LastScorer:    s.lastScorer,
		Stimulus:      s.stim,
		StimulusAt:    s.stimAt,
		CreatedAt:     s.createdAt,
		FinishedAt:    s.finishedAt,
	}
}

func (s *Session) username(playerID string) string {
	for _, p := range s.players {
		if p.PlayerID == playerID {
			return p.Username
		}
	}
	return ""
}

func (s *Session) playerFor(connID string) (queue.Entry, bool) {
	for _, p := range s.players {
		if p.ConnID == connID {
			return p, true
		}
	}
	return queue.Entry{}, false
}

// credit adds a point for playerID and returns the new score.
func (s *Session) credit(playerID string) int {
	i := s.entry(playerID)
	s.ledger[i].Score++
	s.lastScorer = playerID
	return s.ledger[i].Score
}

func (s *Session) entry(playerID string) int {
	for i, e := range s.ledger {
		if e.PlayerID == playerID {
			return i
		}
	}
	s.ledger = append(s.ledger, ScoreEntry{PlayerID: playerID})
	return len(s.ledger) - 1
}

// abandon stops the countdown and marks an unfinished session abandoned.
// It reports whether the match was still in play.
func (s *Session) abandon() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.phase == PhaseFinished || s.phase == PhaseAbandoned {
		return false
	}
	s.phase = PhaseAbandoned
	s.active = false
	return true
}

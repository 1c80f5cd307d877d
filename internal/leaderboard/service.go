// Package leaderboard answers the highscore and result queries.
package leaderboard

import (
	"context"
	"fmt"
	"sort"

	"reactionduel/internal/store"
)

// Reader is the slice of the store the leaderboard reads from.
type Reader interface {
	ListResults(ctx context.Context) ([]store.Result, error)
	ListHighscores(ctx context.Context) ([]store.Highscore, error)
}

type Service struct {
	store Reader
}

func NewService(r Reader) *Service {
	return &Service{store: r}
}

// Highscores returns every highscore entry, fastest first.
func (s *Service) Highscores(ctx context.Context) ([]store.Highscore, error) {
	hs, err := s.store.ListHighscores(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing highscores: %w", err)
	}
	return hs, nil
}

// Results returns every match result, newest first.
func (s *Service) Results(ctx context.Context) ([]store.Result, error) {
	rs, err := s.store.ListResults(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	return rs, nil
}

// Ranked returns each username's best highscore, ranked fastest first.
// A limit <= 0 returns every player.
func (s *Service) Ranked(ctx context.Context, limit int) ([]Entry, error) {
	hs, err := s.Highscores(ctx)
	if err != nil {
		return nil, err
	}

	best := make(map[string]float64)
	for _, h := range hs {
		if v, ok := best[h.Username]; !ok || h.Highscore < v {
			best[h.Username] = h.Highscore
		}
	}

	entries := make([]Entry, 0, len(best))
	for name, v := range best {
		entries = append(entries, Entry{Username: name, Value: v})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Value != entries[j].Value {
			return entries[i].Value < entries[j].Value
		}
		return entries[i].Username < entries[j].Username
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// Player summarizes username's recorded results. A stored result pairs each
// name with the opponent's score, so a player's own score is the one in the
// other column.
func (s *Service) Player(ctx context.Context, username string) (*PlayerStats, error) {
	results, err := s.Results(ctx)
	if err != nil {
		return nil, err
	}
	hs, err := s.Highscores(ctx)
	if err != nil {
		return nil, err
	}

	stats := &PlayerStats{Username: username}
	flawless := false
	streakOpen := true

	// Results are newest first, so the streak counts from the front.
	for _, r := range results {
		var mine, theirs int
		switch username {
		case r.Player1:
			mine, theirs = r.Player2Score, r.Player1Score
		case r.Player2:
			mine, theirs = r.Player1Score, r.Player2Score
		default:
			continue
		}
		stats.GamesPlayed++
		stats.TotalScore += mine
		won := mine > theirs
		if won {
			stats.WinCount++
			if theirs == 0 {
				flawless = true
			}
		}
		if streakOpen {
			if won {
				stats.WinStreak++
			} else {
				streakOpen = false
			}
		}
	}

	for _, h := range hs {
		if h.Username != username {
			continue
		}
		if stats.BestMean == 0 || h.Highscore < stats.BestMean {
			stats.BestMean = h.Highscore
		}
	}

	if stats.GamesPlayed == 0 && stats.BestMean == 0 {
		return nil, fmt.Errorf("player %q: %w", username, store.ErrNotFound)
	}

	stats.Badges = EvaluateBadges(*stats, flawless)
	return stats, nil
}

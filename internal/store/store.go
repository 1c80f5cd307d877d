// Package store defines the persistence gateway used by the match
// coordinator and the record queries.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

type Player struct {
	ID        string    `json:"id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	GameID    string    `json:"gameId,omitempty" bson:"gameId,omitempty"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

type Game struct {
	ID        string    `json:"id" bson:"_id"`
	PlayerIDs []string  `json:"playerIds" bson:"playerIds"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Result is the final outcome of one match. It is written once.
type Result struct {
	ID           string    `json:"id" bson:"_id"`
	Player1      string    `json:"player1" bson:"player1"`
	Player2      string    `json:"player2" bson:"player2"`
	Player1Score int       `json:"player1Score" bson:"player1Score"`
	Player2Score int       `json:"player2Score" bson:"player2Score"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// Highscore is a player's mean reaction time in milliseconds. Lower is better.
type Highscore struct {
	ID        string    `json:"id" bson:"_id"`
	Username  string    `json:"username" bson:"username"`
	Highscore float64   `json:"highscore" bson:"highscore"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Store is implemented by every persistence backend.
type Store interface {
	FindPlayer(ctx context.Context, id string) (*Player, error)
	CreatePlayer(ctx context.Context, id, username string) (*Player, error)
	DeletePlayer(ctx context.Context, id string) error

	// CreateGame creates a game and sets GameID on every connected player.
	CreateGame(ctx context.Context, playerIDs []string) (*Game, error)
	FindGame(ctx context.Context, id string) (*Game, error)
	// DisconnectPlayer removes a player from a game's player set.
	DisconnectPlayer(ctx context.Context, gameID, playerID string) error

	CreateResult(ctx context.Context, r Result) (*Result, error)
	// ListResults returns results newest first.
	ListResults(ctx context.Context) ([]Result, error)

	CreateHighscore(ctx context.Context, username string, value float64) (*Highscore, error)
	// ListHighscores returns highscores ordered by value ascending.
	ListHighscores(ctx context.Context) ([]Highscore, error)

	Ping(ctx context.Context) error
	Close() error
}

// FindOrCreatePlayer reuses the player registered under id, creating it
// otherwise.
func FindOrCreatePlayer(ctx context.Context, s Store, id, username string) (*Player, error) {
	p, err := s.FindPlayer(ctx, id)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}
	return s.CreatePlayer(ctx, id, username)
}

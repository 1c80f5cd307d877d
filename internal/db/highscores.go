package db

import (
	"context"
	"fmt"

	"reactionduel/internal/store"
)

func (d *DB) CreateHighscore(ctx context.Context, username string, value float64) (*store.Highscore, error) {
	h := store.Highscore{Username: username, Highscore: value}
	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO highscores (username, highscore)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, username, value).Scan(&h.ID, &h.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating highscore: %w", err)
	}
	return &h, nil
}

func (d *DB) ListHighscores(ctx context.Context) ([]store.Highscore, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, username, highscore, created_at
		FROM highscores
		ORDER BY highscore ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing highscores: %w", err)
	}
	defer rows.Close()

	highscores := []store.Highscore{}
	for rows.Next() {
		var h store.Highscore
		if err := rows.Scan(&h.ID, &h.Username, &h.Highscore, &h.CreatedAt); err != nil {
			return nil, err
		}
		highscores = append(highscores, h)
	}
	return highscores, rows.Err()
}

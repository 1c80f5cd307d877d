package db

import (
	"context"
	"fmt"

	"reactionduel/internal/store"
)

func (d *DB) CreateResult(ctx context.Context, r store.Result) (*store.Result, error) {
	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO results (player1, player2, player1_score, player2_score)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, r.Player1, r.Player2, r.Player1Score, r.Player2Score).Scan(&r.ID, &r.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating result: %w", err)
	}
	return &r, nil
}

func (d *DB) ListResults(ctx context.Context) ([]store.Result, error) {
	rows, err := d.conn.QueryContext(ctx, `
		SELECT id, player1, player2, player1_score, player2_score, created_at
		FROM results
		ORDER BY created_at DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("listing results: %w", err)
	}
	defer rows.Close()

	results := []store.Result{}
	for rows.Next() {
		var r store.Result
		if err := rows.Scan(&r.ID, &r.Player1, &r.Player2, &r.Player1Score, &r.Player2Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reactionduel/internal/store"
)

func (d *DB) CreatePlayer(ctx context.Context, id, username string) (*store.Player, error) {
	p := store.Player{ID: id, Username: username}
	err := d.conn.QueryRowContext(ctx, `
		INSERT INTO players (id, username)
		VALUES ($1, $2)
		RETURNING created_at
	`, id, username).Scan(&p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating player: %w", err)
	}
	return &p, nil
}

func (d *DB) FindPlayer(ctx context.Context, id string) (*store.Player, error) {
	var (
		p      store.Player
		gameID sql.NullString
	)
	err := d.conn.QueryRowContext(ctx, `
		SELECT id, username, game_id, created_at FROM players WHERE id = $1
	`, id).Scan(&p.ID, &p.Username, &gameID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting player %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting player: %w", err)
	}
	p.GameID = gameID.String
	return &p, nil
}

func (d *DB) DeletePlayer(ctx context.Context, id string) error {
	res, err := d.conn.ExecContext(ctx, `DELETE FROM players WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting player: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("deleting player %s: %w", id, store.ErrNotFound)
	}
	return nil
}

package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"reactionduel/internal/store"
)

func (d *DB) CreateGame(ctx context.Context, playerIDs []string) (*store.Game, error) {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	g := store.Game{PlayerIDs: append([]string(nil), playerIDs...)}
	err = tx.QueryRowContext(ctx, `
		INSERT INTO games DEFAULT VALUES
		RETURNING id, created_at
	`).Scan(&g.ID, &g.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("creating game: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		UPDATE players SET game_id = $1 WHERE id = ANY($2)
	`, g.ID, pq.Array(playerIDs))
	if err != nil {
		return nil, fmt.Errorf("connecting players: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && int(n) != len(playerIDs) {
		return nil, fmt.Errorf("connecting players: %w", store.ErrNotFound)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO game_players (game_id, player_id, position)
		VALUES ($1, $2, $3)
	`)
	if err != nil {
		return nil, fmt.Errorf("preparing statement: %w", err)
	}
	defer stmt.Close()

	for i, id := range playerIDs {
		if _, err := stmt.ExecContext(ctx, g.ID, id, i); err != nil {
			return nil, fmt.Errorf("adding game player: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing game: %w", err)
	}
	return &g, nil
}

func (d *DB) FindGame(ctx context.Context, id string) (*store.Game, error) {
	g := store.Game{ID: id}
	err := d.conn.QueryRowContext(ctx, `
		SELECT created_at FROM games WHERE id = $1
	`, id).Scan(&g.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting game %s: %w", id, store.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting game: %w", err)
	}

	rows, err := d.conn.QueryContext(ctx, `
		SELECT player_id FROM game_players WHERE game_id = $1 ORDER BY position
	`, id)
	if err != nil {
		return nil, fmt.Errorf("getting game players: %w", err)
	}
	defer rows.Close()

	g.PlayerIDs = []string{}
	for rows.Next() {
		var pid string
		if err := rows.Scan(&pid); err != nil {
			return nil, err
		}
		g.PlayerIDs = append(g.PlayerIDs, pid)
	}
	return &g, rows.Err()
}

func (d *DB) DisconnectPlayer(ctx context.Context, gameID, playerID string) error {
	tx, err := d.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.QueryRowContext(ctx, `
		SELECT EXISTS (SELECT 1 FROM games WHERE id = $1)
	`, gameID).Scan(&exists); err != nil {
		return fmt.Errorf("checking game: %w", err)
	}
	if !exists {
		return fmt.Errorf("disconnecting player from game %s: %w", gameID, store.ErrNotFound)
	}

	if _, err := tx.ExecContext(ctx, `
		DELETE FROM game_players WHERE game_id = $1 AND player_id = $2
	`, gameID, playerID); err != nil {
		return fmt.Errorf("disconnecting player: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `
		UPDATE players SET game_id = NULL WHERE id = $1 AND game_id = $2
	`, playerID, gameID); err != nil {
		return fmt.Errorf("clearing player game: %w", err)
	}
	return tx.Commit()
}

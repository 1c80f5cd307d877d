// Package cache keeps read-heavy records in Redis in front of a store.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"reactionduel/internal/store"
)

const highscoresKey = "reactionduel:highscores"

// HighscoreStore decorates a store.Store so that highscores are also kept in
// a Redis sorted set scored by the averaged reaction time. The leaderboard
// read is served from the set; the wrapped store stays the source of truth.
type HighscoreStore struct {
	store.Store
	client *redis.Client
	logger *slog.Logger
}

func NewHighscoreStore(inner store.Store, client *redis.Client, logger *slog.Logger) *HighscoreStore {
	return &HighscoreStore{
		Store:  inner,
		client: client,
		logger: logger.With("component", "cache"),
	}
}

func (c *HighscoreStore) CreateHighscore(ctx context.Context, username string, value float64) (*store.Highscore, error) {
	h, err := c.Store.CreateHighscore(ctx, username, value)
	if err != nil {
		return nil, err
	}
	if err := c.add(ctx, *h); err != nil {
		// the next cold read rebuilds the set from the store
		c.logger.Warn("caching highscore failed", "username", username, "err", err)
		c.Invalidate(ctx)
	}
	return h, nil
}

func (c *HighscoreStore) ListHighscores(ctx context.Context) ([]store.Highscore, error) {
	members, err := c.client.ZRange(ctx, highscoresKey, 0, -1).Result()
	if err != nil {
		c.logger.Warn("reading cached highscores failed", "err", err)
		return c.Store.ListHighscores(ctx)
	}
	if len(members) == 0 {
		return c.warm(ctx)
	}

	out := make([]store.Highscore, 0, len(members))
	for _, m := range members {
		var h store.Highscore
		if err := json.Unmarshal([]byte(m), &h); err != nil {
			c.logger.Warn("dropping malformed cached highscore", "err", err)
			continue
		}
		out = append(out, h)
	}
	return out, nil
}

func (c *HighscoreStore) warm(ctx context.Context) ([]store.Highscore, error) {
	hs, err := c.Store.ListHighscores(ctx)
	if err != nil {
		return nil, err
	}
	if len(hs) == 0 {
		return hs, nil
	}

	pipe := c.client.TxPipeline()
	for _, h := range hs {
		data, err := json.Marshal(h)
		if err != nil {
			return hs, nil
		}
		pipe.ZAdd(ctx, highscoresKey, redis.Z{Score: h.Highscore, Member: string(data)})
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Warn("warming highscore cache failed", "err", err)
		c.Invalidate(ctx)
	}
	return hs, nil
}

// add only extends a warm set; a cold set is rebuilt in full on the next read.
func (c *HighscoreStore) add(ctx context.Context, h store.Highscore) error {
	n, err := c.client.Exists(ctx, highscoresKey).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return nil
	}
	data, err := json.Marshal(h)
	if err != nil {
		return fmt.Errorf("encoding highscore: %w", err)
	}
	return c.client.ZAdd(ctx, highscoresKey, redis.Z{Score: h.Highscore, Member: string(data)}).Err()
}

// Invalidate drops the cached set so the next read rebuilds it from the
// wrapped store.
func (c *HighscoreStore) Invalidate(ctx context.Context) error {
	return c.client.Del(ctx, highscoresKey).Err()
}

func (c *HighscoreStore) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("pinging redis: %w", err)
	}
	return c.Store.Ping(ctx)
}

func (c *HighscoreStore) Close() error {
	if err := c.client.Close(); err != nil {
		c.logger.Warn("closing redis client", "err", err)
	}
	return c.Store.Close()
}

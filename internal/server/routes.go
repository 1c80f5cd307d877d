package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"reactionduel/internal/broadcast"
	"reactionduel/internal/cache"
	"reactionduel/internal/config"
	"reactionduel/internal/db"
	"reactionduel/internal/events"
	"reactionduel/internal/leaderboard"
	"reactionduel/internal/match"
	"reactionduel/internal/metrics"
	"reactionduel/internal/mongostore"
	"reactionduel/internal/store"
	"reactionduel/internal/wshub"
)

const shutdownTimeout = 10 * time.Second

func Run() error {
	appCfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: appCfg.Level()}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st := openStore(ctx, appCfg, logger)
	defer func() {
		if err := st.Close(); err != nil {
			logger.Warn("closing store", "err", err)
		}
	}()

	m := metrics.NewManager()
	hub := wshub.NewHub(logger)
	bus := events.NewBus()
	feed := broadcast.NewBroadcaster(bus, logger)

	matchCfg := match.DefaultConfig()
	matchCfg.MaxRounds = appCfg.MaxRounds
	matchCfg.CountdownFrom = appCfg.CountdownFrom
	matchCfg.CountdownTick = appCfg.CountdownTick()
	matchCfg.ScoreCutoffMs = float64(appCfg.ScoreCutoffMS)
	matchCfg.HighscoreSamples = appCfg.HighscoreSamples
	matchCfg.SessionTTL = appCfg.SessionTTL()

	coord := match.New(matchCfg, st, hub,
		match.WithLogger(logger),
		match.WithMetrics(m),
		match.WithBus(bus),
	)

	srv := &Server{
		Hub:     hub,
		Matches: coord,
		Board:   leaderboard.NewService(st),
		Store:   st,
		Feed:    feed,
		Metrics: m,
		Logger:  logger.With("component", "server"),
		Origins: appCfg.Origins(),
	}

	// Cancelling baseCtx ends every websocket read loop; Shutdown does not
	// reach hijacked connections.
	baseCtx, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	httpSrv := &http.Server{
		Addr:              "0.0.0.0:" + appCfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return baseCtx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", "http://localhost:"+appCfg.Port)
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		coord.Close()
		bus.Close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	cancelBase()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err = httpSrv.Shutdown(shutdownCtx)

	coord.Close()
	bus.Close()
	<-feed.Done()
	return err
}

// openStore picks PostgreSQL, then MongoDB, then the in-memory store, and
// fronts highscores with Redis when configured. A backend that cannot be
// reached is logged and skipped.
func openStore(ctx context.Context, cfg config.Config, logger *slog.Logger) store.Store {
	var st store.Store

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			logger.Error("failed to connect to PostgreSQL", "component", "db", "err", err)
		} else {
			if err := database.Migrate(ctx); err != nil {
				logger.Error("migration failed", "component", "db", "err", err)
			}
			st = database
		}
	}

	if st == nil && cfg.MongoURI != "" {
		ms, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase, logger)
		if err != nil {
			logger.Error("failed to connect to MongoDB", "component", "mongo", "err", err)
		} else {
			if err := ms.EnsureIndexes(ctx); err != nil {
				logger.Error("creating indexes failed", "component", "mongo", "err", err)
			}
			st = ms
		}
	}

	if st == nil {
		logger.Info("no database configured, using in-memory store")
		st = store.NewMemory()
	}

	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Error("failed to connect to Redis, highscores uncached", "component", "cache", "err", err)
			client.Close()
		} else {
			st = cache.NewHighscoreStore(st, client, logger)
		}
	}

	return st
}

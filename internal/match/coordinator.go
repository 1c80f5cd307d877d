// Package match pairs waiting players and runs their rounds.
package match

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"reactionduel/internal/events"
	"reactionduel/internal/highscore"
	"reactionduel/internal/metrics"
	"reactionduel/internal/queue"
	"reactionduel/internal/stimulus"
	"reactionduel/internal/store"
)

// ErrClosed is returned by Join once Close has been called.
var ErrClosed = errors.New("match coordinator closed")

type Config struct {
	MaxRounds        int
	CountdownFrom    int
	CountdownTick    time.Duration
	ScoreCutoffMs    float64
	HighscoreSamples int
	SessionTTL       time.Duration
	SweepInterval    time.Duration
	PersistTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		MaxRounds:        10,
		CountdownFrom:    3,
		CountdownTick:    time.Second,
		ScoreCutoffMs:    30000,
		HighscoreSamples: highscore.DefaultThreshold,
		SessionTTL:       30 * time.Minute,
		SweepInterval:    5 * time.Minute,
		PersistTimeout:   5 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxRounds <= 0 {
		c.MaxRounds = d.MaxRounds
	}
	if c.CountdownFrom < 0 {
		c.CountdownFrom = d.CountdownFrom
	}
	if c.CountdownTick <= 0 {
		c.CountdownTick = d.CountdownTick
	}
	if c.ScoreCutoffMs <= 0 {
		c.ScoreCutoffMs = d.ScoreCutoffMs
	}
	if c.HighscoreSamples <= 0 {
		c.HighscoreSamples = d.HighscoreSamples
	}
	if c.SessionTTL <= 0 {
		c.SessionTTL = d.SessionTTL
	}
	if c.SweepInterval <= 0 {
		c.SweepInterval = d.SweepInterval
	}
	if c.PersistTimeout <= 0 {
		c.PersistTimeout = d.PersistTimeout
	}
	return c
}

type Option func(*Coordinator)

func WithLogger(l *slog.Logger) Option {
	return func(c *Coordinator) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func WithBus(b *events.Bus) Option {
	return func(c *Coordinator) { c.bus = b }
}

// WithStimulus replaces the time-seeded stimulus generator.
func WithStimulus(g *stimulus.Generator) Option {
	return func(c *Coordinator) {
		if g != nil {
			c.stim = g
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		if now != nil {
			c.now = now
		}
	}
}

// Coordinator owns the waiting queue, the session store and the reaction
// samples. All of its methods are safe for concurrent use.
type Coordinator struct {
	cfg     Config
	store   store.Store
	emit    Emitter
	stim    *stimulus.Generator
	samples *highscore.Samples
	waiting *queue.Waiting
	metrics *metrics.Manager
	bus     *events.Bus
	logger  *slog.Logger
	now     func() time.Time

	// lobby serializes pairing against disconnects and Close.
	lobby sync.Mutex

	mu          sync.Mutex
	sessions    map[string]*Session
	connToMatch map[string]string

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(cfg Config, st store.Store, emit Emitter, opts ...Option) *Coordinator {
	cfg = cfg.withDefaults()
	ctx, cancel := context.WithCancel(context.Background())
	c := &Coordinator{
		cfg:         cfg,
		store:       st,
		emit:        emit,
		stim:        stimulus.New(nil),
		samples:     highscore.NewSamples(cfg.HighscoreSamples),
		waiting:     queue.NewWaiting(),
		logger:      slog.Default(),
		now:         time.Now,
		sessions:    make(map[string]*Session),
		connToMatch: make(map[string]string),
		ctx:         ctx,
		cancel:      cancel,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "match")

	c.wg.Add(1)
	go c.sweepFinished()
	return c
}

// Join registers the player behind connID and queues them. When a second
// player is waiting the two oldest are paired into a match.
func (c *Coordinator) Join(ctx context.Context, connID, username string) error {
	player, err := store.FindOrCreatePlayer(ctx, c.store, connID, username)
	if err != nil {
		c.metrics.PersistError("find_or_create_player")
		return fmt.Errorf("registering player %s: %w", connID, err)
	}

	c.samples.Reset()

	c.lobby.Lock()
	defer c.lobby.Unlock()
	if c.ctx.Err() != nil {
		return ErrClosed
	}

	entry := queue.Entry{ConnID: connID, PlayerID: player.ID, Username: player.Username}
	if !c.waiting.Enqueue(entry) {
		c.logger.Debug("join ignored, already waiting", "conn", connID)
		return nil
	}

	a, b, ok := c.waiting.TryPair()
	c.metrics.SetWaiting(c.waiting.Len())
	if !ok {
		c.emit.Emit(connID, EventWaitingForPlayer, WaitingNotice{Message: waitingMessage})
		return nil
	}

	game, err := c.store.CreateGame(ctx, []string{a.PlayerID, b.PlayerID})
	if err != nil {
		c.metrics.PersistError("create_game")
		c.waiting.PushFront(a, b)
		c.metrics.SetWaiting(c.waiting.Len())
		for _, p := range []queue.Entry{a, b} {
			c.emit.Emit(p.ConnID, EventWaitingForPlayer, WaitingNotice{Message: waitingMessage})
		}
		return fmt.Errorf("creating game for %s and %s: %w", a.PlayerID, b.PlayerID, err)
	}

	c.startMatch(game.ID, a, b)
	return nil
}

func (c *Coordinator) startMatch(gameID string, a, b queue.Entry) {
	s := newSession(gameID, a, b, c.now())
	cdCtx, cancel := context.WithCancel(c.ctx)
	s.cancel = cancel

	c.mu.Lock()
	for _, p := range s.players {
		if prev, ok := c.connToMatch[p.ConnID]; ok && prev != gameID {
			c.emit.LeaveGroup(p.ConnID, prev)
		}
		c.connToMatch[p.ConnID] = gameID
	}
	c.sessions[gameID] = s
	c.mu.Unlock()

	for _, p := range s.players {
		c.emit.JoinGroup(p.ConnID, gameID)
	}

	s.mu.Lock()
	s.phase = PhaseCountdown
	c.emit.EmitGroup(gameID, EventRoomCreated, RoomCreated{
		GameID: gameID,
		Players: []PlayerInfo{
			{PlayerID: a.PlayerID, Username: a.Username},
			{PlayerID: b.PlayerID, Username: b.Username},
		},
	})
	s.mu.Unlock()

	c.metrics.MatchCreated()
	c.bus.Publish(events.MatchEvent{
		Kind:    events.MatchCreated,
		MatchID: gameID,
		Players: []string{a.Username, b.Username},
		At:      c.now(),
	})
	c.logger.Info("match created", "match", gameID, "player1", a.Username, "player2", b.Username)

	c.wg.Add(1)
	go c.runCountdown(cdCtx, s)
}

// startRound begins the next round. s.mu must be held.
func (c *Coordinator) startRound(s *Session) {
	s.round++
	s.clicks = 0
	s.active = true
	s.phase = PhaseRoundActive
	s.stim = c.stim.Next()
	s.stimAt = c.now()

	c.emit.EmitGroup(s.id, EventVirusLogic, s.stim.Position, s.stim.Delay)

	c.metrics.RoundStarted()
	c.bus.Publish(events.MatchEvent{Kind: events.RoundStarted, MatchID: s.id, Round: s.round, At: s.stimAt})
}

// Click records a reaction from connID. Exactly two clicks complete a round.
func (c *Coordinator) Click(ctx context.Context, connID string, elapsedMs float64) {
	c.mu.Lock()
	matchID, known := c.connToMatch[connID]
	s := c.sessions[matchID]
	c.mu.Unlock()

	if !known {
		return
	}
	c.emit.EmitGroup(matchID, EventOpponentReactionTime, connID, elapsedMs)
	if s == nil {
		return
	}

	var (
		means    []highscore.Mean
		result   *store.Result
		finished bool
	)

	s.mu.Lock()
	player, ok := s.playerFor(connID)
	if !ok || s.phase != PhaseRoundActive {
		s.mu.Unlock()
		return
	}
	c.metrics.Click(elapsedMs)
	means = c.samples.Add(player.PlayerID, elapsedMs)

	s.clicks++
	if s.clicks == 2 {
		s.phase = PhaseRoundScored
		// Only the second click's time is checked against the cutoff.
		if elapsedMs < c.cfg.ScoreCutoffMs {
			result = c.updateScore(s, player.PlayerID)
		}
		s.clicks = 0
		if s.round >= c.cfg.MaxRounds {
			s.round = 0
			s.active = false
			s.phase = PhaseFinished
			s.finishedAt = c.now()
			finished = true
			c.emit.EmitGroup(s.id, EventGameOver)
		} else {
			c.startRound(s)
		}
	}
	s.mu.Unlock()

	ctx, cancel := c.persistContext(ctx)
	defer cancel()

	if len(means) > 0 {
		c.saveHighscores(ctx, means)
	}
	if result != nil {
		if _, err := c.store.CreateResult(ctx, *result); err != nil {
			c.metrics.PersistError("create_result")
			c.logger.Error("saving match result", "match", matchID, "err", err)
		}
	}
	if finished {
		c.metrics.MatchFinished()
		c.bus.Publish(events.MatchEvent{Kind: events.MatchFinished, MatchID: matchID, At: c.now()})
		c.logger.Info("match finished", "match", matchID)
	}
}

// updateScore credits playerID and returns the result to persist when the
// final round was scored. s.mu must be held.
func (c *Coordinator) updateScore(s *Session, playerID string) *store.Result {
	score := s.credit(playerID)
	c.emit.EmitGroup(s.id, EventScoreUpdate, ScoreUpdate{PlayerID: playerID, Score: score})

	if s.round >= c.cfg.MaxRounds {
		return c.finalize(s)
	}
	return nil
}

// finalize builds the match result from the first two ledger entries.
// s.mu must be held.
func (c *Coordinator) finalize(s *Session) *store.Result {
	if len(s.ledger) < 2 {
		c.logger.Warn("finalize skipped, fewer than two scorers", "match", s.id, "scorers", len(s.ledger))
		return nil
	}
	p1, p2 := s.ledger[0], s.ledger[1]
	// Display names are crossed relative to the scores, as results have
	// always been recorded.
	return &store.Result{
		Player1:      s.username(p2.PlayerID),
		Player2:      s.username(p1.PlayerID),
		Player1Score: p1.Score,
		Player2Score: p2.Score,
	}
}

func (c *Coordinator) saveHighscores(ctx context.Context, means []highscore.Mean) {
	for _, m := range means {
		p, err := c.store.FindPlayer(ctx, m.PlayerID)
		if errors.Is(err, store.ErrNotFound) {
			continue
		}
		if err != nil {
			c.metrics.PersistError("find_player")
			c.logger.Error("looking up highscore player", "player", m.PlayerID, "err", err)
			continue
		}
		if _, err := c.store.CreateHighscore(ctx, p.Username, m.Value); err != nil {
			c.metrics.PersistError("create_highscore")
			c.logger.Error("saving highscore", "username", p.Username, "err", err)
			continue
		}
		c.metrics.HighscoreSaved()
	}
}

// Disconnect tears down everything held for connID: its queue slot, its
// match session and countdown, and its player record.
func (c *Coordinator) Disconnect(ctx context.Context, connID string) error {
	c.lobby.Lock()
	if c.waiting.Remove(connID) {
		c.metrics.SetWaiting(c.waiting.Len())
	}

	c.mu.Lock()
	matchID, inMatch := c.connToMatch[connID]
	delete(c.connToMatch, connID)
	s := c.sessions[matchID]
	if s != nil {
		delete(c.sessions, matchID)
	}
	c.mu.Unlock()
	c.lobby.Unlock()

	if s != nil {
		c.metrics.SessionRemoved()
		if s.abandon() {
			c.metrics.MatchAbandoned()
			c.bus.Publish(events.MatchEvent{Kind: events.MatchAbandoned, MatchID: matchID, At: c.now()})
			c.logger.Info("match abandoned", "match", matchID, "conn", connID)
		}
	}
	if inMatch {
		c.emit.LeaveGroup(connID, matchID)
	}

	ctx, cancel := c.persistContext(ctx)
	defer cancel()

	player, err := c.store.FindPlayer(ctx, connID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		c.metrics.PersistError("find_player")
		return fmt.Errorf("looking up player %s: %w", connID, err)
	}

	gameID := player.GameID
	if gameID == "" && inMatch {
		gameID = matchID
	}
	if gameID != "" {
		if err := c.store.DisconnectPlayer(ctx, gameID, player.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			c.metrics.PersistError("disconnect_player")
			c.logger.Error("removing player from game", "game", gameID, "player", player.ID, "err", err)
		}
		c.emit.EmitGroup(gameID, EventPlayerLeft, player.Username)
	}

	if err := c.store.DeletePlayer(ctx, player.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
		c.metrics.PersistError("delete_player")
		c.logger.Error("deleting player", "player", player.ID, "err", err)
	}
	return nil
}

// Session returns a copy of the state of matchID.
func (c *Coordinator) Session(matchID string) (Snapshot, bool) {
	c.mu.Lock()
	s := c.sessions[matchID]
	c.mu.Unlock()
	if s == nil {
		return Snapshot{}, false
	}
	return s.snapshot(), true
}

// MatchOf returns the match connID was last paired into.
func (c *Coordinator) MatchOf(connID string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.connToMatch[connID]
	return id, ok
}

// Waiting returns how many players are queued.
func (c *Coordinator) Waiting() int {
	return c.waiting.Len()
}

// Sessions returns how many match sessions are held.
func (c *Coordinator) Sessions() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

// Close cancels every countdown and the sweeper, then waits for them.
// Later joins fail with ErrClosed.
func (c *Coordinator) Close() {
	c.lobby.Lock()
	c.cancel()
	c.lobby.Unlock()
	c.wg.Wait()
}

func (c *Coordinator) persistContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(context.WithoutCancel(parent), c.cfg.PersistTimeout)
}

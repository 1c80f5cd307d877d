package match

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"testing"
	"time"

	"reactionduel/internal/events"
	"reactionduel/internal/stimulus"
	"reactionduel/internal/store"
)

type emitted struct {
	Target string
	Group  bool
	Event  string
	Args   []any
}

// recorder is an Emitter that keeps every call.
type recorder struct {
	mu     sync.Mutex
	events []emitted
	groups map[string]map[string]bool
}

func newRecorder() *recorder {
	return &recorder{groups: make(map[string]map[string]bool)}
}

func (r *recorder) Emit(connID, event string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{Target: connID, Event: event, Args: args})
}

func (r *recorder) EmitGroup(groupID, event string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, emitted{Target: groupID, Group: true, Event: event, Args: args})
}

func (r *recorder) JoinGroup(connID, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.groups[groupID] == nil {
		r.groups[groupID] = make(map[string]bool)
	}
	r.groups[groupID][connID] = true
}

func (r *recorder) LeaveGroup(connID, groupID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.groups[groupID], connID)
}

func (r *recorder) named(event string) []emitted {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []emitted
	for _, e := range r.events {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

func (r *recorder) count(event string) int {
	return len(r.named(event))
}

func (r *recorder) inGroup(groupID, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.groups[groupID][connID]
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.CountdownTick = time.Millisecond
	return cfg
}

func newTestCoordinator(t *testing.T, cfg Config, opts ...Option) (*Coordinator, *recorder, *store.Memory) {
	t.Helper()
	rec := newRecorder()
	mem := store.NewMemory()
	opts = append([]Option{WithStimulus(stimulus.New(rand.NewSource(1)))}, opts...)
	c := New(cfg, mem, rec, opts...)
	t.Cleanup(c.Close)
	return c, rec, mem
}

// startMatch joins A and B and waits for the first round.
func startMatch(t *testing.T, c *Coordinator, rec *recorder) string {
	t.Helper()
	ctx := context.Background()
	if err := c.Join(ctx, "A", "A"); err != nil {
		t.Fatalf("Join(A) error: %v", err)
	}
	if err := c.Join(ctx, "B", "B"); err != nil {
		t.Fatalf("Join(B) error: %v", err)
	}
	waitFor(t, "first round", func() bool { return rec.count(EventVirusLogic) >= 1 })
	id, ok := c.MatchOf("A")
	if !ok {
		t.Fatal("A has no match")
	}
	return id
}

func TestJoin_FirstPlayerWaits(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())

	if err := c.Join(context.Background(), "A", "alice"); err != nil {
		t.Fatalf("Join() error: %v", err)
	}

	waiting := rec.named(EventWaitingForPlayer)
	if len(waiting) != 1 || waiting[0].Target != "A" || waiting[0].Group {
		t.Fatalf("waitingForPlayer = %+v, want one direct emit to A", waiting)
	}
	if n := waiting[0].Args[0].(WaitingNotice).Message; n != waitingMessage {
		t.Errorf("message = %q, want %q", n, waitingMessage)
	}
	if rec.count(EventRoomCreated) != 0 {
		t.Error("match created with a single player")
	}
	if c.Waiting() != 1 {
		t.Errorf("Waiting() = %d, want 1", c.Waiting())
	}
}

func TestJoin_SecondPlayerCreatesMatch(t *testing.T) {
	c, rec, mem := newTestCoordinator(t, testConfig())
	ctx := context.Background()

	c.Join(ctx, "A", "A")
	c.Join(ctx, "B", "B")

	created := rec.named(EventRoomCreated)
	if len(created) != 1 {
		t.Fatalf("roomCreated emitted %d times, want 1", len(created))
	}
	rc := created[0].Args[0].(RoomCreated)
	if !created[0].Group || created[0].Target != rc.GameID {
		t.Errorf("roomCreated target = %q group=%v, want group %q", created[0].Target, created[0].Group, rc.GameID)
	}
	if len(rc.Players) != 2 || rc.Players[0].Username != "A" || rc.Players[1].Username != "B" {
		t.Errorf("roomCreated players = %+v, want A then B", rc.Players)
	}
	if !rec.inGroup(rc.GameID, "A") || !rec.inGroup(rc.GameID, "B") {
		t.Error("both connections should join the match group")
	}
	if rec.count(EventWaitingForPlayer) != 1 {
		t.Errorf("waitingForPlayer emitted %d times, want 1 (first join only)", rec.count(EventWaitingForPlayer))
	}
	if c.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0", c.Waiting())
	}

	game, err := mem.FindGame(ctx, rc.GameID)
	if err != nil {
		t.Fatalf("FindGame() error: %v", err)
	}
	if len(game.PlayerIDs) != 2 {
		t.Errorf("game players = %v, want 2", game.PlayerIDs)
	}
	p, _ := mem.FindPlayer(ctx, "A")
	if p.GameID != rc.GameID {
		t.Errorf("player A GameID = %q, want %q", p.GameID, rc.GameID)
	}
}

func TestJoin_ReusesPlayerRecord(t *testing.T) {
	c, _, mem := newTestCoordinator(t, testConfig())
	ctx := context.Background()

	c.Join(ctx, "A", "first")
	c.Join(ctx, "A", "second")

	p, err := mem.FindPlayer(ctx, "A")
	if err != nil {
		t.Fatalf("FindPlayer() error: %v", err)
	}
	if p.Username != "first" {
		t.Errorf("Username = %q, want %q (existing record reused)", p.Username, "first")
	}
	if c.Waiting() != 1 {
		t.Errorf("Waiting() = %d, want 1 after duplicate join", c.Waiting())
	}
}

func TestCountdown_Sequence(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	startMatch(t, c, rec)

	var got []int
	for _, e := range rec.named(EventCountdown) {
		got = append(got, e.Args[0].(int))
	}
	want := []int{3, 2, 1, 0}
	if len(got) != len(want) {
		t.Fatalf("countdown = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("countdown[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if rec.count(EventStartGame) != 1 {
		t.Errorf("startGame emitted %d times, want 1", rec.count(EventStartGame))
	}

	rec.mu.Lock()
	order := make([]string, 0, len(rec.events))
	for _, e := range rec.events {
		order = append(order, e.Event)
	}
	rec.mu.Unlock()
	last := order[len(order)-2:]
	if last[0] != EventStartGame || last[1] != EventVirusLogic {
		t.Errorf("events end with %v, want startGame then virusLogic", last)
	}
}

func TestRoundStart_Stimulus(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	id := startMatch(t, c, rec)

	v := rec.named(EventVirusLogic)[0]
	pos, delay := v.Args[0].(int), v.Args[1].(int)
	if pos < 0 || pos >= stimulus.GridCells {
		t.Errorf("position = %d, out of range", pos)
	}
	if delay < stimulus.MinDelay || delay >= stimulus.MaxDelay {
		t.Errorf("delay = %d, out of range", delay)
	}

	snap, ok := c.Session(id)
	if !ok {
		t.Fatal("Session() not found")
	}
	if snap.Round != 1 || !snap.Active || snap.Phase != PhaseRoundActive {
		t.Errorf("session = round %d active %v phase %s, want 1/true/roundActive", snap.Round, snap.Active, snap.Phase)
	}
}

func TestClick_EndToEnd(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	ctx := context.Background()
	id := startMatch(t, c, rec)

	c.Click(ctx, "A", 500)
	if snap, _ := c.Session(id); snap.ClicksInRound != 1 || snap.Round != 1 {
		t.Errorf("after one click: clicks %d round %d, want 1/1", snap.ClicksInRound, snap.Round)
	}
	if rec.count(EventScoreUpdate) != 0 {
		t.Error("score updated after a single click")
	}

	c.Click(ctx, "B", 800)

	scores := rec.named(EventScoreUpdate)
	if len(scores) != 1 {
		t.Fatalf("scoreUpdate emitted %d times, want 1", len(scores))
	}
	su := scores[0].Args[0].(ScoreUpdate)
	if su.PlayerID != "B" || su.Score != 1 {
		t.Errorf("scoreUpdate = %+v, want B/1", su)
	}

	if rec.count(EventOpponentReactionTime) != 2 {
		t.Errorf("opponentReactionTime emitted %d times, want 2", rec.count(EventOpponentReactionTime))
	}
	if rec.count(EventVirusLogic) != 2 {
		t.Errorf("virusLogic emitted %d times, want 2 (round 2 started)", rec.count(EventVirusLogic))
	}
	snap, _ := c.Session(id)
	if snap.Round != 2 || snap.ClicksInRound != 0 {
		t.Errorf("session round %d clicks %d, want 2/0", snap.Round, snap.ClicksInRound)
	}
}

func TestClick_CutoffSkipsScore(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	ctx := context.Background()
	id := startMatch(t, c, rec)

	c.Click(ctx, "A", 500)
	c.Click(ctx, "B", 30000)

	if rec.count(EventScoreUpdate) != 0 {
		t.Error("score updated although the second click hit the cutoff")
	}
	if snap, _ := c.Session(id); snap.Round != 2 {
		t.Errorf("round = %d, want 2 (round still advances)", snap.Round)
	}
}

func TestClick_IgnoredBeforeFirstRound(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountdownTick = time.Hour
	c, rec, _ := newTestCoordinator(t, cfg)
	ctx := context.Background()

	c.Join(ctx, "A", "A")
	c.Join(ctx, "B", "B")
	id, _ := c.MatchOf("A")

	c.Click(ctx, "A", 200)
	c.Click(ctx, "B", 200)

	if rec.count(EventOpponentReactionTime) != 2 {
		t.Errorf("opponentReactionTime emitted %d times, want 2", rec.count(EventOpponentReactionTime))
	}
	snap, _ := c.Session(id)
	if snap.Phase != PhaseCountdown || snap.ClicksInRound != 0 || snap.Round != 0 {
		t.Errorf("session changed during countdown: %+v", snap)
	}
}

func TestClick_UnknownConnection(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	c.Click(context.Background(), "ghost", 100)
	if len(rec.events) != 0 {
		t.Errorf("events emitted for unknown connection: %+v", rec.events)
	}
}

func TestMatch_FinalizesAfterMaxRounds(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRounds = 3
	c, rec, mem := newTestCoordinator(t, cfg)
	ctx := context.Background()
	id := startMatch(t, c, rec)

	// B scores round 1, A round 2, B round 3.
	c.Click(ctx, "A", 400)
	c.Click(ctx, "B", 450)
	c.Click(ctx, "B", 300)
	c.Click(ctx, "A", 350)
	c.Click(ctx, "A", 500)
	c.Click(ctx, "B", 600)

	if rec.count(EventGameOver) != 1 {
		t.Fatalf("gameOver emitted %d times, want 1", rec.count(EventGameOver))
	}
	snap, _ := c.Session(id)
	if snap.Phase != PhaseFinished || snap.Active || snap.Round != 0 {
		t.Errorf("session = %+v, want finished, inactive, round 0", snap)
	}
	if len(snap.Scores) != 2 || snap.Scores[0].PlayerID != "B" || snap.Scores[0].Score != 2 {
		t.Errorf("ledger = %+v, want B:2 first", snap.Scores)
	}

	results, err := mem.ListResults(ctx)
	if err != nil {
		t.Fatalf("ListResults() error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("results = %d, want 1", len(results))
	}
	r := results[0]
	// First ledger entry is B, so its score lands in Player1Score while
	// Player1 carries the other player's name.
	if r.Player1 != "A" || r.Player2 != "B" || r.Player1Score != 2 || r.Player2Score != 1 {
		t.Errorf("result = %+v, want Player1=A Player2=B 2:1", r)
	}
	if rec.count(EventVirusLogic) != 3 {
		t.Errorf("virusLogic emitted %d times, want 3", rec.count(EventVirusLogic))
	}

	c.Click(ctx, "A", 100)
	c.Click(ctx, "B", 100)
	if rec.count(EventVirusLogic) != 3 {
		t.Error("clicks after game over started a new round")
	}
}

func TestMatch_FinalizeNeedsTwoScorers(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRounds = 2
	c, rec, mem := newTestCoordinator(t, cfg)
	ctx := context.Background()
	startMatch(t, c, rec)

	c.Click(ctx, "A", 400)
	c.Click(ctx, "B", 450)
	c.Click(ctx, "A", 400)
	c.Click(ctx, "B", 450)

	if rec.count(EventGameOver) != 1 {
		t.Fatalf("gameOver emitted %d times, want 1", rec.count(EventGameOver))
	}
	results, _ := mem.ListResults(ctx)
	if len(results) != 0 {
		t.Errorf("results = %+v, want none with a single scorer", results)
	}
}

func TestClick_HighscoresAfterTenSamples(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRounds = 20
	c, rec, mem := newTestCoordinator(t, cfg)
	ctx := context.Background()
	startMatch(t, c, rec)

	for i := 1; i <= 10; i++ {
		c.Click(ctx, "A", float64(i*100))
		if i < 10 {
			c.Click(ctx, "B", 300)
		}
	}
	hs, _ := mem.ListHighscores(ctx)
	if len(hs) != 0 {
		t.Fatalf("highscores = %+v before B has ten samples", hs)
	}

	c.Click(ctx, "B", 300)

	hs, err := mem.ListHighscores(ctx)
	if err != nil {
		t.Fatalf("ListHighscores() error: %v", err)
	}
	if len(hs) != 2 {
		t.Fatalf("highscores = %d entries, want 2", len(hs))
	}
	if hs[0].Username != "B" || hs[0].Highscore != 300 {
		t.Errorf("highscores[0] = %+v, want B/300", hs[0])
	}
	if hs[1].Username != "A" || hs[1].Highscore != 550 {
		t.Errorf("highscores[1] = %+v, want A/550", hs[1])
	}
}

func TestDisconnect_WhileWaiting(t *testing.T) {
	c, rec, mem := newTestCoordinator(t, testConfig())
	ctx := context.Background()

	c.Join(ctx, "A", "A")
	if err := c.Disconnect(ctx, "A"); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	if c.Waiting() != 0 {
		t.Errorf("Waiting() = %d, want 0", c.Waiting())
	}
	if rec.count(EventPlayerLeft) != 0 {
		t.Error("playerLeft emitted for a player without a match")
	}
	if _, err := mem.FindPlayer(ctx, "A"); err == nil {
		t.Error("player record should be deleted")
	}

	c.Join(ctx, "B", "B")
	if rec.count(EventRoomCreated) != 0 {
		t.Error("B was paired with a disconnected player")
	}
}

func TestDisconnect_InMatch(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountdownTick = 20 * time.Millisecond
	bus := events.NewBus()
	c, rec, mem := newTestCoordinator(t, cfg, WithBus(bus))
	ctx := context.Background()

	c.Join(ctx, "A", "alice")
	c.Join(ctx, "B", "bob")
	id, _ := c.MatchOf("A")

	if err := c.Disconnect(ctx, "A"); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}

	left := rec.named(EventPlayerLeft)
	if len(left) != 1 {
		t.Fatalf("playerLeft emitted %d times, want 1", len(left))
	}
	if left[0].Target != id || left[0].Args[0] != "alice" {
		t.Errorf("playerLeft = %+v, want alice to group %s", left[0], id)
	}
	if rec.inGroup(id, "A") {
		t.Error("A still in the match group")
	}
	if _, ok := c.Session(id); ok {
		t.Error("session should be removed")
	}

	game, err := mem.FindGame(ctx, id)
	if err != nil {
		t.Fatalf("FindGame() error: %v", err)
	}
	if len(game.PlayerIDs) != 1 || game.PlayerIDs[0] != "B" {
		t.Errorf("game players = %v, want [B]", game.PlayerIDs)
	}
	if _, err := mem.FindPlayer(ctx, "A"); err == nil {
		t.Error("player A should be deleted")
	}

	before := rec.count(EventCountdown)
	time.Sleep(100 * time.Millisecond)
	if after := rec.count(EventCountdown); after != before {
		t.Errorf("countdown kept running after disconnect: %d -> %d", before, after)
	}
	if rec.count(EventStartGame) != 0 {
		t.Error("startGame emitted for an abandoned match")
	}

	var kinds []events.Kind
	for len(bus.Matches) > 0 {
		kinds = append(kinds, (<-bus.Matches).Kind)
	}
	if len(kinds) != 2 || kinds[0] != events.MatchCreated || kinds[1] != events.MatchAbandoned {
		t.Errorf("lifecycle events = %v, want created then abandoned", kinds)
	}
}

func TestDisconnect_UnknownPlayer(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	if err := c.Disconnect(context.Background(), "ghost"); err != nil {
		t.Fatalf("Disconnect() error: %v", err)
	}
	if len(rec.events) != 0 {
		t.Errorf("events emitted for unknown player: %+v", rec.events)
	}
}

func TestRejoinAfterOpponentLeft(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	ctx := context.Background()
	first := startMatch(t, c, rec)

	c.Disconnect(ctx, "A")
	c.Join(ctx, "B", "B")
	c.Join(ctx, "C", "C")

	second, ok := c.MatchOf("B")
	if !ok || second == first {
		t.Fatalf("B match = %q, want a new match", second)
	}
	if rec.inGroup(first, "B") {
		t.Error("B should have left the old match group")
	}
	if !rec.inGroup(second, "C") {
		t.Error("C should be in the new match group")
	}
}

func TestEvictFinished(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRounds = 1
	cfg.SessionTTL = time.Minute
	finishedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c, rec, _ := newTestCoordinator(t, cfg, WithClock(func() time.Time { return finishedAt }))
	ctx := context.Background()
	id := startMatch(t, c, rec)

	c.Click(ctx, "A", 200)
	c.Click(ctx, "B", 200)

	snap, _ := c.Session(id)
	if !snap.FinishedAt.Equal(finishedAt) {
		t.Errorf("FinishedAt = %v, want %v", snap.FinishedAt, finishedAt)
	}
	if n := c.evictFinished(finishedAt.Add(30 * time.Second)); n != 0 {
		t.Errorf("evicted %d fresh sessions, want 0", n)
	}
	if n := c.evictFinished(finishedAt.Add(2 * time.Minute)); n != 1 {
		t.Errorf("evicted %d, want 1", n)
	}
	if _, ok := c.Session(id); ok {
		t.Error("finished session still held after TTL")
	}
	if _, ok := c.MatchOf("A"); ok {
		t.Error("connection still mapped to evicted match")
	}
}

func TestEvictFinished_KeepsActive(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	startMatch(t, c, rec)
	if n := c.evictFinished(time.Now().Add(24 * time.Hour)); n != 0 {
		t.Errorf("evicted %d active sessions, want 0", n)
	}
}

func TestClick_ConcurrentRoundsAdvanceByTwo(t *testing.T) {
	cfg := testConfig()
	cfg.MaxRounds = 1000
	c, rec, _ := newTestCoordinator(t, cfg)
	ctx := context.Background()
	id := startMatch(t, c, rec)

	var wg sync.WaitGroup
	for _, conn := range []string{"A", "B"} {
		wg.Add(1)
		go func(conn string) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				c.Click(ctx, conn, 250)
			}
		}(conn)
	}
	wg.Wait()

	snap, _ := c.Session(id)
	if snap.Round != 51 || snap.ClicksInRound != 0 {
		t.Errorf("round %d clicks %d, want 51/0 after 100 clicks", snap.Round, snap.ClicksInRound)
	}
	total := 0
	for _, e := range snap.Scores {
		total += e.Score
	}
	if total != 50 {
		t.Errorf("total score = %d, want 50", total)
	}
}

func TestClose_StopsCountdowns(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CountdownTick = 10 * time.Millisecond
	rec := newRecorder()
	c := New(cfg, store.NewMemory(), rec)
	ctx := context.Background()

	c.Join(ctx, "A", "A")
	c.Join(ctx, "B", "B")
	c.Close()

	n := rec.count(EventCountdown)
	time.Sleep(50 * time.Millisecond)
	if rec.count(EventCountdown) != n {
		t.Error("countdown emitted after Close")
	}
}

type failingGames struct {
	*store.Memory
	fail bool
}

func (f *failingGames) CreateGame(ctx context.Context, playerIDs []string) (*store.Game, error) {
	if f.fail {
		return nil, errors.New("connection refused")
	}
	return f.Memory.CreateGame(ctx, playerIDs)
}

func TestJoin_CreateGameFailureRequeues(t *testing.T) {
	rec := newRecorder()
	st := &failingGames{Memory: store.NewMemory(), fail: true}
	c := New(testConfig(), st, rec, WithStimulus(stimulus.New(rand.NewSource(1))))
	t.Cleanup(c.Close)
	ctx := context.Background()

	c.Join(ctx, "A", "A")
	if err := c.Join(ctx, "B", "B"); err == nil {
		t.Fatal("Join(B) should report the failed game creation")
	}
	if c.Waiting() != 2 {
		t.Errorf("Waiting() = %d, want 2 after the failed pairing", c.Waiting())
	}
	notices := rec.named(EventWaitingForPlayer)
	if len(notices) != 3 || notices[1].Target != "A" || notices[2].Target != "B" {
		t.Errorf("waitingForPlayer = %+v, want A then both players again", notices)
	}

	st.fail = false
	c.Join(ctx, "C", "C")
	waitFor(t, "retried match", func() bool { return rec.count(EventRoomCreated) == 1 })
	room := rec.named(EventRoomCreated)[0].Args[0].(RoomCreated)
	if room.Players[0].PlayerID != "A" || room.Players[1].PlayerID != "B" {
		t.Errorf("paired %+v, want A and B first", room.Players)
	}
	if c.Waiting() != 1 {
		t.Errorf("Waiting() = %d, want C left waiting", c.Waiting())
	}
}

func TestJoin_AfterClose(t *testing.T) {
	c, rec, _ := newTestCoordinator(t, testConfig())
	ctx := context.Background()

	c.Join(ctx, "A", "A")
	c.Close()

	if err := c.Join(ctx, "B", "B"); !errors.Is(err, ErrClosed) {
		t.Errorf("Join() after Close error = %v, want ErrClosed", err)
	}
	if rec.count(EventRoomCreated) != 0 {
		t.Error("match started after Close")
	}
}

func TestClose_ConcurrentJoins(t *testing.T) {
	c, _, _ := newTestCoordinator(t, testConfig())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			if err := c.Join(ctx, id, id); err != nil && !errors.Is(err, ErrClosed) {
				t.Errorf("Join(%s) error: %v", id, err)
			}
		}(i)
	}
	c.Close()
	wg.Wait()
}

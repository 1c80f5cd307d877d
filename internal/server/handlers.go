package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/coder/websocket"

	"reactionduel/internal/broadcast"
	"reactionduel/internal/leaderboard"
	"reactionduel/internal/match"
	"reactionduel/internal/metrics"
	"reactionduel/internal/store"
	"reactionduel/internal/wshub"
)

// Client-sent event names.
const (
	eventJoin      = "playerJoinRequest"
	eventClick     = "virusClick"
	eventHighscore = "highscore"
	eventResults   = "results"
)

const (
	maxMessageSize   = 512
	defaultRankLimit = 10
)

var _ match.Emitter = (*wshub.Hub)(nil)

type Server struct {
	Hub     *wshub.Hub
	Matches *match.Coordinator
	Board   *leaderboard.Service
	Store   store.Store
	Feed    *broadcast.Broadcaster
	Metrics *metrics.Manager
	Logger  *slog.Logger
	Origins []string
}

func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.Handle("GET /metrics", s.Metrics.Handler())
	mux.HandleFunc("GET /api/highscores", s.handleHighscores)
	mux.HandleFunc("GET /api/results", s.handleResults)
	mux.HandleFunc("GET /api/leaderboard", s.handleLeaderboard)
	mux.HandleFunc("GET /api/players/{username}", s.handlePlayer)
	mux.HandleFunc("GET /api/events", s.handleEvents)
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: s.Origins})
	if err != nil {
		s.Logger.Warn("websocket accept failed", "err", err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	client := wshub.NewClient(conn)
	s.Hub.Register(client)
	s.Metrics.ConnectionOpened()
	go client.WritePump(ctx)

	log := s.Logger.With("conn", client.ConnID)
	log.Debug("client connected")

	defer func() {
		if err := s.Matches.Disconnect(context.WithoutCancel(ctx), client.ConnID); err != nil {
			log.Error("disconnect cleanup failed", "err", err)
		}
		s.Hub.Unregister(client.ConnID)
		s.Metrics.ConnectionClosed()
		conn.Close(websocket.StatusNormalClosure, "")
		log.Debug("client disconnected")
	}()

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway && ctx.Err() == nil {
				log.Debug("read failed", "err", err)
			}
			return
		}

		var msg wshub.ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Debug("malformed frame", "err", err)
			continue
		}
		s.dispatch(ctx, client.ConnID, msg)
	}
}

func (s *Server) dispatch(ctx context.Context, connID string, msg wshub.ClientMessage) {
	log := s.Logger.With("conn", connID, "event", msg.Event)

	switch msg.Event {
	case eventJoin:
		var username string
		if err := json.Unmarshal(msg.Data, &username); err != nil || strings.TrimSpace(username) == "" {
			log.Debug("join without username")
			return
		}
		if err := s.Matches.Join(ctx, connID, strings.TrimSpace(username)); err != nil {
			log.Error("join failed", "err", err)
		}

	case eventClick:
		var click struct {
			ElapsedTime float64 `json:"elapsedTime"`
		}
		if err := json.Unmarshal(msg.Data, &click); err != nil {
			log.Debug("malformed click", "err", err)
			return
		}
		s.Matches.Click(ctx, connID, click.ElapsedTime)

	case eventHighscore:
		if msg.Ack == nil {
			return
		}
		hs, err := s.Board.Highscores(ctx)
		if err != nil {
			s.Metrics.PersistError("list_highscores")
			log.Error("highscore request failed", "err", err)
			return
		}
		s.Hub.Reply(connID, *msg.Ack, hs)

	case eventResults:
		if msg.Ack == nil {
			return
		}
		rs, err := s.Board.Results(ctx)
		if err != nil {
			s.Metrics.PersistError("list_results")
			log.Error("results request failed", "err", err)
			return
		}
		s.Hub.Reply(connID, *msg.Ack, rs)

	default:
		log.Debug("unknown event")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.Store.Ping(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "db_error", "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"clients":  s.Hub.Len(),
		"waiting":  s.Matches.Waiting(),
		"sessions": s.Matches.Sessions(),
	})
}

func (s *Server) handleHighscores(w http.ResponseWriter, r *http.Request) {
	hs, err := s.Board.Highscores(r.Context())
	if err != nil {
		s.serverError(w, "list_highscores", err)
		return
	}
	writeJSON(w, http.StatusOK, hs)
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	rs, err := s.Board.Results(r.Context())
	if err != nil {
		s.serverError(w, "list_results", err)
		return
	}
	writeJSON(w, http.StatusOK, rs)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := defaultRankLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = n
	}
	entries, err := s.Board.Ranked(r.Context(), limit)
	if err != nil {
		s.serverError(w, "list_highscores", err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) handlePlayer(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	stats, err := s.Board.Player(r.Context(), username)
	if errors.Is(err, store.ErrNotFound) {
		http.Error(w, "Player not found", http.StatusNotFound)
		return
	}
	if err != nil {
		s.serverError(w, "player_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// handleEvents streams match lifecycle events as server-sent events.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	msgChan := s.Feed.Subscribe()
	defer s.Feed.Unsubscribe(msgChan)

	for {
		select {
		case <-r.Context().Done():
			return
		case msg := <-msgChan:
			fmt.Fprintf(w, "event: %s\n", msg.Event)
			fmt.Fprintf(w, "data: %s\n\n", msg.Data)
			flusher.Flush()
		}
	}
}

func (s *Server) serverError(w http.ResponseWriter, op string, err error) {
	s.Metrics.PersistError(op)
	s.Logger.Error("request failed", "op", op, "err", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "component", "server", "err", err)
	}
}

package wshub

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
)

const (
	sendBuffer = 64
	pingPeriod = 30 * time.Second
	writeWait  = 10 * time.Second
)

// ClientMessage is the JSON structure received from clients. Ack is set when
// the client expects a reply.
type ClientMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
	Ack   *int64          `json:"ack,omitempty"`
}

// ServerMessage is the JSON structure sent to clients. A reply carries Ack
// and no Event.
type ServerMessage struct {
	Event string `json:"event,omitempty"`
	Ack   *int64 `json:"ack,omitempty"`
	Args  []any  `json:"args"`
}

// Client represents a single WebSocket connection in the hub.
type Client struct {
	ConnID string
	Conn   *websocket.Conn
	Send   chan []byte
}

// NewClient wraps conn under a fresh connection id.
func NewClient(conn *websocket.Conn) *Client {
	return &Client{
		ConnID: uuid.NewString(),
		Conn:   conn,
		Send:   make(chan []byte, sendBuffer),
	}
}

// WritePump reads from the Send channel and writes to the WebSocket
// connection, pinging the peer while idle.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.Send:
			if !ok {
				return
			}
			wctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.Conn.Write(wctx, websocket.MessageText, msg)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pctx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.Conn.Ping(pctx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Hub tracks connected clients and the named groups they belong to.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	groups  map[string]map[string]struct{}
	logger  *slog.Logger
}

// NewHub creates a new Hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		clients: make(map[string]*Client),
		groups:  make(map[string]map[string]struct{}),
		logger:  logger.With("component", "wshub"),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c.ConnID] = c
}

// Unregister removes a client from the hub and every group, then closes its
// Send channel.
func (h *Hub) Unregister(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	c, ok := h.clients[connID]
	if !ok {
		return
	}
	close(c.Send)
	delete(h.clients, connID)
	for id, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, id)
		}
	}
}

func (h *Hub) JoinGroup(connID, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[connID]; !ok {
		return
	}
	members, ok := h.groups[groupID]
	if !ok {
		members = make(map[string]struct{})
		h.groups[groupID] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) LeaveGroup(connID, groupID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[groupID]
	if !ok {
		return
	}
	delete(members, connID)
	if len(members) == 0 {
		delete(h.groups, groupID)
	}
}

// Emit sends an event to one connection.
func (h *Hub) Emit(connID, event string, args ...any) {
	data, ok := h.encode(ServerMessage{Event: event, Args: normalize(args)})
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.send(c, data)
	}
}

// EmitGroup sends an event to every member of groupID.
func (h *Hub) EmitGroup(groupID, event string, args ...any) {
	data, ok := h.encode(ServerMessage{Event: event, Args: normalize(args)})
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for connID := range h.groups[groupID] {
		if c, ok := h.clients[connID]; ok {
			h.send(c, data)
		}
	}
}

// Reply answers the client request numbered ack.
func (h *Hub) Reply(connID string, ack int64, args ...any) {
	data, ok := h.encode(ServerMessage{Ack: &ack, Args: normalize(args)})
	if !ok {
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if c, ok := h.clients[connID]; ok {
		h.send(c, data)
	}
}

// Len returns the number of connected clients.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// GroupSize returns the number of members in groupID.
func (h *Hub) GroupSize(groupID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[groupID])
}

func (h *Hub) encode(msg ServerMessage) ([]byte, bool) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("marshal error", "event", msg.Event, "err", err)
		return nil, false
	}
	return data, true
}

// send is non-blocking: the message is dropped if the channel is full.
func (h *Hub) send(c *Client, data []byte) {
	select {
	case c.Send <- data:
	default:
		h.logger.Warn("send buffer full, dropping message", "conn", c.ConnID)
	}
}

func normalize(args []any) []any {
	if args == nil {
		return []any{}
	}
	return args
}

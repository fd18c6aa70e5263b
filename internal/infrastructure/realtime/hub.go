// Package realtime carries the order chat over websockets. A Hub owns the
// order rooms; each Client is one upgraded connection with its own writer
// goroutine draining a buffered send queue.
package realtime

import (
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/boostly/boosting-marketplace/internal/api/metrics"
	"github.com/boostly/boosting-marketplace/internal/core/domain"
	"github.com/boostly/boosting-marketplace/internal/core/ports"
)

// Config holds the connection tuning knobs.
type Config struct {
	WriteWait      time.Duration
	PongWait       time.Duration
	MaxMessageSize int64
	SendBuffer     int
	// AllowedOrigins lists accepted Origin headers. "*" accepts any origin;
	// an empty list applies the same-origin check.
	AllowedOrigins []string
}

func (c Config) withDefaults() Config {
	if c.WriteWait <= 0 {
		c.WriteWait = 10 * time.Second
	}
	if c.PongWait <= 0 {
		c.PongWait = 60 * time.Second
	}
	if c.MaxMessageSize <= 0 {
		c.MaxMessageSize = 16 << 10
	}
	if c.SendBuffer <= 0 {
		c.SendBuffer = 64
	}
	return c
}

func (c Config) pingPeriod() time.Duration {
	return c.PongWait * 9 / 10
}

// member is a room member that can receive frames.
type member interface {
	ports.RoomMember
	enqueue(frame []byte) bool
	close()
}

// Hub implements ports.Broadcaster.
type Hub struct {
	cfg      Config
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.RWMutex
	rooms   map[string]map[string]member
	clients map[string]member
	closed  bool
}

var _ ports.Broadcaster = (*Hub)(nil)

func NewHub(cfg Config, log zerolog.Logger) *Hub {
	cfg = cfg.withDefaults()
	h := &Hub{
		cfg:     cfg,
		log:     log,
		rooms:   make(map[string]map[string]member),
		clients: make(map[string]member),
	}
	h.upgrader = websocket.Upgrader{
		HandshakeTimeout: 10 * time.Second,
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
	}
	if len(cfg.AllowedOrigins) > 0 {
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || slices.Contains(cfg.AllowedOrigins, "*") || slices.Contains(cfg.AllowedOrigins, origin)
		}
	}
	return h
}

// ServeWS upgrades the request and serves the connection for principal
// until it closes. The upgrader has already written an HTTP error when it
// returns one.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request, p domain.Principal, chat ports.ChatService) error {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := newClient(h, conn, p, chat)
	if !h.register(c) {
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(h.cfg.WriteWait))
		conn.Close()
		return nil
	}
	c.serve(r.Context())
	return nil
}

func (h *Hub) register(m member) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[m.ID()] = m
	metrics.RealtimeConnections.Inc()
	return true
}

func (h *Hub) Join(orderID string, m ports.RoomMember) {
	mem, ok := m.(member)
	if !ok {
		h.log.Warn().Str("conn_id", m.ID()).Msg("room member cannot receive frames, ignoring join")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[orderID]
	if !ok {
		room = make(map[string]member)
		h.rooms[orderID] = room
	}
	room[m.ID()] = mem
}

func (h *Hub) Leave(orderID string, m ports.RoomMember) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leaveLocked(orderID, m.ID())
}

func (h *Hub) leaveLocked(orderID, connID string) {
	room, ok := h.rooms[orderID]
	if !ok {
		return
	}
	delete(room, connID)
	if len(room) == 0 {
		delete(h.rooms, orderID)
	}
}

// Disconnect removes m from every room and from the connection registry.
func (h *Hub) Disconnect(m ports.RoomMember) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for orderID := range h.rooms {
		h.leaveLocked(orderID, m.ID())
	}
	if _, ok := h.clients[m.ID()]; ok {
		delete(h.clients, m.ID())
		metrics.RealtimeConnections.Dec()
	}
}

func (h *Hub) BroadcastMessage(orderID string, msg *domain.Message) {
	h.broadcast(orderID, EventReceiveMessage, encode(messageFrame{Event: EventReceiveMessage, Message: msg}))
}

func (h *Hub) BroadcastOrder(orderID string, o *domain.Order) {
	h.broadcast(orderID, EventOrderStatus, encode(orderFrame{Event: EventOrderStatus, Order: o}))
}

// Evict removes every connection of principalID from the room and tells
// each of them it has left.
func (h *Hub) Evict(orderID, principalID string) {
	frame := encode(roomFrame{Event: EventLeft, OrderID: orderID})

	h.mu.Lock()
	var evicted []member
	for id, m := range h.rooms[orderID] {
		if m.PrincipalID() == principalID {
			evicted = append(evicted, m)
			h.leaveLocked(orderID, id)
		}
	}
	h.mu.Unlock()

	for _, m := range evicted {
		h.deliver(m, frame)
	}
	if len(evicted) > 0 {
		h.log.Debug().Str("order_id", orderID).Str("principal_id", principalID).Int("connections", len(evicted)).Msg("evicted from order room")
	}
}

// broadcast never blocks: a member whose queue is full is closed rather than
// allowed to miss a frame and see the room out of order.
func (h *Hub) broadcast(orderID, event string, frame []byte) {
	h.mu.RLock()
	targets := make([]member, 0, len(h.rooms[orderID]))
	for _, m := range h.rooms[orderID] {
		targets = append(targets, m)
	}
	h.mu.RUnlock()

	for _, m := range targets {
		if h.deliver(m, frame) {
			metrics.ChatFramesTotal.WithLabelValues(event).Inc()
		}
	}
}

func (h *Hub) deliver(m member, frame []byte) bool {
	if m.enqueue(frame) {
		return true
	}
	h.log.Warn().Str("conn_id", m.ID()).Str("principal_id", m.PrincipalID()).Msg("dropping slow websocket consumer")
	metrics.RealtimeDroppedTotal.Inc()
	m.close()
	h.Disconnect(m)
	return false
}

// RoomSize reports the number of connections in the room of orderID.
func (h *Hub) RoomSize(orderID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[orderID])
}

// Shutdown closes every connection and rejects new ones.
func (h *Hub) Shutdown() {
	h.mu.Lock()
	h.closed = true
	clients := make([]member, 0, len(h.clients))
	for _, m := range h.clients {
		clients = append(clients, m)
	}
	h.mu.Unlock()

	for _, m := range clients {
		m.close()
	}
	h.log.Info().Int("connections", len(clients)).Msg("realtime hub shut down")
}

package notifier

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/angelmondragon/bundlehub-backend/pkg/logger"
)

const (
	clientBuffer    = 64
	broadcastBuffer = 256
	writeWait       = 10 * time.Second
	pongWait        = 60 * time.Second
	pingPeriod      = 30 * time.Second
	maxMessageSize  = 4 * 1024
)

var (
	// ErrHubBusy is returned when the broadcast buffer is full and the event was dropped.
	ErrHubBusy = errors.New("broadcast buffer full")

	normalCloseCodes = []int{
		websocket.CloseNormalClosure,
		websocket.CloseGoingAway,
		websocket.CloseNoStatusReceived,
	}
)

// subscription narrows the events a dashboard receives. Empty means all.
type subscription struct {
	Events []EventName `json:"events"`
}

func (s subscription) wants(name EventName) bool {
	if len(s.Events) == 0 {
		return true
	}
	for _, e := range s.Events {
		if e == name {
			return true
		}
	}
	return false
}

type client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	mu   sync.RWMutex
	sub  subscription
}

type envelope struct {
	name    EventName
	payload []byte
}

// Hub fans events out to connected websocket dashboards.
type Hub struct {
	clients    map[*client]struct{}
	broadcast  chan envelope
	register   chan *client
	unregister chan *client
	mu         sync.RWMutex
	done       chan struct{}
	maxClients int
	upgrader   websocket.Upgrader
	logg       *logger.Logger

	totalEvents  atomic.Int64
	droppedSlow  atomic.Int64
	totalClients atomic.Int64
}

func NewHub(maxClients int, logg *logger.Logger) *Hub {
	if maxClients <= 0 {
		maxClients = 1000
	}
	return &Hub{
		clients:    make(map[*client]struct{}),
		broadcast:  make(chan envelope, broadcastBuffer),
		register:   make(chan *client),
		unregister: make(chan *client),
		done:       make(chan struct{}),
		maxClients: maxClients,
		logg:       logg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

func (h *Hub) Name() string { return "websocket" }

// Send queues the event for broadcast without blocking.
func (h *Hub) Send(_ context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	select {
	case h.broadcast <- envelope{name: event.Type, payload: payload}:
		return nil
	default:
		return ErrHubBusy
	}
}

// Run owns the client set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)
	h.logg.Info(ctx, "websocket hub started")

	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for c := range h.clients {
				close(c.send)
				delete(h.clients, c)
			}
			h.mu.Unlock()
			h.logg.Info(ctx, "websocket hub stopped")
			return

		case c := <-h.register:
			h.mu.Lock()
			h.clients[c] = struct{}{}
			n := len(h.clients)
			h.mu.Unlock()
			h.totalClients.Add(1)
			h.logg.Debug(h.logg.WithField(ctx, "clients", n), "dashboard connected")

		case c := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case env := <-h.broadcast:
			h.totalEvents.Add(1)
			h.fanOut(env)
		}
	}
}

func (h *Hub) fanOut(env envelope) {
	var slow []*client
	h.mu.RLock()
	for c := range h.clients {
		c.mu.RLock()
		wants := c.sub.wants(env.name)
		c.mu.RUnlock()
		if !wants {
			continue
		}
		select {
		case c.send <- env.payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	if len(slow) == 0 {
		return
	}
	h.mu.Lock()
	for _, c := range slow {
		if _, ok := h.clients[c]; ok {
			close(c.send)
			delete(h.clients, c)
			h.droppedSlow.Add(1)
		}
	}
	h.mu.Unlock()
}

// ClientCount returns the number of connected dashboards.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats reports hub counters.
func (h *Hub) Stats() map[string]int64 {
	return map[string]int64{
		"connectedClients": int64(h.ClientCount()),
		"totalEvents":      h.totalEvents.Load(),
		"totalClients":     h.totalClients.Load(),
		"droppedSlow":      h.droppedSlow.Load(),
	}
}

// ServeHTTP upgrades the request to a websocket and streams events.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	default:
	}
	if h.ClientCount() >= h.maxClients {
		http.Error(w, "too many connections", http.StatusServiceUnavailable)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logg.Warn(h.logg.WithField(r.Context(), "error", err.Error()), "websocket upgrade failed")
		return
	}

	c := &client{hub: h, conn: conn, send: make(chan []byte, clientBuffer)}
	select {
	case h.register <- c:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go c.writePump()
	go c.readPump()
}

// readPump accepts subscription updates and keeps the read deadline alive.
func (c *client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, normalCloseCodes...) {
				c.hub.logg.Debug(c.hub.logg.WithField(context.Background(), "error", err.Error()), "websocket read ended")
			}
			return
		}
		var sub subscription
		if err := json.Unmarshal(message, &sub); err == nil {
			c.mu.Lock()
			c.sub = sub
			c.mu.Unlock()
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

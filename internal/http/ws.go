package http

import (
	"context"
	"encoding/json"
	"log/slog"
	nethttp "net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"go-co2-emissions-dashboard/internal/emissions"
	"go-co2-emissions-dashboard/internal/logging"
	"go-co2-emissions-dashboard/internal/views"
)

const (
	wsWriteWait      = 10 * time.Second
	wsPongWait       = 60 * time.Second
	wsPingPeriod     = (wsPongWait * 9) / 10
	wsMaxMessageSize = 4096
	wsSendBuffer     = 16
	wsUpdateTimeout  = 15 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *nethttp.Request) bool {
		return true
	},
}

// wsRequest is a control-panel change sent by the browser. Year may be a
// number or a numeric string.
type wsRequest struct {
	Year   json.Number `json:"year"`
	Metric string      `json:"metric"`
}

type wsMessage struct {
	Type  string        `json:"type"`
	Data  *views.Update `json:"data,omitempty"`
	Error string        `json:"error,omitempty"`
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan []byte
}

// Hub pushes dashboard updates to websocket clients.
type Hub struct {
	sel    selector
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

func newHub(sel selector) *Hub {
	return &Hub{
		sel:     sel,
		logger:  logging.Component("ws"),
		clients: make(map[*wsClient]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the connection and serves one client until it disconnects.
func (h *Hub) ServeHTTP(w nethttp.ResponseWriter, r *nethttp.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	c := &wsClient{id: uuid.NewString(), conn: conn, send: make(chan []byte, wsSendBuffer)}
	h.register(c)

	go h.writeLoop(c)
	h.readLoop(r.Context(), c)
}

// Reloaded tells every client to request fresh figures.
func (h *Hub) Reloaded(*emissions.Table) {
	h.broadcast(wsMessage{Type: "reloaded"})
}

func (h *Hub) register(c *wsClient) {
	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	atomic.AddInt64(&wsClients, 1)
	h.logger.Debug("websocket client connected", "session", c.id)
}

func (h *Hub) unregister(c *wsClient) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if ok {
		atomic.AddInt64(&wsClients, -1)
		h.logger.Debug("websocket client disconnected", "session", c.id)
	}
}

func (h *Hub) broadcast(msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode broadcast", "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- data:
		default:
			h.logger.Warn("websocket client too slow, dropping message", "session", c.id)
		}
	}
}

func (h *Hub) readLoop(ctx context.Context, c *wsClient) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(wsMaxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("websocket read failed", "session", c.id, "error", err)
			}
			return
		}
		h.send(c, h.handle(ctx, raw))
	}
}

// handle turns one client message into the reply.
func (h *Hub) handle(ctx context.Context, raw []byte) wsMessage {
	var req wsRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return wsMessage{Type: "error", Error: "invalid message: expected {\"year\":..., \"metric\":...}"}
	}
	sel, err := views.ParseSelection(req.Year.String(), req.Metric, h.sel.Default())
	if err != nil {
		return wsMessage{Type: "error", Error: err.Error()}
	}

	ctx, cancel := context.WithTimeout(ctx, wsUpdateTimeout)
	defer cancel()
	u, err := h.sel.dash.Update(ctx, sel)
	if err != nil {
		return wsMessage{Type: "error", Error: err.Error()}
	}
	return wsMessage{Type: "update", Data: u}
}

func (h *Hub) send(c *wsClient, msg wsMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error("encode message", "session", c.id, "error", err)
		return
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	if _, ok := h.clients[c]; !ok {
		return
	}
	select {
	case c.send <- data:
	default:
		h.logger.Warn("websocket client too slow, dropping message", "session", c.id)
	}
}

func (h *Hub) writeLoop(c *wsClient) {
	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

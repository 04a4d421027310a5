package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/verimeet/verimeet/pkg/events"
	"github.com/verimeet/verimeet/pkg/logging"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Dashboards connect from other origins; the stream is read-only.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Hub broadcasts meeting events to connected WebSocket clients. It
// implements events.Publisher so the pipeline publishes once and every
// dashboard sees it.
type Hub struct {
	log logging.Logger

	mu      sync.Mutex
	clients map[*client]struct{}
	closed  bool
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates a WebSocket hub.
func NewHub(log logging.Logger) *Hub {
	if log == nil {
		log = logging.NewNopLogger()
	}
	return &Hub{
		log:     log,
		clients: make(map[*client]struct{}),
	}
}

// Publish broadcasts an event to all connected clients. Slow clients are
// disconnected rather than allowed to stall the broadcast.
func (h *Hub) Publish(event events.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("marshal event for broadcast", logging.Err(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.dropLocked(c)
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects all clients.
func (h *Hub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
	return nil
}

func (h *Hub) dropLocked(c *client) {
	delete(h.clients, c)
	close(c.send)
}

// ServeWS upgrades the request to a WebSocket connection and streams
// events until the client disconnects.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", logging.Err(err))
		return
	}

	c := &client{conn: conn, send: make(chan []byte, 64)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	count := len(h.clients)
	h.mu.Unlock()

	h.log.Info("websocket client connected", logging.F("clients", count))

	// Connection confirmation, matching the event envelope.
	welcome, _ := json.Marshal(events.New(events.TypeStatus, "", map[string]string{
		"status":  "connected",
		"message": "Connected to VeriMeet",
	}))
	select {
	case c.send <- welcome:
	default:
	}

	go h.writeLoop(c)
	h.readLoop(c)
}

func (h *Hub) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readLoop drains inbound frames; clients only listen, but reading is
// required to process control frames and detect disconnects.
func (h *Hub) readLoop(c *client) {
	defer func() {
		h.mu.Lock()
		if _, ok := h.clients[c]; ok {
			h.dropLocked(c)
		}
		remaining := len(h.clients)
		h.mu.Unlock()
		c.conn.Close()
		h.log.Info("websocket client disconnected", logging.F("clients", remaining))
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

var _ events.Publisher = (*Hub)(nil)

package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/ayusman/nayana/internal/control"
	"github.com/ayusman/nayana/internal/cursor"
	"github.com/ayusman/nayana/internal/pose"
)

// Frame is the per-frame telemetry message.
type Frame struct {
	Timestamp  int64           `json:"timestamp"`
	Seq        int64           `json:"seq"`
	Raw        pose.Angles     `json:"raw"`
	Calibrated pose.Angles     `json:"calibrated"`
	Cursor     cursor.Position `json:"cursor"`
	Enabled    bool            `json:"enabled"`
}

// Status is the snapshot served by GET /api/status.
type Status struct {
	Running       bool             `json:"running"`
	Enabled       bool             `json:"enabled"`
	SessionID     string           `json:"session_id,omitempty"`
	User          string           `json:"user,omitempty"`
	ScreenWidth   int              `json:"screen_width"`
	ScreenHeight  int              `json:"screen_height"`
	Offset        control.Offset   `json:"offset"`
	Raw           *pose.Angles     `json:"raw,omitempty"`
	Cursor        *cursor.Position `json:"cursor,omitempty"`
	Frames        int64            `json:"frames"`
	PoseFrames    int64            `json:"pose_frames"`
	SkippedFrames int64            `json:"skipped_frames"`
}

const (
	clientBuffer = 32
	writeWait    = time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow local connections
	},
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub broadcasts telemetry frames to websocket clients. Slow clients drop
// frames instead of stalling the publisher.
type Hub struct {
	clients map[*client]bool
	mu      sync.RWMutex
	closed  bool
	logger  logrus.FieldLogger
}

// NewHub creates an empty hub.
func NewHub(logger logrus.FieldLogger) *Hub {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Hub{
		clients: make(map[*client]bool),
		logger:  logger.WithField("component", "telemetry"),
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("websocket upgrade failed")
		return
	}

	c := &client{conn: conn, send: make(chan []byte, clientBuffer)}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients[c] = true
	h.mu.Unlock()

	go h.writePump(c)

	// Keep connection alive by reading messages
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writePump(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			h.remove(c)
			return
		}
	}
	c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[c] {
		delete(h.clients, c)
		close(c.send)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Publish sends the frame to every client without blocking.
func (h *Hub) Publish(f Frame) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.clients) == 0 {
		return
	}

	msg, err := json.Marshal(f)
	if err != nil {
		h.logger.WithError(err).Error("failed to encode telemetry frame")
		return
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
		}
	}
}

// Close disconnects every client and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

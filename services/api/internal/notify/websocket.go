package notify

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/jinxlo/RifasCAIv2/services/api/internal/domain"
)

// WebSocketHub streams engine events to connected clients as JSON. Slow
// clients are disconnected instead of backing up the broadcast; a client that
// misses events is expected to refresh full state on reconnect.
type WebSocketHub struct {
	upgrader websocket.Upgrader
	log      zerolog.Logger

	mu      sync.Mutex
	clients map[*wsClient]struct{}
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

const (
	wsSendBuffer   = 16
	wsWriteTimeout = 10 * time.Second
)

func NewWebSocketHub(log zerolog.Logger) *WebSocketHub {
	return &WebSocketHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Cross-origin policy is enforced by the CORS layer.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		log:     log,
		clients: make(map[*wsClient]struct{}),
	}
}

// ServeHTTP upgrades the request and keeps the connection subscribed until
// either side closes it.
func (h *WebSocketHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Debug().Err(err).Msg("websocket: upgrade")
		return
	}

	c := &wsClient{
		conn: conn,
		send: make(chan []byte, wsSendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.clients[c] = struct{}{}
	h.mu.Unlock()

	go h.writePump(c)
	h.readPump(c)
}

// HandleEvent implements the event bus handler contract.
func (h *WebSocketHub) HandleEvent(evt domain.Event) {
	payload, err := json.Marshal(evt)
	if err != nil {
		h.log.Error().Err(err).Msg("websocket: marshal event")
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
			h.dropLocked(c)
			h.log.Warn().Msg("websocket: dropping slow client")
		}
	}
}

// Close disconnects every client.
func (h *WebSocketHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		h.dropLocked(c)
	}
}

func (h *WebSocketHub) writePump(c *wsClient) {
	for payload := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			h.remove(c)
			return
		}
	}
	_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
	_ = c.conn.Close()
}

func (h *WebSocketHub) readPump(c *wsClient) {
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			h.remove(c)
			return
		}
	}
}

func (h *WebSocketHub) remove(c *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.dropLocked(c)
}

func (h *WebSocketHub) dropLocked(c *wsClient) {
	if _, ok := h.clients[c]; !ok {
		return
	}
	delete(h.clients, c)
	close(c.send)
	_ = c.conn.Close()
}

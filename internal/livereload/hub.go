// Package livereload pushes reload notices to connected browsers over a
// WebSocket.
package livereload

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/conneroisu/binserve/internal/logging"
)

const (
	// Path is where browsers connect.
	Path = "/__binserve/livereload"
	// ScriptPath serves the client script.
	ScriptPath = "/__binserve/livereload.js"

	writeWait      = 10 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 512
	sendBuffer     = 16
)

// Message types sent to browsers.
const (
	TypeReload     = "reload"
	TypeFullReload = "full_reload"
)

// Message is one notice sent to every browser.
type Message struct {
	Type      string    `json:"type"`
	Route     string    `json:"route,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Script reconnects on close and reloads the page on any notice for the
// current route or a full rebuild.
const Script = `(function(){
  function connect(){
    var proto = location.protocol === "https:" ? "wss://" : "ws://";
    var ws = new WebSocket(proto + location.host + "` + Path + `");
    ws.onmessage = function(ev){
      var msg = JSON.parse(ev.data);
      var here = location.pathname.replace(/\/+$/, "") || "/";
      if (msg.type === "` + TypeFullReload + `" || msg.route === here) { location.reload(); }
    };
    ws.onclose = function(){ setTimeout(connect, 1000); };
  }
  connect();
})();
`

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans notices out to every connected client.
type Hub struct {
	logger     logging.Logger
	origins    []string
	register   chan *client
	unregister chan *client
	broadcast  chan []byte

	clients      map[*client]struct{}
	clientsMutex sync.RWMutex
}

// NewHub creates a hub. origins are extra host patterns allowed to connect
// besides the server's own host. A nil logger discards output.
func NewHub(logger logging.Logger, origins ...string) *Hub {
	if logger == nil {
		logger = logging.Nop()
	}
	return &Hub{
		logger:     logger.WithComponent("livereload"),
		origins:    origins,
		register:   make(chan *client),
		unregister: make(chan *client),
		broadcast:  make(chan []byte, sendBuffer),
		clients:    make(map[*client]struct{}),
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.clientsMutex.RLock()
	defer h.clientsMutex.RUnlock()
	return len(h.clients)
}

// Notify tells browsers which routes changed. A full rebuild sends a single
// full reload notice.
func (h *Hub) Notify(full bool, routes []string) {
	now := time.Now().UTC()
	if full {
		h.Broadcast(Message{Type: TypeFullReload, Timestamp: now})
		return
	}
	for _, route := range routes {
		h.Broadcast(Message{Type: TypeReload, Route: route, Timestamp: now})
	}
}

// Broadcast queues msg for every client. It drops the message when the
// hub is backed up.
func (h *Hub) Broadcast(msg Message) {
	data, err := json.Marshal(msg)
	if err != nil {
		h.logger.Error(context.Background(), err, "encoding live reload message")
		return
	}
	select {
	case h.broadcast <- data:
	default:
		h.logger.Warn(context.Background(), nil, "live reload queue full, dropping message", "type", msg.Type)
	}
}

// ServeHTTP upgrades the connection and registers the client.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: h.origins,
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed", "remote", r.RemoteAddr)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	c := &client{conn: conn, send: make(chan []byte, sendBuffer)}
	select {
	case h.register <- c:
	case <-r.Context().Done():
		conn.Close(websocket.StatusGoingAway, "")
		return
	}

	go h.writePump(c)
	h.readPump(c)
}

// ServeScript serves the browser client.
func (h *Hub) ServeScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	_, _ = w.Write([]byte(Script))
}

// Run dispatches registrations and broadcasts until ctx is done.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			h.clientsMutex.Lock()
			for c := range h.clients {
				delete(h.clients, c)
				close(c.send)
			}
			h.clientsMutex.Unlock()
			return

		case c := <-h.register:
			h.clientsMutex.Lock()
			h.clients[c] = struct{}{}
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "client connected", "clients", count)

		case c := <-h.unregister:
			h.clientsMutex.Lock()
			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			count := len(h.clients)
			h.clientsMutex.Unlock()
			h.logger.Debug(ctx, "client disconnected", "clients", count)

		case message := <-h.broadcast:
			var slow []*client
			h.clientsMutex.RLock()
			for c := range h.clients {
				select {
				case c.send <- message:
				default:
					slow = append(slow, c)
				}
			}
			h.clientsMutex.RUnlock()

			if len(slow) > 0 {
				h.clientsMutex.Lock()
				for _, c := range slow {
					if _, ok := h.clients[c]; ok {
						delete(h.clients, c)
						close(c.send)
					}
				}
				h.clientsMutex.Unlock()
			}
		}
	}
}

// readPump discards incoming frames and unregisters the client once the
// connection closes. Dead peers are detected by the pings in writePump.
func (h *Hub) readPump(c *client) {
	ctx := context.Background()
	defer func() {
		select {
		case h.unregister <- c:
		case <-time.After(writeWait):
		}
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		if _, _, err := c.conn.Read(ctx); err != nil {
			status := websocket.CloseStatus(err)
			if status != websocket.StatusNormalClosure && status != websocket.StatusGoingAway {
				h.logger.Debug(ctx, "websocket closed", "error", err.Error())
			}
			return
		}
	}
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	ctx := context.Background()
	for {
		select {
		case message, ok := <-c.send:
			if !ok {
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				h.logger.Debug(ctx, "websocket write failed", "error", err.Error())
				return
			}

		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := c.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

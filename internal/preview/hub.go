// Package preview pushes toolbox changes to connected browsers over a
// websocket. Hub implements controller.View, so every tab change and every
// regenerated preview reaches the open editor pages.
package preview

import (
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"go-toolbox-factory/internal/model"
)

// Message types sent to clients.
const (
	TypePreview   = "preview"
	TypeTabAdd    = "tab-add"
	TypeTabRemove = "tab-remove"
	TypeTabRename = "tab-rename"
	TypeTabMove   = "tab-move"
	TypeTabSelect = "tab-select"
)

// Message is the outgoing websocket message format.
type Message struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Kind  string `json:"kind,omitempty"`
	Name  string `json:"name,omitempty"`
	Color string `json:"colour,omitempty"`
	Index int    `json:"index"`
	XML   string `json:"xml,omitempty"`
}

const sendBuffer = 32

type client struct {
	conn *websocket.Conn
	send chan Message
}

// Hub tracks connected clients and fans messages out to them.
type Hub struct {
	mu       sync.Mutex
	clients  map[*client]struct{}
	preview  string
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

// NewHub creates an empty hub. checkOrigin may be nil to accept same-origin
// requests only.
func NewHub(logger *slog.Logger, checkOrigin func(*http.Request) bool) *Hub {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Hub{
		clients:  make(map[*client]struct{}),
		logger:   logger,
		upgrader: websocket.Upgrader{CheckOrigin: checkOrigin},
	}
}

// ServeHTTP upgrades the request and keeps the connection registered until
// the client goes away. New clients receive the latest preview first.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("Websocket upgrade failed", "error", err)
		return
	}
	c := &client{conn: conn, send: make(chan Message, sendBuffer)}

	h.mu.Lock()
	h.clients[c] = struct{}{}
	if h.preview != "" {
		c.send <- Message{Type: TypePreview, XML: h.preview}
	}
	count := len(h.clients)
	h.mu.Unlock()
	h.logger.Debug("Preview client connected", "clients", count)

	go h.writeLoop(c)

	// Incoming messages are ignored; reading detects the close.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.logger.Warn("Websocket read failed", "error", err)
			}
			break
		}
	}
	h.remove(c)
}

func (h *Hub) writeLoop(c *client) {
	defer c.conn.Close()
	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			h.logger.Warn("Websocket write failed", "error", err)
			h.remove(c)
			return
		}
	}
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// Broadcast queues msg for every client. Clients whose buffer is full are
// dropped so a stalled browser never blocks the editing session.
func (h *Hub) Broadcast(msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if msg.Type == TypePreview {
		h.preview = msg.XML
	}
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			h.logger.Warn("Dropping slow preview client")
			delete(h.clients, c)
			close(c.send)
		}
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) AddTab(e *model.ListElement) {
	h.Broadcast(Message{Type: TypeTabAdd, ID: e.ID, Kind: string(e.Kind), Name: e.Name, Color: e.Color})
}

func (h *Hub) RemoveTab(id string) { h.Broadcast(Message{Type: TypeTabRemove, ID: id}) }

func (h *Hub) RenameTab(id, name string) {
	h.Broadcast(Message{Type: TypeTabRename, ID: id, Name: name})
}

func (h *Hub) MoveTab(id string, index int) {
	h.Broadcast(Message{Type: TypeTabMove, ID: id, Index: index})
}

func (h *Hub) SelectTab(id string) { h.Broadcast(Message{Type: TypeTabSelect, ID: id}) }

func (h *Hub) ShowPreview(xml string) { h.Broadcast(Message{Type: TypePreview, XML: xml}) }

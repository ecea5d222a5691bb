package preview

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"go-toolbox-factory/internal/model"
)

func dial(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()
	server := httptest.NewServer(h)
	t.Cleanup(server.Close)

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("websocket dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func waitForClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.Clients() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, have %d", n, h.Clients())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func read(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read: %v", err)
	}
	return msg
}

func TestHubBroadcastsViewCalls(t *testing.T) {
	h := NewHub(nil, nil)
	conn := dial(t, h)
	waitForClients(t, h, 1)

	logic := model.NewCategory("Logic")
	logic.SetColor("210")
	h.AddTab(logic)
	h.MoveTab(logic.ID, 0)
	h.ShowPreview(`<xml id="toolbox"/>`)

	add := read(t, conn)
	if add.Type != TypeTabAdd || add.ID != logic.ID || add.Name != "Logic" || add.Color != "210" || add.Kind != "category" {
		t.Errorf("unexpected tab-add message: %+v", add)
	}
	if move := read(t, conn); move.Type != TypeTabMove || move.Index != 0 {
		t.Errorf("unexpected tab-move message: %+v", move)
	}
	if prev := read(t, conn); prev.Type != TypePreview || prev.XML != `<xml id="toolbox"/>` {
		t.Errorf("unexpected preview message: %+v", prev)
	}
}

func TestHubSendsLatestPreviewOnConnect(t *testing.T) {
	h := NewHub(nil, nil)
	h.ShowPreview("<xml/>")
	h.ShowPreview(`<xml id="toolbox"><sep/></xml>`)

	conn := dial(t, h)
	msg := read(t, conn)
	if msg.Type != TypePreview || msg.XML != `<xml id="toolbox"><sep/></xml>` {
		t.Errorf("expected the latest preview, got %+v", msg)
	}
}

func TestHubRemovesClosedClients(t *testing.T) {
	h := NewHub(nil, nil)
	conn := dial(t, h)
	waitForClients(t, h, 1)

	conn.Close()
	waitForClients(t, h, 0)

	// Broadcasting with nobody listening is fine.
	h.SelectTab("")
}

func TestHubClose(t *testing.T) {
	h := NewHub(nil, nil)
	conn := dial(t, h)
	waitForClients(t, h, 1)

	h.Close()
	if h.Clients() != 0 {
		t.Errorf("Close() left %d clients", h.Clients())
	}
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Errorf("expected the connection to be closed")
	}
}

package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func dialHub(t *testing.T, hub *WebSocketHub) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(hub.HandleWebSocket))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func intPtr(v int) *int { return &v }

func waitForClients(t *testing.T, hub *WebSocketHub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for hub.ClientCount() < n && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if got := hub.ClientCount(); got != n {
		t.Fatalf("expected %d clients, got %d", n, got)
	}
}

func readMessage(t *testing.T, conn *websocket.Conn) Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var msg Message
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read failed: %v", err)
	}
	return msg
}

func TestHubBroadcastsCommandResult(t *testing.T) {
	metrics := NewMetrics()
	hub := NewWebSocketHub(nil, metrics)
	hub.SetHandler(func(_ context.Context, cmd Command) (MessageType, any, error) {
		if cmd.Type != "choice" {
			return "", nil, errors.New("unsupported")
		}
		return RoundMessage, map[string]int{"choice": *cmd.Choice}, nil
	})
	go hub.Start()
	defer hub.Stop()

	a := dialHub(t, hub)
	b := dialHub(t, hub)

	waitForClients(t, hub, 2)

	if err := a.WriteJSON(Command{Type: "choice", Choice: intPtr(1)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, conn)
		if msg.Type != RoundMessage {
			t.Fatalf("expected round message, got %s", msg.Type)
		}
		var data map[string]int
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			t.Fatalf("bad payload: %v", err)
		}
		if data["choice"] != 1 {
			t.Fatalf("expected choice 1, got %v", data)
		}
		if msg.ID == "" {
			t.Fatalf("expected message id")
		}
	}
}

func TestHubRepliesErrorsToSenderOnly(t *testing.T) {
	hub := NewWebSocketHub(nil, nil)
	hub.SetHandler(func(context.Context, Command) (MessageType, any, error) {
		return "", nil, errors.New("invalid choice")
	})
	go hub.Start()
	defer hub.Stop()

	conn := dialHub(t, hub)
	waitForClients(t, hub, 1)

	if err := conn.WriteMessage(websocket.TextMessage, []byte("not json")); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	msg := readMessage(t, conn)
	if msg.Type != ErrorMessage {
		t.Fatalf("expected error message, got %s", msg.Type)
	}

	if err := conn.WriteJSON(Command{Type: "choice", Choice: intPtr(9)}); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	msg = readMessage(t, conn)
	if msg.Type != ErrorMessage || !strings.Contains(string(msg.Data), "invalid choice") {
		t.Fatalf("unexpected reply: %s %s", msg.Type, msg.Data)
	}
}

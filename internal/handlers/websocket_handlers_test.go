package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/brpainel/painel-gateway/internal/eventbus"
)

func dialTestSocket(t *testing.T, manager *Manager, h *WebSocketHandler, accountID string) (*websocket.Conn, func()) {
	t.Helper()

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(Auth(slog.Default(), testSecret))
	h.RegisterRoutes(api)

	srv := httptest.NewServer(router)

	header := http.Header{}
	header.Set("Authorization", "Bearer "+signToken(t, accountID, false, false))
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}

	// Registration happens on the server goroutine right after the upgrade.
	require.Eventually(t, func() bool {
		manager.mu.Lock()
		defer manager.mu.Unlock()
		return len(manager.clients) == 1
	}, time.Second, 5*time.Millisecond)

	return conn, func() {
		conn.Close()
		srv.Close()
	}
}

func readPush(t *testing.T, conn *websocket.Conn) pushMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg pushMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestSessionKickWithoutAccountReachesConnectedClient(t *testing.T) {
	bus := eventbus.New(slog.Default())
	manager := NewManager(slog.Default())
	h := NewWebSocketHandler(slog.Default(), manager, bus)

	conn, cleanup := dialTestSocket(t, manager, h, "acc-1")
	defer cleanup()

	// Upstream guards cannot name the kicked account, so the frame goes out
	// to everyone connected.
	deadline := time.Now().Add(15 * time.Second).UTC()
	bus.Publish(context.Background(), eventbus.SessionKicked{
		Device:   "iPhone 15",
		Location: "São Paulo",
		Deadline: deadline,
	})

	msg := readPush(t, conn)
	require.Equal(t, "session_kicked", msg.Type)
	payload, ok := msg.Payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "iPhone 15", payload["device"])
	require.Equal(t, deadline.Format(time.RFC3339), payload["deadline"])
}

func TestSignedOutTargetsAccountWhenKnown(t *testing.T) {
	bus := eventbus.New(slog.Default())
	manager := NewManager(slog.Default())
	h := NewWebSocketHandler(slog.Default(), manager, bus)

	conn, cleanup := dialTestSocket(t, manager, h, "acc-1")
	defer cleanup()

	// A frame addressed to another account must not land here.
	bus.Publish(context.Background(), eventbus.SignedOut{AccountID: "acc-2", Reason: "expired"})
	bus.Publish(context.Background(), eventbus.SignedOut{AccountID: "acc-1", Reason: "authentication failed"})

	msg := readPush(t, conn)
	require.Equal(t, "signed_out", msg.Type)
	payload, ok := msg.Payload.(map[string]any)
	require.True(t, ok)
	require.Equal(t, "authentication failed", payload["reason"])
}

func TestConcurrentPushesShareOneConnection(t *testing.T) {
	bus := eventbus.New(slog.Default())
	manager := NewManager(slog.Default())
	h := NewWebSocketHandler(slog.Default(), manager, bus)

	conn, cleanup := dialTestSocket(t, manager, h, "acc-1")
	defer cleanup()

	received := make(chan struct{})
	go func() {
		defer close(received)
		for i := 0; i < 100; i++ {
			conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for g := 0; g < 4; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				if g%2 == 0 {
					manager.Broadcast(pushMessage{Type: "stats", Payload: map[string]int64{"cash_balance": int64(i)}})
				} else {
					manager.SendTo("acc-1", pushMessage{Type: "stats", Payload: map[string]int64{"cash_balance": int64(i)}})
				}
			}
		}(g)
	}
	wg.Wait()

	select {
	case <-received:
	case <-time.After(3 * time.Second):
		t.Fatal("client did not receive all pushed frames")
	}

	manager.mu.Lock()
	remaining := len(manager.clients)
	manager.mu.Unlock()
	require.Equal(t, 1, remaining)
}

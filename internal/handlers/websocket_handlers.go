package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/brpainel/painel-gateway/internal/entities"
	"github.com/brpainel/painel-gateway/internal/eventbus"
	"github.com/brpainel/painel-gateway/internal/metrics"
)

const writeTimeout = 10 * time.Second

// pushMessage is the frame format pushed to connected panels.
type pushMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// client wraps one websocket connection. The mutex serializes writes, since
// gorilla/websocket allows at most one concurrent writer per connection.
type client struct {
	conn      *websocket.Conn
	accountID string

	writeMu sync.Mutex
}

func (c *client) write(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// Manager tracks connected panel sessions and pushes account-scoped events
// to them.
type Manager struct {
	logger   *slog.Logger
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*websocket.Conn]*client
}

func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		clients: make(map[*websocket.Conn]*client),
	}
}

func (m *Manager) Upgrade(w http.ResponseWriter, r *http.Request) (*websocket.Conn, error) {
	return m.upgrader.Upgrade(w, r, nil)
}

func (m *Manager) Register(conn *websocket.Conn, accountID string) {
	m.mu.Lock()
	m.clients[conn] = &client{conn: conn, accountID: accountID}
	m.mu.Unlock()
	metrics.WebSocketConnected(1)
}

func (m *Manager) Unregister(conn *websocket.Conn) {
	m.mu.Lock()
	_, known := m.clients[conn]
	delete(m.clients, conn)
	m.mu.Unlock()
	if known {
		metrics.WebSocketConnected(-1)
	}
}

// SendTo pushes a message to every connection of one account. Dead
// connections are dropped from the registry.
func (m *Manager) SendTo(accountID string, msg pushMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("Error encoding push message", "error", err, "type", msg.Type)
		return
	}

	for _, c := range m.clientsFor(accountID) {
		if err := c.write(data); err != nil {
			m.logger.Warn("Dropping dead websocket connection", "error", err, "account_id", accountID)
			m.Unregister(c.conn)
			c.conn.Close()
		}
	}
}

// Broadcast pushes a message to every connected client.
func (m *Manager) Broadcast(msg pushMessage) {
	data, err := json.Marshal(msg)
	if err != nil {
		m.logger.Error("Error encoding push message", "error", err, "type", msg.Type)
		return
	}

	m.mu.Lock()
	clients := make([]*client, 0, len(m.clients))
	for _, c := range m.clients {
		clients = append(clients, c)
	}
	m.mu.Unlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			m.logger.Warn("Dropping dead websocket connection", "error", err)
			m.Unregister(c.conn)
			c.conn.Close()
		}
	}
}

func (m *Manager) clientsFor(accountID string) []*client {
	m.mu.Lock()
	defer m.mu.Unlock()

	var clients []*client
	for _, c := range m.clients {
		if c.accountID == accountID {
			clients = append(clients, c)
		}
	}
	return clients
}

// WebSocketHandler serves the push channel: counter updates, session kicks
// and forced sign-outs land here instead of being polled for.
type WebSocketHandler struct {
	logger  *slog.Logger
	manager *Manager
}

func NewWebSocketHandler(logger *slog.Logger, manager *Manager, bus *eventbus.Bus) *WebSocketHandler {
	h := &WebSocketHandler{logger: logger, manager: manager}

	// Upstream auth failures carry no account: those frames go to every
	// connected panel. Account-scoped events stay targeted.
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.SessionKicked) {
		metrics.SessionKicked()
		msg := pushMessage{Type: "session_kicked", Payload: map[string]any{
			"device":   e.Device,
			"location": e.Location,
			"deadline": e.Deadline.Format(time.RFC3339),
		}}
		if e.AccountID == "" {
			manager.Broadcast(msg)
			return
		}
		manager.SendTo(e.AccountID, msg)
	})
	eventbus.Subscribe(bus, func(_ context.Context, e eventbus.SignedOut) {
		msg := pushMessage{Type: "signed_out", Payload: map[string]any{
			"reason": e.Reason,
		}}
		if e.AccountID == "" {
			manager.Broadcast(msg)
			return
		}
		manager.SendTo(e.AccountID, msg)
	})

	return h
}

// PushStats sends the current counter view to one account's connections.
func (h *WebSocketHandler) PushStats(accountID string, stats entities.Stats) {
	h.manager.SendTo(accountID, pushMessage{Type: "stats", Payload: statsView(stats)})
}

// BroadcastStats pushes the counter view to every connected client. Wired as
// the optimistic updater's change hook so displayed values stream out instead
// of being polled for.
func (h *WebSocketHandler) BroadcastStats(stats entities.Stats) {
	h.manager.Broadcast(pushMessage{Type: "stats", Payload: statsView(stats)})
}

func statsView(stats entities.Stats) map[string]int64 {
	view := make(map[string]int64, len(stats))
	for counter, value := range stats {
		view[string(counter)] = value
	}
	return view
}

func (h *WebSocketHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ws", h.HandleConnection)
}

func (h *WebSocketHandler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	session, ok := SessionFromContext(r.Context())
	if !ok {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.manager.Upgrade(w, r)
	if err != nil {
		h.logger.Error("Error upgrading connection", "error", err)
		return
	}

	h.logger.Info("New WebSocket connection", "account_id", session.AccountID)
	h.manager.Register(conn, session.AccountID)

	// Keep connection open and handle disconnection.
	for {
		if _, _, readErr := conn.ReadMessage(); readErr != nil {
			h.logger.Info("WebSocket connection closed", "account_id", session.AccountID, "error", readErr)
			h.manager.Unregister(conn)
			conn.Close()
			break
		}
	}
}

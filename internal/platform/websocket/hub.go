// Package websocket relays examination-station signals between connected
// browsers. Every client receives every signal; delivery is at-most-once and
// clients whose send buffer is full are skipped.
package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Signals understood by the stations.
const (
	SignalNewPatientID     = "newPatientId"
	SignalResetPatientData = "resetPatientData"
	SignalPhotoUpdate      = "photoUpdate"
	SignalPhotoDelete      = "photoDelete"
	SignalDepartmentUpdate = "departmentUpdate"
)

var knownSignals = map[string]struct{}{
	SignalNewPatientID:     {},
	SignalResetPatientData: {},
	SignalPhotoUpdate:      {},
	SignalPhotoDelete:      {},
	SignalDepartmentUpdate: {},
}

// IsSignal reports whether name is one of the relayed signals.
func IsSignal(name string) bool {
	_, ok := knownSignals[name]
	return ok
}

// Event is the wire form of a signal, in both directions.
type Event struct {
	Name      string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// Notifier publishes signals. Implementations never block on slow listeners.
type Notifier interface {
	Notify(ctx context.Context, name string, data any) error
}

// Conn abstracts a WebSocket connection for testability.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Client represents a single WebSocket connection.
type Client struct {
	ID   string
	Send chan []byte
	hub  *Hub
	conn Conn
}

// Hub tracks connected clients.
type Hub struct {
	mu     sync.RWMutex
	all    map[*Client]struct{}
	logger zerolog.Logger
}

// NewHub creates a new Hub ready to manage WebSocket clients.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		all:    make(map[*Client]struct{}),
		logger: logger.With().Str("component", "websocket").Logger(),
	}
}

// Register adds a client to the hub.
func (h *Hub) Register(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.all[client] = struct{}{}
}

// Unregister removes a client and closes its Send channel.
func (h *Hub) Unregister(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.all[client]; !ok {
		return
	}
	delete(h.all, client)
	close(client.Send)
}

// BroadcastAll sends event to every connected client and returns how many
// accepted it.
func (h *Hub) BroadcastAll(event Event) int {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	data, err := json.Marshal(event)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event.Name).Msg("marshal event")
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for client := range h.all {
		select {
		case client.Send <- data:
			delivered++
		default:
			h.logger.Warn().Str("client", client.ID).Str("event", event.Name).Msg("client buffer full, signal dropped")
		}
	}
	return delivered
}

// Notify implements Notifier.
func (h *Hub) Notify(_ context.Context, name string, data any) error {
	event := Event{Name: name}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return err
		}
		event.Data = raw
	}
	h.BroadcastAll(event)
	return nil
}

// Relay rebroadcasts a message received from a client. Malformed messages
// and unknown signals are dropped.
func (h *Hub) Relay(from *Client, message []byte) bool {
	var event Event
	if err := json.Unmarshal(message, &event); err != nil {
		return false
	}
	if !IsSignal(event.Name) {
		h.logger.Debug().Str("client", from.ID).Str("event", event.Name).Msg("unknown signal ignored")
		return false
	}
	event.Timestamp = time.Time{}
	h.BroadcastAll(event)
	return true
}

// ClientCount returns the total number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.all)
}

// ---------------------------------------------------------------------------
// WebSocketHandler: Echo HTTP handler for WebSocket connections
// ---------------------------------------------------------------------------

// WebSocketHandler handles HTTP-to-WebSocket upgrades and message routing.
type WebSocketHandler struct {
	hub      *Hub
	upgrader gorillawebsocket.Upgrader
}

// NewWebSocketHandler creates a handler bound to hub. Browsers are accepted
// only from allowedOrigins; "*" or an empty list allows any origin.
func NewWebSocketHandler(hub *Hub, allowedOrigins []string) *WebSocketHandler {
	allowAll := len(allowedOrigins) == 0
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		origins[o] = struct{}{}
	}

	return &WebSocketHandler{
		hub: hub,
		upgrader: gorillawebsocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if allowAll || origin == "" {
					return true
				}
				_, ok := origins[origin]
				return ok
			},
		},
	}
}

// RegisterRoutes registers the WebSocket endpoint on the provided Echo group.
func (wsh *WebSocketHandler) RegisterRoutes(g *echo.Group) {
	g.GET("/ws", wsh.HandleConnect)
}

// HandleConnect upgrades the connection, registers the client and starts
// its read/write pumps.
func (wsh *WebSocketHandler) HandleConnect(c echo.Context) error {
	ws, err := wsh.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}

	client := &Client{
		ID:   uuid.New().String(),
		Send: make(chan []byte, 256),
		hub:  wsh.hub,
		conn: &gorillaConnAdapter{ws},
	}

	wsh.hub.Register(client)

	go writePump(client)
	go readPump(client)

	return nil
}

func readPump(client *Client) {
	defer func() {
		client.hub.Unregister(client)
		client.conn.Close()
	}()

	for {
		_, message, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		client.hub.Relay(client, message)
	}
}

func writePump(client *Client) {
	defer client.conn.Close()

	for message := range client.Send {
		if err := client.conn.WriteMessage(gorillawebsocket.TextMessage, message); err != nil {
			return
		}
	}
}

// gorillaConnAdapter wraps a gorilla/websocket.Conn to satisfy the Conn interface.
type gorillaConnAdapter struct {
	conn *gorillawebsocket.Conn
}

func (a *gorillaConnAdapter) ReadMessage() (int, []byte, error) {
	return a.conn.ReadMessage()
}

func (a *gorillaConnAdapter) WriteMessage(messageType int, data []byte) error {
	a.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return a.conn.WriteMessage(messageType, data)
}

func (a *gorillaConnAdapter) Close() error {
	return a.conn.Close()
}

package serve

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"github.com/vango-dev/routecheck/internal/errors"
)

// CheckCommand is the client message that triggers a run.
const CheckCommand = "check"

// Summary ends the messages of one run on /live.
type Summary struct {
	Done      bool               `json:"done"`
	Endpoints int                `json:"endpoints"`
	Errors    int                `json:"errors"`
	Warnings  int                `json:"warnings"`
	Error     *errors.CodedError `json:"error,omitempty"`
}

// Hub manages live websocket clients.
type Hub struct {
	runner   Runner
	logger   *slog.Logger
	clients  map[*client]bool
	mu       sync.RWMutex
	upgrader websocket.Upgrader
}

// client serializes writes to one connection.
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *client) write(messages [][]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, m := range messages {
		if err := c.conn.WriteMessage(websocket.TextMessage, m); err != nil {
			return err
		}
	}
	return nil
}

// NewHub creates a hub that runs checks with runner.
func NewHub(runner Runner, logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		runner:  runner,
		logger:  logger,
		clients: make(map[*client]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, req *http.Request) {
	conn, err := h.upgrader.Upgrade(w, req, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	c := &client{conn: conn}
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	ctx := req.Context()
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if strings.TrimSpace(string(data)) != CheckCommand {
			continue
		}
		if err := c.write(h.run(ctx)); err != nil {
			h.logger.Warn("websocket write failed", "error", err)
			break
		}
	}

	h.remove(c)
}

// Broadcast runs a check and sends the result to every client.
func (h *Hub) Broadcast(ctx context.Context) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	if len(clients) == 0 {
		return
	}

	messages := h.run(ctx)
	for _, c := range clients {
		if err := c.write(messages); err != nil {
			h.remove(c)
		}
	}
}

// run performs a check and encodes it as live messages.
func (h *Hub) run(ctx context.Context) [][]byte {
	report, err := h.runner.Run(ctx)
	if err != nil {
		h.logger.Error("check failed", "error", err)
		return [][]byte{marshal(Summary{Done: true, Error: errors.FromCheck(err)})}
	}

	messages := make([][]byte, 0, len(report.Diagnostics)+1)
	for _, d := range report.Diagnostics {
		messages = append(messages, marshal(d))
	}
	return append(messages, marshal(Summary{
		Done:      true,
		Endpoints: report.Endpoints,
		Errors:    report.Errors,
		Warnings:  report.Warnings,
	}))
}

func marshal(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(map[string]string{"error": err.Error()})
	}
	return data
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
	c.conn.Close()
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close closes all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

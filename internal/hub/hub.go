// Package hub provides connection management for WebSocket clients.
package hub

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/michael213532/ai-debate/internal/domain"
	"github.com/michael213532/ai-debate/internal/metrics"
)

// Connection represents a single WebSocket connection attached to a session.
type Connection struct {
	ID        string
	SessionID string
	Conn      *websocket.Conn

	outbox    *outbox
	done      chan struct{}
	closeOnce sync.Once
	mu        sync.Mutex
}

// Hub manages all WebSocket connections.
type Hub struct {
	// Connections indexed by connection ID
	connections map[string]*Connection

	// Sessions maps session_id to its connections
	sessions map[string]map[string]*Connection

	outboxSize int
	metrics    *metrics.Metrics

	mu sync.RWMutex
}

// NewHub creates a new Hub. outboxSize bounds each connection's queue.
func NewHub(outboxSize int, m *metrics.Metrics) *Hub {
	return &Hub{
		connections: make(map[string]*Connection),
		sessions:    make(map[string]map[string]*Connection),
		outboxSize:  outboxSize,
		metrics:     m,
	}
}

// NewConnection creates a connection for a session. It is not registered.
func (h *Hub) NewConnection(sessionID string, ws *websocket.Conn) *Connection {
	return &Connection{
		ID:        "conn_" + uuid.New().String()[:8],
		SessionID: sessionID,
		Conn:      ws,
		outbox:    newOutbox(h.outboxSize),
		done:      make(chan struct{}),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(conn *Connection) {
	h.mu.Lock()
	h.connections[conn.ID] = conn
	if h.sessions[conn.SessionID] == nil {
		h.sessions[conn.SessionID] = make(map[string]*Connection)
	}
	h.sessions[conn.SessionID][conn.ID] = conn
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	log.Printf("Connection registered: %s (session: %s)", conn.ID, conn.SessionID)
}

// Unregister removes a connection and signals its writer to stop. It is safe
// to call more than once.
func (h *Hub) Unregister(conn *Connection) {
	h.mu.Lock()
	_, ok := h.connections[conn.ID]
	if ok {
		delete(h.connections, conn.ID)
		if set := h.sessions[conn.SessionID]; set != nil {
			delete(set, conn.ID)
			if len(set) == 0 {
				delete(h.sessions, conn.SessionID)
			}
		}
	}
	h.mu.Unlock()

	conn.shutdown()
	if ok {
		h.metrics.ConnectionClosed()
		log.Printf("Connection unregistered: %s", conn.ID)
	}
}

// Publish queues an event for every connection of a session. It never
// blocks; connections that cannot keep up are closed.
func (h *Hub) Publish(sessionID string, ev domain.Event) {
	var slow []*Connection

	h.mu.RLock()
	for _, conn := range h.sessions[sessionID] {
		if h.deliver(conn, ev) == Overflow {
			slow = append(slow, conn)
		}
	}
	h.mu.RUnlock()

	for _, conn := range slow {
		log.Printf("WARN: connection %s outbox full, closing slow consumer", conn.ID)
		h.Unregister(conn)
	}
}

// Send queues an event for one connection.
func (h *Hub) Send(conn *Connection, ev domain.Event) error {
	if h.deliver(conn, ev) == Overflow {
		h.Unregister(conn)
		return ErrBufferFull
	}
	return nil
}

func (h *Hub) deliver(conn *Connection, ev domain.Event) Outcome {
	outcome := conn.outbox.enqueue(ev)
	switch outcome {
	case Coalesced:
		h.metrics.OutboxOverflow(metrics.DropCoalesced)
	case Discarded:
		h.metrics.OutboxOverflow(metrics.DropDiscarded)
	case Overflow:
		h.metrics.OutboxOverflow(metrics.DropSlowConsumer)
	}
	return outcome
}

// GetConnectionCount returns the number of active connections.
func (h *Hub) GetConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GetSessionCount returns the number of sessions with connections.
func (h *Hub) GetSessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// HasActiveConnections checks if a session has any active connections.
func (h *Hub) HasActiveConnections(sessionID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID]) > 0
}

// Ready is signalled whenever events are waiting.
func (c *Connection) Ready() <-chan struct{} { return c.outbox.notify }

// Done is closed once the connection has been unregistered.
func (c *Connection) Done() <-chan struct{} { return c.done }

// Drain removes and returns the queued events in order.
func (c *Connection) Drain() []domain.Event { return c.outbox.drain() }

// Pending returns the number of queued events.
func (c *Connection) Pending() int { return c.outbox.len() }

func (c *Connection) shutdown() {
	c.closeOnce.Do(func() {
		c.outbox.close()
		close(c.done)
	})
}

// WriteJSON writes one event as a text frame with proper locking.
func (c *Connection) WriteJSON(ev domain.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return c.WriteMessage(websocket.TextMessage, data)
}

// WriteMessage writes a message to the connection with proper locking.
func (c *Connection) WriteMessage(messageType int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Conn.WriteMessage(messageType, data)
}

// SetWriteDeadline sets the write deadline for the connection.
func (c *Connection) SetWriteDeadline(t time.Time) error {
	return c.Conn.SetWriteDeadline(t)
}

// SetReadDeadline sets the read deadline for the connection.
func (c *Connection) SetReadDeadline(t time.Time) error {
	return c.Conn.SetReadDeadline(t)
}

// Close closes the connection.
func (c *Connection) Close() error {
	return c.Conn.Close()
}

// ErrBufferFull is returned when the send buffer is full.
var ErrBufferFull = &BufferFullError{}

// BufferFullError represents a buffer full error.
type BufferFullError struct{}

func (e *BufferFullError) Error() string {
	return "send buffer full"
}

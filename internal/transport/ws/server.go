// Package ws provides the live event stream of a session over WebSocket.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/michael213532/ai-debate/internal/config"
	"github.com/michael213532/ai-debate/internal/domain"
	"github.com/michael213532/ai-debate/internal/hub"
	"github.com/michael213532/ai-debate/internal/service"
)

const attachTimeout = 10 * time.Second

// Sessions is the session control used by attached clients.
type Sessions interface {
	SessionStatus(ctx context.Context, sessionID string) (domain.SessionStatus, error)
	AttachSession(ctx context.Context, sessionID string) (domain.SessionStatus, error)
	StopLive(sessionID string)
	InterveneLive(sessionID, content string) error
}

// Server handles WebSocket connections.
type Server struct {
	cfg      *config.Config
	hub      *hub.Hub
	sessions Sessions
	upgrader websocket.Upgrader
}

// NewServer creates a new WebSocket server.
func NewServer(cfg *config.Config, h *hub.Hub, sessions Sessions) *Server {
	return &Server{
		cfg:      cfg,
		hub:      h,
		sessions: sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
}

// RegisterRoutes registers the WebSocket route with the echo server.
func (s *Server) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/sessions/:session_id", s.HandleWebSocket)
}

// HandleWebSocket attaches a client to a session's event stream. Attaching
// to a pending session starts it.
// GET /ws/sessions/:session_id?api_key=...
func (s *Server) HandleWebSocket(c echo.Context) error {
	if s.cfg.APIKey != "" && c.QueryParam("api_key") != s.cfg.APIKey {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid api_key"})
	}

	sessionID := c.Param("session_id")
	if _, err := s.sessions.SessionStatus(c.Request().Context(), sessionID); err != nil {
		if errors.Is(err, service.ErrSessionNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{"error": err.Error()})
		}
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": err.Error()})
	}

	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		log.Printf("Failed to upgrade WebSocket: %v", err)
		return nil
	}
	ws.SetReadLimit(s.cfg.MaxMessageSize)

	// Register before starting so no event of the session is missed.
	conn := s.hub.NewConnection(sessionID, ws)
	s.hub.Register(conn)

	ctx, cancel := context.WithTimeout(context.Background(), attachTimeout)
	status, err := s.sessions.AttachSession(ctx, sessionID)
	cancel()
	if err != nil {
		log.Printf("WARN: attach to session %s: %v", sessionID, err)
		s.sendError(conn, err.Error())
	}

	if status.Terminal() {
		s.closeEnded(conn, status)
		return nil
	}

	go s.writePump(conn)
	go s.readPump(conn)
	return nil
}

// closeEnded tells a client attaching to a finished session how it ended.
func (s *Server) closeEnded(conn *hub.Connection, status domain.SessionStatus) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
	for _, ev := range conn.Drain() {
		if err := conn.WriteJSON(ev); err != nil {
			return
		}
	}
	if err := conn.WriteJSON(domain.Event{
		Type:      domain.EventTypeSessionEnd,
		SessionID: conn.SessionID,
		Ts:        time.Now().UnixMilli(),
		Status:    status,
	}); err != nil {
		return
	}
	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readPump reads client frames until the connection fails.
func (s *Server) readPump(conn *hub.Connection) {
	defer func() {
		s.hub.Unregister(conn)
		conn.Close()
	}()

	conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
	conn.Conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))
		return nil
	})

	limiter := newLimiter(s.cfg.InboundRate)
	for {
		_, message, err := conn.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
		conn.SetReadDeadline(time.Now().Add(s.cfg.ReadTimeout))

		if !limiter.Allow() {
			s.sendError(conn, "too many messages, slow down")
			continue
		}
		s.handleMessage(conn, message)
	}
}

// writePump drains the connection's outbox and keeps it alive.
func (s *Server) writePump(conn *hub.Connection) {
	ticker := time.NewTicker(s.cfg.PingInterval)
	defer func() {
		ticker.Stop()
		conn.Close()
	}()

	for {
		select {
		case <-conn.Ready():
			for _, ev := range conn.Drain() {
				conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
				if err := conn.WriteJSON(ev); err != nil {
					log.Printf("Failed to write message: %v", err)
					return
				}
			}

		case <-ticker.C:
			s.hub.Send(conn, domain.Event{
				Type:      domain.EventTypePing,
				SessionID: conn.SessionID,
				Ts:        time.Now().UnixMilli(),
			})
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-conn.Done():
			// Unregistered by the hub or the reader.
			conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
			conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

// handleMessage dispatches a client frame. Malformed and unknown frames are
// ignored.
func (s *Server) handleMessage(conn *hub.Connection, data []byte) {
	var msg InboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		log.Printf("WARN: ignoring malformed frame on %s", conn.ID)
		return
	}

	switch msg.Type {
	case TypeStop:
		log.Printf("Stop requested over WebSocket: session=%s conn=%s", conn.SessionID, conn.ID)
		s.sessions.StopLive(conn.SessionID)
	case TypeIntervention:
		if err := s.sessions.InterveneLive(conn.SessionID, msg.Content); err != nil {
			s.sendError(conn, err.Error())
		}
	default:
		log.Printf("WARN: ignoring unknown frame type %q on %s", msg.Type, conn.ID)
	}
}

// sendError sends an error event to one connection.
func (s *Server) sendError(conn *hub.Connection, message string) {
	s.hub.Send(conn, domain.Event{
		Type:      domain.EventTypeError,
		SessionID: conn.SessionID,
		Ts:        time.Now().UnixMilli(),
		Message:   message,
	})
}

func newLimiter(perSecond float64) *rate.Limiter {
	if perSecond <= 0 {
		return rate.NewLimiter(rate.Inf, 0)
	}
	burst := int(perSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(perSecond), burst*2)
}

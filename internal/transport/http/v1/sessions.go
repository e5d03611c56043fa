package v1

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/michael213532/ai-debate/internal/domain"
)

// CreateSession creates a pending session.
// POST /v1/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var req domain.CreateSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	session, err := h.service.CreateSession(c.Request().Context(), userID(c), req)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, session)
}

// ListSessions lists the caller's sessions, newest first.
// GET /v1/sessions
func (h *Handler) ListSessions(c echo.Context) error {
	limit := 50
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}

	sessions, err := h.service.ListSessions(c.Request().Context(), userID(c), limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"sessions": sessions,
	})
}

// GetSession returns a session and its transcript.
// GET /v1/sessions/:session_id
func (h *Handler) GetSession(c echo.Context) error {
	detail, err := h.service.GetSession(c.Request().Context(), userID(c), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, detail)
}

// StartSession starts a pending session.
// POST /v1/sessions/:session_id/start
func (h *Handler) StartSession(c echo.Context) error {
	session, err := h.service.StartSession(c.Request().Context(), userID(c), c.Param("session_id"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

// StopSession stops a session.
// POST /v1/sessions/:session_id/stop
func (h *Handler) StopSession(c echo.Context) error {
	if err := h.service.StopSession(c.Request().Context(), userID(c), c.Param("session_id")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// CreateIntervention injects a user message into a running session.
// POST /v1/sessions/:session_id/interventions
func (h *Handler) CreateIntervention(c echo.Context) error {
	var req domain.InterventionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}
	if strings.TrimSpace(req.Content) == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "content is required"})
	}

	if err := h.service.Intervene(c.Request().Context(), userID(c), c.Param("session_id"), req.Content); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusAccepted, map[string]interface{}{"ok": true})
}

// GetSessionEvents returns recorded lifecycle events.
// GET /v1/sessions/:session_id/events
func (h *Handler) GetSessionEvents(c echo.Context) error {
	limit := 100
	if l := c.QueryParam("limit"); l != "" {
		if val, err := strconv.Atoi(l); err == nil {
			limit = val
		}
	}
	afterTs := int64(0)
	if t := c.QueryParam("after_ts"); t != "" {
		if val, err := strconv.ParseInt(t, 10, 64); err == nil {
			afterTs = val
		}
	}
	var types []string
	if t := c.QueryParam("types"); t != "" {
		for _, typ := range strings.Split(t, ",") {
			if typ = strings.TrimSpace(typ); typ != "" {
				types = append(types, typ)
			}
		}
	}

	events, err := h.service.GetEvents(c.Request().Context(), userID(c), c.Param("session_id"), afterTs, types, limit)
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"events":   events,
		"has_more": len(events) == limit,
	})
}

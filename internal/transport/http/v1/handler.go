// Package v1 provides the public REST API.
package v1

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/michael213532/ai-debate/internal/debate"
	"github.com/michael213532/ai-debate/internal/service"
)

// HeaderUserID carries the caller identity.
const HeaderUserID = "X-User-ID"

// Handler handles HTTP requests.
type Handler struct {
	service *service.Service
}

// NewHandler creates a new handler.
func NewHandler(service *service.Service) *Handler {
	return &Handler{
		service: service,
	}
}

// RegisterRoutes registers external routes with the echo server.
func (h *Handler) RegisterRoutes(e *echo.Echo) {
	// Sessions
	e.POST("/v1/sessions", h.CreateSession)
	e.GET("/v1/sessions", h.ListSessions)
	e.GET("/v1/sessions/:session_id", h.GetSession)
	e.POST("/v1/sessions/:session_id/start", h.StartSession)
	e.POST("/v1/sessions/:session_id/stop", h.StopSession)
	e.POST("/v1/sessions/:session_id/interventions", h.CreateIntervention)
	e.GET("/v1/sessions/:session_id/events", h.GetSessionEvents)

	// Catalog
	e.GET("/v1/models", h.ListModels)

	// Credentials
	e.GET("/v1/keys", h.ListKeys)
	e.PUT("/v1/keys/:provider", h.SaveKey)
	e.DELETE("/v1/keys/:provider", h.DeleteKey)
	e.POST("/v1/keys/:provider/test", h.TestKey)

	e.GET("/health", h.Health)
}

// Health returns health status.
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":          "healthy",
		"version":         "0.1.0",
		"active_sessions": h.service.ActiveCount(),
	})
}

func userID(c echo.Context) string {
	if id := strings.TrimSpace(c.Request().Header.Get(HeaderUserID)); id != "" {
		return id
	}
	return service.DefaultUserID
}

// errorResponse maps service errors to status codes.
func errorResponse(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPolicyDenied):
		status = http.StatusForbidden
	case errors.Is(err, debate.ErrInterventionRejected):
		status = http.StatusConflict
	case errors.Is(err, debate.ErrInvalidSession),
		errors.Is(err, service.ErrUnknownProvider),
		errors.Is(err, service.ErrInvalidInput):
		status = http.StatusBadRequest
	default:
		log.Printf("ERROR: %s %s: %v", c.Request().Method, c.Path(), err)
	}
	return c.JSON(status, map[string]string{"error": err.Error()})
}

package v1

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/michael213532/ai-debate/internal/domain"
)

// ListModels returns the model catalog.
// GET /v1/models
func (h *Handler) ListModels(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"models": h.service.ListModels(),
	})
}

// ListKeys reports which providers have a usable key.
// GET /v1/keys
func (h *Handler) ListKeys(c echo.Context) error {
	statuses, err := h.service.ListAPIKeys(c.Request().Context(), userID(c))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"providers": statuses,
	})
}

// SaveKey stores the caller's key for a provider.
// PUT /v1/keys/:provider
func (h *Handler) SaveKey(c echo.Context) error {
	var req domain.APIKeyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	if err := h.service.SaveAPIKey(c.Request().Context(), userID(c), c.Param("provider"), req.APIKey); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// DeleteKey removes the caller's key for a provider.
// DELETE /v1/keys/:provider
func (h *Handler) DeleteKey(c echo.Context) error {
	if err := h.service.DeleteAPIKey(c.Request().Context(), userID(c), c.Param("provider")); err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"ok": true})
}

// TestKey makes a probe call with the caller's key.
// POST /v1/keys/:provider/test
func (h *Handler) TestKey(c echo.Context) error {
	result, err := h.service.TestAPIKey(c.Request().Context(), userID(c), c.Param("provider"))
	if err != nil {
		return errorResponse(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

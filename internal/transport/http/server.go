// Package http provides the HTTP server of the discussion service.
package http

import (
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/michael213532/ai-debate/internal/metrics"
	"github.com/michael213532/ai-debate/internal/service"
	v1 "github.com/michael213532/ai-debate/internal/transport/http/v1"
	"github.com/michael213532/ai-debate/internal/transport/ws"
)

// accessLogFormat is echo's default format with the path in place of the URI,
// keeping query strings such as api_key out of the log.
const accessLogFormat = `{"time":"${time_rfc3339_nano}","id":"${id}","remote_ip":"${remote_ip}",` +
	`"host":"${host}","method":"${method}","path":"${path}","user_agent":"${user_agent}",` +
	`"status":${status},"error":"${error}","latency_human":"${latency_human}",` +
	`"bytes_in":${bytes_in},"bytes_out":${bytes_out}}` + "\n"

// NewServer creates and configures the HTTP server: the REST API, the
// session WebSocket and the metrics endpoint.
func NewServer(svc *service.Service, wsServer *ws.Server, m *metrics.Metrics) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Format: accessLogFormat}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	// Handlers
	v1Handler := v1.NewHandler(svc)

	// Register Routes
	v1Handler.RegisterRoutes(e)
	wsServer.RegisterRoutes(e)
	e.GET("/metrics", echo.WrapHandler(m.Handler()))

	return e
}

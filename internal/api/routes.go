package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/satriahrh/roleplay/internal/websocket"
)

const serviceName = "roleplay-server"

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, hub *websocket.Hub, logger *zap.Logger) {
	// Liveness
	e.GET("/", func(c echo.Context) error {
		return c.JSON(http.StatusOK, StatusResponse{Status: "alive"})
	})

	// Health check
	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, HealthResponse{
			Status:         "ok",
			Service:        serviceName,
			ActiveSessions: hub.ActiveSessions(),
		})
	})

	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// One conversation per connection
	e.GET("/ws/:session_id", func(c echo.Context) error {
		logger.Debug("WebSocket connection requested",
			zap.String("sessionID", c.Param("session_id")),
			zap.String("remoteAddr", c.RealIP()))
		err := hub.HandleWebSocket(c)
		switch {
		case errors.Is(err, websocket.ErrMissingSessionID):
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "bad_request", Message: err.Error()})
		case errors.Is(err, websocket.ErrShuttingDown):
			return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "unavailable", Message: err.Error()})
		}
		return err
	})
}

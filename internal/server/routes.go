package server

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) registerRoutes() {
	// Observability endpoints (no auth required)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Registry statistics
	s.echo.GET("/api/stats", s.handleStats)

	// WebSocket endpoint (token-authenticated during the upgrade)
	s.echo.GET("/ws", s.handleWebSocket)
}

package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pscheid92/chatrelay/internal/auth"
	"github.com/pscheid92/chatrelay/internal/domain"
	"github.com/pscheid92/chatrelay/internal/logging"
	"github.com/pscheid92/chatrelay/internal/manager"
	"github.com/pscheid92/chatrelay/internal/metrics"
)

const heartbeatSendInterval = 30 * time.Second

func (s *Server) handleWebSocket(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		slog.Error("Failed to upgrade WebSocket", "error", err)
		return nil
	}

	sock := newGorillaSocket(ws)

	userID, err := s.authn.Authenticate(auth.TokenFromRequest(c.Request()))
	if err != nil {
		slog.Warn("WebSocket authentication failed", "error", err)
		_ = sock.Close(websocket.ClosePolicyViolation, "authentication required")
		return nil
	}

	// Identifiers are generated per accepted socket, never reused.
	connectionID := uuid.NewString()
	conn := manager.NewConnection(sock, userID, connectionID, map[string]any{
		"remote_addr": c.Request().RemoteAddr,
	}, s.clock)

	logger := logging.WithConnection(connectionID).With("user_id", userID.String())

	if err := conn.Accept(); err != nil {
		logger.Error("Failed to accept connection", "error", err)
		return nil
	}

	ctx := c.Request().Context()
	s.manager.Connect(ctx, conn)

	// Ack directly on the new socket so the client learns its connection id.
	ack := domain.NewConnectionEvent(domain.EventConnected, userID.String(), connectionID, s.clock.Now())
	if err := conn.SendEnvelope(ack); err != nil {
		logger.Warn("Failed to send connect ack", "error", err)
	}

	stopPings := make(chan struct{})
	go s.sendHeartbeats(conn, stopPings)

	s.readLoop(ctx, conn)

	close(stopPings)
	s.manager.Disconnect(ctx, connectionID, websocket.CloseNormalClosure, "connection closed")
	return nil
}

// readLoop processes inbound frames strictly in arrival order. Protocol
// errors are answered on the same connection and the loop continues;
// transport errors end the loop and with it the connection.
func (s *Server) readLoop(ctx context.Context, conn *manager.Connection) {
	for {
		env, err := conn.ReceiveEnvelope()
		if err != nil {
			if errors.Is(err, domain.ErrMalformedMessage) || errors.Is(err, domain.ErrUnknownMessageType) {
				slog.Warn("Rejecting invalid WebSocket message",
					"connection_id", conn.ID, "error", err)
				s.sendError(conn, err.Error())
				continue
			}
			slog.Info("WebSocket read loop ended", "connection_id", conn.ID, "error", err)
			return
		}

		s.handleInbound(ctx, conn, env)
	}
}

func (s *Server) handleInbound(ctx context.Context, conn *manager.Connection, env domain.Envelope) {
	metrics.MessagesReceived.WithLabelValues(string(env.Type)).Inc()

	switch env.Type {
	case domain.MessageHeartbeat:
		conn.TouchHeartbeat()
		pong := domain.NewHeartbeat(false, s.clock.Now())
		if err := conn.SendEnvelope(pong); err != nil {
			slog.Warn("Failed to answer heartbeat", "connection_id", conn.ID, "error", err)
		}

	case domain.MessageChat, domain.MessageTyping:
		if env.UserID != conn.UserID.String() {
			slog.Warn("Rejecting message with mismatched user id",
				"connection_id", conn.ID,
				"authenticated_user_id", conn.UserID.String(),
				"claimed_user_id", env.UserID)
			s.sendError(conn, "message user_id does not match authenticated user")
			return
		}
		s.manager.Publish(ctx, env)

	default:
		// connection and error envelopes only flow server-to-client
		s.sendError(conn, fmt.Sprintf("unexpected message type: %s", env.Type))
	}
}

func (s *Server) sendError(conn *manager.Connection, message string) {
	env := domain.NewError(message, s.clock.Now())
	if err := conn.SendEnvelope(env); err != nil {
		slog.Debug("Failed to send error envelope", "connection_id", conn.ID, "error", err)
	}
}

// sendHeartbeats pushes periodic pings so idle clients keep the connection
// warm. It ends when the read loop finishes or a ping fails.
func (s *Server) sendHeartbeats(conn *manager.Connection, stop <-chan struct{}) {
	ticker := s.clock.NewTicker(heartbeatSendInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.Chan():
			if !conn.IsConnected() {
				return
			}
			ping := domain.NewHeartbeat(true, s.clock.Now())
			if err := conn.SendEnvelope(ping); err != nil {
				slog.Debug("Failed to send heartbeat ping",
					"connection_id", conn.ID, "error", err)
				return
			}
		}
	}
}

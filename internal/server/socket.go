package server

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pscheid92/chatrelay/internal/domain"
)

const writeWait = 5 * time.Second

// gorillaSocket adapts a gorilla connection to domain.Socket. gorilla allows
// only one concurrent writer, so data writes and the close handshake share a
// lock.
type gorillaSocket struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
}

var _ domain.Socket = (*gorillaSocket)(nil)

func newGorillaSocket(conn *websocket.Conn) *gorillaSocket {
	return &gorillaSocket{conn: conn}
}

// Accept is a no-op: the HTTP upgrade already completed the handshake.
func (s *gorillaSocket) Accept() error {
	return nil
}

func (s *gorillaSocket) WriteMessage(data []byte) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *gorillaSocket) ReadMessage() ([]byte, error) {
	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err,
			websocket.CloseNormalClosure,
			websocket.CloseGoingAway,
			websocket.CloseNoStatusReceived) {
			return nil, fmt.Errorf("%w: %v", domain.ErrConnectionClosed, err)
		}
		return nil, fmt.Errorf("transport read failed: %w", err)
	}
	return data, nil
}

func (s *gorillaSocket) Close(code int, reason string) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	msg := websocket.FormatCloseMessage(code, reason)
	if err := s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait)); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
		slog.Debug("Failed to write close frame", "error", err)
	}
	return s.conn.Close()
}

package manager

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/chatrelay/internal/domain"
)

// State is the lifecycle state of a client connection.
type State string

const (
	StateConnecting    State = "connecting"
	StateConnected     State = "connected"
	StateDisconnecting State = "disconnecting"
	StateDisconnected  State = "disconnected"
)

// Connection wraps one live client socket with its owning user, heartbeat
// timestamps, and lifecycle state. A Connection is created per accepted
// handshake and discarded after it disconnects; it is never reused.
type Connection struct {
	ID       string
	UserID   uuid.UUID
	Metadata map[string]any

	socket domain.Socket
	clock  clockwork.Clock

	mu            sync.Mutex
	state         State
	connectedAt   time.Time
	lastHeartbeat time.Time
}

// NewConnection wraps an upgraded socket. The connection identifier is
// generated by the accepting layer and must be unique per accept.
func NewConnection(socket domain.Socket, userID uuid.UUID, connectionID string, metadata map[string]any, clock clockwork.Clock) *Connection {
	now := clock.Now()
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Connection{
		ID:            connectionID,
		UserID:        userID,
		Metadata:      metadata,
		socket:        socket,
		clock:         clock,
		state:         StateConnecting,
		connectedAt:   now,
		lastHeartbeat: now,
	}
}

// Accept completes the transport handshake and transitions the connection to
// connected. On failure the connection is left disconnected and the
// underlying transport error is surfaced.
func (c *Connection) Accept() error {
	if err := c.socket.Accept(); err != nil {
		c.setState(StateDisconnected)
		return fmt.Errorf("failed to accept connection: %w", err)
	}
	c.setState(StateConnected)
	return nil
}

// SendEnvelope serialises and writes one envelope. It does not retry; the
// drop/retry policy belongs to the caller.
func (c *Connection) SendEnvelope(env domain.Envelope) error {
	if !c.IsConnected() {
		return domain.ErrNotConnected
	}

	data, err := env.Encode()
	if err != nil {
		return err
	}

	if err := c.socket.WriteMessage(data); err != nil {
		return fmt.Errorf("failed to write envelope: %w", err)
	}
	return nil
}

// ReceiveEnvelope blocks until one full envelope arrives or the transport
// closes. Frames that decode but fail validation return an error wrapping
// domain.ErrMalformedMessage or domain.ErrUnknownMessageType, so the caller
// can answer with an error envelope instead of tearing down the connection.
func (c *Connection) ReceiveEnvelope() (domain.Envelope, error) {
	data, err := c.socket.ReadMessage()
	if err != nil {
		return domain.Envelope{}, fmt.Errorf("failed to read frame: %w", err)
	}
	return domain.ParseEnvelope(data)
}

// TouchHeartbeat records a fresh heartbeat. The timestamp never moves
// backwards.
func (c *Connection) TouchHeartbeat() {
	now := c.clock.Now()
	c.mu.Lock()
	if now.After(c.lastHeartbeat) {
		c.lastHeartbeat = now
	}
	c.mu.Unlock()
}

// Close performs the transport close handshake exactly once and transitions
// the connection to disconnected. Later calls are no-ops.
func (c *Connection) Close(code int, reason string) error {
	c.mu.Lock()
	if c.state == StateDisconnecting || c.state == StateDisconnected {
		c.mu.Unlock()
		return nil
	}
	c.state = StateDisconnecting
	c.mu.Unlock()

	err := c.socket.Close(code, reason)
	c.setState(StateDisconnected)

	if err != nil {
		return fmt.Errorf("failed to close socket: %w", err)
	}
	return nil
}

// IsConnected reports whether the connection is in the connected state.
func (c *Connection) IsConnected() bool {
	return c.State() == StateConnected
}

func (c *Connection) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Connection) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// LastHeartbeat returns the time of the most recent heartbeat.
func (c *Connection) LastHeartbeat() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastHeartbeat
}

// TimeSinceHeartbeat returns how long ago the last heartbeat arrived.
func (c *Connection) TimeSinceHeartbeat() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock.Since(c.lastHeartbeat)
}

// Duration returns how long the connection has been established.
func (c *Connection) Duration() time.Duration {
	return c.clock.Since(c.connectedAt)
}

// Snapshot returns the connection's observable state for the stats endpoint.
func (c *Connection) Snapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	return map[string]any{
		"connection_id":                c.ID,
		"user_id":                      c.UserID.String(),
		"state":                        string(c.state),
		"connected_at":                 c.connectedAt,
		"last_heartbeat":               c.lastHeartbeat,
		"duration_seconds":             c.Duration().Seconds(),
		"time_since_heartbeat_seconds": c.clock.Since(c.lastHeartbeat).Seconds(),
	}
}

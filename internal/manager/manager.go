package manager

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/chatrelay/internal/domain"
	"github.com/pscheid92/chatrelay/internal/metrics"
)

const (
	defaultChannel          = "websocket_messages"
	defaultHeartbeatTimeout = 60 * time.Second
	defaultScanInterval     = 30 * time.Second

	// WebSocket close codes used by manager-initiated closes.
	closeNormal    = 1000
	closeGoingAway = 1001
)

// Options configures a Manager. Zero values fall back to defaults.
type Options struct {
	// Channel is the broker channel shared by all instances.
	Channel string

	// HeartbeatTimeout is the maximum allowed silence before a connection is
	// evicted; ScanInterval is how often the liveness monitor checks.
	HeartbeatTimeout time.Duration
	ScanInterval     time.Duration
}

// Manager is the single source of truth for which connections exist and who
// owns them. It orchestrates register/deliver/unregister, bridges the
// pub/sub channel, and runs the liveness monitor.
type Manager struct {
	broker domain.Broker
	opts   Options
	clock  clockwork.Clock

	mu          sync.Mutex
	connections map[string]*Connection
	userIndex   map[uuid.UUID]map[string]struct{}

	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

func NewManager(broker domain.Broker, opts Options, clock clockwork.Clock) *Manager {
	if opts.Channel == "" {
		opts.Channel = defaultChannel
	}
	if opts.HeartbeatTimeout <= 0 {
		opts.HeartbeatTimeout = defaultHeartbeatTimeout
	}
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = defaultScanInterval
	}

	return &Manager{
		broker:      broker,
		opts:        opts,
		clock:       clock,
		connections: make(map[string]*Connection),
		userIndex:   make(map[uuid.UUID]map[string]struct{}),
	}
}

// Start launches the pub/sub listener and the liveness monitor. Shutdown
// stops both.
func (m *Manager) Start(ctx context.Context) {
	ctx, m.cancel = context.WithCancel(ctx)
	m.wg.Add(2)
	go m.listen(ctx)
	go m.monitorLiveness(ctx)

	slog.Info("Connection manager started",
		"channel", m.opts.Channel,
		"heartbeat_timeout", m.opts.HeartbeatTimeout,
		"scan_interval", m.opts.ScanInterval)
}

// Shutdown cancels the background tasks and waits for them to actually stop
// before closing the remaining connections and clearing the registry, so
// neither task can touch the registry after teardown. Safe to call more
// than once.
func (m *Manager) Shutdown() {
	m.stopOnce.Do(func() {
		if m.cancel != nil {
			m.cancel()
		}
		m.wg.Wait()

		m.mu.Lock()
		conns := make([]*Connection, 0, len(m.connections))
		for _, conn := range m.connections {
			conns = append(conns, conn)
		}
		m.connections = make(map[string]*Connection)
		m.userIndex = make(map[uuid.UUID]map[string]struct{})
		m.mu.Unlock()

		for _, conn := range conns {
			if err := conn.Close(closeNormal, "server shutting down"); err != nil {
				slog.Warn("Failed to close connection during shutdown",
					"connection_id", conn.ID, "error", err)
			}
			metrics.ConnectionsCurrent.Dec()
		}

		slog.Info("Connection manager shut down", "closed_connections", len(conns))
	})
}

// Connect registers a connection that already passed Accept. After Connect
// returns the connection is visible to SendToUser and Broadcast from any
// goroutine. The "connected" event publish is best effort; a broker failure
// leaves the connection fully usable locally.
func (m *Manager) Connect(ctx context.Context, conn *Connection) {
	m.mu.Lock()
	m.connections[conn.ID] = conn
	set, ok := m.userIndex[conn.UserID]
	if !ok {
		set = make(map[string]struct{})
		m.userIndex[conn.UserID] = set
	}
	set[conn.ID] = struct{}{}
	total := len(m.connections)
	userTotal := len(set)
	m.mu.Unlock()

	metrics.ConnectionsCurrent.Inc()
	metrics.ConnectionsTotal.Inc()

	slog.Info("WebSocket connection registered",
		"connection_id", conn.ID,
		"user_id", conn.UserID.String(),
		"total_connections", total,
		"user_connections", userTotal)

	m.publishEvent(ctx, conn, domain.EventConnected)
}

// Disconnect removes the connection from the registry, publishes a
// best-effort "disconnected" event, and closes the transport. Idempotent: a
// late duplicate disconnect is a logged no-op. Unregistration happens before
// the close attempt so a slow or failed close cannot leak registry state.
func (m *Manager) Disconnect(ctx context.Context, connectionID string, code int, reason string) {
	m.mu.Lock()
	conn, ok := m.connections[connectionID]
	if ok {
		delete(m.connections, connectionID)
		if set, exists := m.userIndex[conn.UserID]; exists {
			delete(set, connectionID)
			if len(set) == 0 {
				delete(m.userIndex, conn.UserID)
			}
		}
	}
	total := len(m.connections)
	m.mu.Unlock()

	if !ok {
		slog.Warn("Attempted to disconnect unknown connection", "connection_id", connectionID)
		return
	}

	metrics.ConnectionsCurrent.Dec()

	m.publishEvent(ctx, conn, domain.EventDisconnected)

	if err := conn.Close(code, reason); err != nil {
		slog.Error("Failed to close connection",
			"connection_id", connectionID, "error", err)
	}

	slog.Info("WebSocket connection disconnected",
		"connection_id", connectionID,
		"user_id", conn.UserID.String(),
		"code", code,
		"reason", reason,
		"total_connections", total)
}

// Get returns the connection for the identifier if it is registered. The
// returned connection may disconnect concurrently; callers must not assume
// it stays valid.
func (m *Manager) Get(connectionID string) (*Connection, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conn, ok := m.connections[connectionID]
	return conn, ok
}

// SendToConnection writes one envelope to a single connection. Returns false
// if the connection is absent, not connected, or the write fails; failures
// are logged, never escalated. At-most-once, no retry.
func (m *Manager) SendToConnection(connectionID string, env domain.Envelope) bool {
	m.mu.Lock()
	conn, ok := m.connections[connectionID]
	m.mu.Unlock()

	if !ok || !conn.IsConnected() {
		slog.Debug("Connection not found or not connected", "connection_id", connectionID)
		return false
	}

	if err := conn.SendEnvelope(env); err != nil {
		metrics.DeliveryFailures.Inc()
		slog.Warn("Failed to send message to connection",
			"connection_id", connectionID, "error", err)
		return false
	}

	metrics.MessagesDelivered.Inc()
	return true
}

// SendToUser fans the envelope out to every connection registered for the
// user at call time and returns the number of successful sends. Connections
// that disconnect mid-fan-out count as non-deliveries, not errors.
func (m *Manager) SendToUser(userID uuid.UUID, env domain.Envelope) int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.userIndex[userID]))
	for id := range m.userIndex[userID] {
		ids = append(ids, id)
	}
	m.mu.Unlock()

	sent := 0
	for _, id := range ids {
		if m.SendToConnection(id, env) {
			sent++
		}
	}

	slog.Debug("Message sent to user connections",
		"user_id", userID.String(), "sent", sent, "targets", len(ids))
	return sent
}

// Broadcast fans the envelope out to every registered connection except
// excludeConnectionID (empty string excludes nothing) and returns the number
// of successful sends.
func (m *Manager) Broadcast(env domain.Envelope, excludeConnectionID string) int {
	m.mu.Lock()
	ids := make([]string, 0, len(m.connections))
	for id := range m.connections {
		if id != excludeConnectionID {
			ids = append(ids, id)
		}
	}
	m.mu.Unlock()

	sent := 0
	for _, id := range ids {
		if m.SendToConnection(id, env) {
			sent++
		}
	}
	return sent
}

// Publish serialises the envelope onto the shared broker channel so peer
// instances deliver it to their own clients. Publish failures are logged and
// dropped; this is a best-effort real-time channel.
func (m *Manager) Publish(ctx context.Context, env domain.Envelope) {
	data, err := env.Encode()
	if err != nil {
		slog.Error("Failed to encode envelope for publish", "type", env.Type, "error", err)
		return
	}

	if err := m.broker.Publish(ctx, m.opts.Channel, data); err != nil {
		metrics.PubSubPublishErrors.Inc()
		slog.Error("Failed to publish message to broker",
			"channel", m.opts.Channel, "type", env.Type, "error", err)
	}
}

func (m *Manager) publishEvent(ctx context.Context, conn *Connection, event string) {
	env := domain.NewConnectionEvent(event, conn.UserID.String(), conn.ID, m.clock.Now())
	m.Publish(ctx, env)
}

// ConnectionCount returns the number of registered connections.
func (m *Manager) ConnectionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.connections)
}

// UserConnectionCount returns the number of connections registered for one user.
func (m *Manager) UserConnectionCount(userID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.userIndex[userID])
}

// ConnectionSnapshots returns the observable state of every registered
// connection. The registry is snapshotted first so per-connection locks are
// never taken while holding the registry lock.
func (m *Manager) ConnectionSnapshots() []map[string]any {
	m.mu.Lock()
	conns := make([]*Connection, 0, len(m.connections))
	for _, conn := range m.connections {
		conns = append(conns, conn)
	}
	m.mu.Unlock()

	snapshots := make([]map[string]any, 0, len(conns))
	for _, conn := range conns {
		snapshots = append(snapshots, conn.Snapshot())
	}
	return snapshots
}

// Stats returns aggregate registry statistics for the stats endpoint.
func (m *Manager) Stats() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	average := 0.0
	if len(m.userIndex) > 0 {
		average = float64(len(m.connections)) / float64(len(m.userIndex))
	}

	return map[string]any{
		"total_connections":            len(m.connections),
		"total_users":                  len(m.userIndex),
		"average_connections_per_user": average,
		"channel":                      m.opts.Channel,
	}
}

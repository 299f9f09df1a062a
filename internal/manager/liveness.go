package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/pscheid92/chatrelay/internal/metrics"
)

// monitorLiveness periodically evicts connections whose peer has stopped
// heartbeating. It blocks until ctx is cancelled.
func (m *Manager) monitorLiveness(ctx context.Context) {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.opts.ScanInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			m.evictStale(ctx)
		}
	}
}

// evictStale runs one liveness scan. Candidates are snapshotted before any
// eviction because Disconnect mutates the registry being scanned. A
// connection already removed by another path is skipped by the idempotent
// Disconnect, and one failed eviction never stops the rest of the pass.
func (m *Manager) evictStale(ctx context.Context) {
	type candidate struct {
		id     string
		userID uuid.UUID
		stale  time.Duration
	}

	m.mu.Lock()
	var stale []candidate
	for id, conn := range m.connections {
		if since := conn.TimeSinceHeartbeat(); since > m.opts.HeartbeatTimeout {
			stale = append(stale, candidate{id: id, userID: conn.UserID, stale: since})
		}
	}
	m.mu.Unlock()

	for _, c := range stale {
		slog.Warn("Connection heartbeat timeout",
			"connection_id", c.id,
			"user_id", c.userID.String(),
			"time_since_heartbeat", c.stale)
		metrics.HeartbeatTimeouts.Inc()
		m.Disconnect(ctx, c.id, closeGoingAway, "heartbeat timeout")
	}
}

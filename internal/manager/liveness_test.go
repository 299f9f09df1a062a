package manager

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/pscheid92/chatrelay/internal/broker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeClockManager(t *testing.T, opts Options) (*Manager, *clockwork.FakeClock) {
	t.Helper()
	clock := clockwork.NewFakeClock()
	m := NewManager(broker.NewMemoryBroker(), opts, clock)
	return m, clock
}

func TestEvictStale_RemovesSilentConnections(t *testing.T) {
	m, clock := newFakeClockManager(t, Options{HeartbeatTimeout: 60 * time.Second})
	ctx := context.Background()

	conn, sock := connectClient(t, m, uuid.New())

	clock.Advance(61 * time.Second)
	m.evictStale(ctx)

	assert.Equal(t, 0, m.ConnectionCount())
	closed, code, reason := sock.closedWith()
	assert.True(t, closed)
	assert.Equal(t, closeGoingAway, code)
	assert.Equal(t, "heartbeat timeout", reason)
	_ = conn
}

func TestEvictStale_KeepsConnectionsWithinTimeout(t *testing.T) {
	m, clock := newFakeClockManager(t, Options{HeartbeatTimeout: 60 * time.Second})
	ctx := context.Background()

	_, sock := connectClient(t, m, uuid.New())

	clock.Advance(59 * time.Second)
	m.evictStale(ctx)

	assert.Equal(t, 1, m.ConnectionCount())
	closed, _, _ := sock.closedWith()
	assert.False(t, closed)
}

func TestEvictStale_HeartbeatResetsTheClock(t *testing.T) {
	m, clock := newFakeClockManager(t, Options{HeartbeatTimeout: 60 * time.Second})
	ctx := context.Background()

	conn, _ := connectClient(t, m, uuid.New())

	clock.Advance(45 * time.Second)
	conn.TouchHeartbeat()
	clock.Advance(45 * time.Second)
	m.evictStale(ctx)
	assert.Equal(t, 1, m.ConnectionCount(), "90s old but heartbeat 45s ago must survive")

	clock.Advance(16 * time.Second)
	m.evictStale(ctx)
	assert.Equal(t, 0, m.ConnectionCount())
}

func TestEvictStale_OnlyStaleConnectionsGo(t *testing.T) {
	m, clock := newFakeClockManager(t, Options{HeartbeatTimeout: 60 * time.Second})
	ctx := context.Background()

	stale, staleSock := connectClient(t, m, uuid.New())
	fresh, freshSock := connectClient(t, m, uuid.New())

	clock.Advance(40 * time.Second)
	fresh.TouchHeartbeat()
	clock.Advance(30 * time.Second)
	m.evictStale(ctx)

	assert.Equal(t, 1, m.ConnectionCount())
	_, ok := m.Get(stale.ID)
	assert.False(t, ok)
	_, ok = m.Get(fresh.ID)
	assert.True(t, ok)

	closed, _, _ := staleSock.closedWith()
	assert.True(t, closed)
	closed, _, _ = freshSock.closedWith()
	assert.False(t, closed)
}

func TestMonitorLiveness_EvictsOnTick(t *testing.T) {
	clock := clockwork.NewFakeClock()
	m := NewManager(broker.NewMemoryBroker(), Options{
		HeartbeatTimeout: 60 * time.Second,
		ScanInterval:     30 * time.Second,
	}, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	m.Start(ctx)
	t.Cleanup(m.Shutdown)

	_, sock := connectClient(t, m, uuid.New())

	// Wait for both background tasks to park on the clock (liveness ticker
	// and the resubscribe timer are the only fake clock waiters).
	clock.BlockUntil(1)

	clock.Advance(30 * time.Second)
	clock.BlockUntil(1)
	assert.Equal(t, 1, m.ConnectionCount(), "first scan must not evict yet")

	clock.Advance(31 * time.Second)
	require.Eventually(t, func() bool {
		return m.ConnectionCount() == 0
	}, 2*time.Second, 10*time.Millisecond, "second scan should evict the silent connection")

	closed, code, _ := sock.closedWith()
	assert.True(t, closed)
	assert.Equal(t, closeGoingAway, code)
}

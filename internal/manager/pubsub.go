package manager

import (
	"context"
	"log/slog"
	"time"

	"github.com/pscheid92/chatrelay/internal/domain"
	"github.com/pscheid92/chatrelay/internal/metrics"
)

const resubscribeDelay = 5 * time.Second

// listen maintains the broker subscription for the lifetime of the manager.
// Every inbound broker message is decoded and re-broadcast to the locally
// registered connections with no exclusion. When the subscription fails the
// listener re-subscribes after a delay; it ends only when ctx is cancelled.
func (m *Manager) listen(ctx context.Context) {
	defer m.wg.Done()

	for {
		sub, err := m.broker.Subscribe(ctx, m.opts.Channel)
		if err != nil {
			slog.Error("Failed to subscribe to broker channel",
				"channel", m.opts.Channel, "error", err)
			if !m.waitForResubscribe(ctx) {
				return
			}
			continue
		}

		slog.Info("Pub/sub listener subscribed", "channel", m.opts.Channel)
		m.consume(ctx, sub)

		if ctx.Err() != nil {
			return
		}

		slog.Warn("Broker subscription ended, re-subscribing", "channel", m.opts.Channel)
		if !m.waitForResubscribe(ctx) {
			return
		}
	}
}

// consume drains one subscription until it closes or ctx is cancelled. A
// message that fails to decode is logged and skipped; one bad message must
// not terminate the subscription.
func (m *Manager) consume(ctx context.Context, sub domain.Subscription) {
	defer func() {
		_ = sub.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-sub.Messages():
			if !ok {
				return
			}

			metrics.PubSubMessagesReceived.WithLabelValues(m.opts.Channel).Inc()

			env, err := domain.ParseEnvelope(payload)
			if err != nil {
				slog.Error("Failed to decode pub/sub message",
					"channel", m.opts.Channel, "error", err)
				continue
			}

			m.Broadcast(env, "")
		}
	}
}

func (m *Manager) waitForResubscribe(ctx context.Context) bool {
	select {
	case <-ctx.Done():
		return false
	case <-m.clock.After(resubscribeDelay):
		metrics.PubSubResubscribes.Inc()
		return true
	}
}

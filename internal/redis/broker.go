package redis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pscheid92/chatrelay/internal/domain"
	"github.com/redis/go-redis/v9"
)

const subscriptionBuffer = 64

// Broker implements domain.Broker on top of Redis pub/sub, enabling
// cross-instance message fan-out in a horizontally scaled deployment.
type Broker struct {
	client *redis.Client
}

var _ domain.Broker = (*Broker)(nil)

// NewBroker creates a Redis-backed broker.
func NewBroker(client *redis.Client) *Broker {
	return &Broker{client: client}
}

// Publish sends one serialized envelope to every current subscriber of the channel.
func (b *Broker) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := b.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish to channel %q: %w", channel, err)
	}
	return nil
}

// Subscribe opens a subscription to the channel. The returned subscription's
// Messages channel is closed when the subscription ends.
func (b *Broker) Subscribe(ctx context.Context, channel string) (domain.Subscription, error) {
	pubsub := b.client.Subscribe(ctx, channel)

	// Confirm the subscription before handing it out, so a dead Redis
	// surfaces here instead of as a silently empty channel.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to channel %q: %w", channel, err)
	}

	sub := &subscription{
		pubsub:   pubsub,
		messages: make(chan []byte, subscriptionBuffer),
	}
	go sub.pump()

	return sub, nil
}

type subscription struct {
	pubsub   *redis.PubSub
	messages chan []byte
}

func (s *subscription) pump() {
	defer close(s.messages)
	for msg := range s.pubsub.Channel() {
		select {
		case s.messages <- []byte(msg.Payload):
		default:
			slog.Warn("Dropping pub/sub message: subscriber buffer full",
				"channel", msg.Channel)
		}
	}
}

func (s *subscription) Messages() <-chan []byte {
	return s.messages
}

func (s *subscription) Close() error {
	return s.pubsub.Close()
}

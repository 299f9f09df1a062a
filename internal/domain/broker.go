package domain

import "context"

// Subscription is one live subscription to a broker channel. Messages is
// closed when the subscription ends, whether by Close or by a broker-side
// failure.
type Subscription interface {
	Messages() <-chan []byte
	Close() error
}

// Broker is the publish/subscribe channel abstraction used for
// cross-instance fan-out. Delivery is at-least-once to current subscribers;
// no ordering is guaranteed across channels.
type Broker interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (Subscription, error)
}

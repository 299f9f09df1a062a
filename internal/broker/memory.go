// Package broker provides an in-process implementation of domain.Broker.
//
// It backs single-instance deployments that run without Redis, and gives
// tests a way to connect multiple managers through a shared bus.
package broker

import (
	"context"
	"log/slog"
	"sync"

	"github.com/pscheid92/chatrelay/internal/domain"
)

const subscriptionBuffer = 64

// MemoryBroker fans published payloads out to every current subscriber of a
// channel within the same process.
type MemoryBroker struct {
	mu   sync.Mutex
	subs map[string][]*memorySubscription
}

var _ domain.Broker = (*MemoryBroker)(nil)

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{subs: make(map[string][]*memorySubscription)}
}

// Publish delivers the payload to all current subscribers of the channel.
// Subscribers with a full buffer miss the message, matching the best-effort
// semantics of the Redis-backed broker.
func (b *MemoryBroker) Publish(_ context.Context, channel string, payload []byte) error {
	b.mu.Lock()
	subs := make([]*memorySubscription, len(b.subs[channel]))
	copy(subs, b.subs[channel])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.deliver(payload)
	}
	return nil
}

// Subscribe registers a new subscription to the channel.
func (b *MemoryBroker) Subscribe(_ context.Context, channel string) (domain.Subscription, error) {
	sub := &memorySubscription{
		broker:   b,
		channel:  channel,
		messages: make(chan []byte, subscriptionBuffer),
	}

	b.mu.Lock()
	b.subs[channel] = append(b.subs[channel], sub)
	b.mu.Unlock()

	return sub, nil
}

func (b *MemoryBroker) remove(target *memorySubscription) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[target.channel]
	for i, sub := range subs {
		if sub == target {
			b.subs[target.channel] = append(subs[:i], subs[i+1:]...)
			break
		}
	}
	if len(b.subs[target.channel]) == 0 {
		delete(b.subs, target.channel)
	}
}

type memorySubscription struct {
	broker   *MemoryBroker
	channel  string
	messages chan []byte

	mu     sync.Mutex
	closed bool
}

func (s *memorySubscription) deliver(payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	select {
	case s.messages <- payload:
	default:
		slog.Warn("Dropping in-memory pub/sub message: subscriber buffer full",
			"channel", s.channel)
	}
}

func (s *memorySubscription) Messages() <-chan []byte {
	return s.messages
}

func (s *memorySubscription) Close() error {
	s.broker.remove(s)

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.messages)
	}
	return nil
}

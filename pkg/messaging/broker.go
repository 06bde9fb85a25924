package messaging

import (
	"context"
	"sync"
)

// Broker defines the interface for message brokers
type Broker interface {
	Publish(ctx context.Context, channel string, message interface{}) error
	Close() error
}

// Message is the envelope published for every event.
type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// NopBroker discards every message. Used when no broker is configured.
type NopBroker struct{}

func (NopBroker) Publish(context.Context, string, interface{}) error { return nil }

func (NopBroker) Close() error { return nil }

// MemoryBroker records published messages in memory. Handy in tests.
type MemoryBroker struct {
	mu       sync.Mutex
	Messages map[string][]interface{}
}

func NewMemoryBroker() *MemoryBroker {
	return &MemoryBroker{Messages: make(map[string][]interface{})}
}

func (b *MemoryBroker) Publish(_ context.Context, channel string, message interface{}) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Messages[channel] = append(b.Messages[channel], message)
	return nil
}

func (b *MemoryBroker) Close() error { return nil }

// Published returns a copy of the messages sent to channel.
func (b *MemoryBroker) Published(channel string) []interface{} {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]interface{}, len(b.Messages[channel]))
	copy(out, b.Messages[channel])
	return out
}

package messaging

import (
	"context"
	"fmt"
)

// Publisher publishes typed events onto a single broker channel.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
}

type channelPublisher struct {
	broker  Broker
	channel string
}

// NewPublisher wraps broker so every event is sent to channel as a Message.
func NewPublisher(broker Broker, channel string) Publisher {
	return &channelPublisher{broker: broker, channel: channel}
}

func (p *channelPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if err := p.broker.Publish(ctx, p.channel, Message{Type: eventType, Payload: payload}); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}
	return nil
}

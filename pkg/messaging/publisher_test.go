package messaging

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingBroker struct{ NopBroker }

func (failingBroker) Publish(context.Context, string, interface{}) error {
	return errors.New("connection reset")
}

func TestPublisherWrapsEvents(t *testing.T) {
	broker := NewMemoryBroker()
	p := NewPublisher(broker, "clinic.appointments")

	require.NoError(t, p.Publish(context.Background(), "appointment.created", map[string]string{"id": "1"}))

	msgs := broker.Published("clinic.appointments")
	require.Len(t, msgs, 1)
	msg, ok := msgs[0].(Message)
	require.True(t, ok)
	assert.Equal(t, "appointment.created", msg.Type)
	assert.Equal(t, map[string]string{"id": "1"}, msg.Payload)
	assert.Empty(t, broker.Published("other"))
}

func TestPublisherError(t *testing.T) {
	p := NewPublisher(failingBroker{}, "events")
	err := p.Publish(context.Background(), "appointment.deleted", nil)
	assert.ErrorContains(t, err, "failed to publish appointment.deleted")
}

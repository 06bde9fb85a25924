package email

import (
	"context"
	"errors"
)

var ErrNoRecipient = errors.New("mail has no recipient")

// Message is a templated email. Data holds the template parameters.
type Message struct {
	To       []string
	Subject  string
	Template string
	Data     map[string]string
}

type Mailer interface {
	Send(ctx context.Context, msg *Message) error
}

func (m *Message) validate() error {
	for _, to := range m.To {
		if to != "" {
			return nil
		}
	}
	return ErrNoRecipient
}

package email

import (
	"context"

	"github.com/rs/zerolog"
)

// NopMailer drops every message with a warning. Used when no mail
// credentials are configured.
type NopMailer struct {
	logger zerolog.Logger
}

func NewNopMailer(logger zerolog.Logger) *NopMailer {
	return &NopMailer{logger: logger.With().Str("component", "mailer").Logger()}
}

func (m *NopMailer) Send(_ context.Context, msg *Message) error {
	m.logger.Warn().
		Strs("to", msg.To).
		Str("template", msg.Template).
		Msg("mail credentials not configured, email skipped")
	return nil
}

package email

import (
	"context"
	"fmt"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/repository"
)

// QueueMailer appends mail documents for an external delivery trigger
// instead of talking SMTP itself.
type QueueMailer struct {
	repo repository.MailRepository
}

func NewQueueMailer(repo repository.MailRepository) *QueueMailer {
	return &QueueMailer{repo: repo}
}

func (m *QueueMailer) Send(ctx context.Context, msg *Message) error {
	if err := msg.validate(); err != nil {
		return err
	}
	for _, to := range msg.To {
		if to == "" {
			continue
		}
		doc := &model.MailDocument{
			To:           to,
			Subject:      msg.Subject,
			Template:     msg.Template,
			TemplateData: msg.Data,
		}
		if err := m.repo.Enqueue(ctx, doc); err != nil {
			return fmt.Errorf("failed to queue mail for %s: %w", to, err)
		}
	}
	return nil
}

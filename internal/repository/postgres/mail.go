package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/model"
)

// Enqueue appends a document to the mail table polled by the external mail
// trigger.
func (r *mailRepository) Enqueue(ctx context.Context, doc *model.MailDocument) error {
	payload, err := json.Marshal(doc.TemplateData)
	if err != nil {
		return fmt.Errorf("failed to marshal mail payload: %w", err)
	}
	doc.Payload = string(payload)
	doc.ID = uuid.New()
	doc.CreatedAt = time.Now()

	query := `
		INSERT INTO mail (id, recipient, subject, template, payload, created_at)
		VALUES (:id, :recipient, :subject, :template, :payload, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("failed to enqueue mail: %w", err)
	}
	return nil
}

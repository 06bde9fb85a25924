package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/repository"
)

const consultationColumns = `id, appointment_id, patient_id, clinician_id, visit_date,
	observations, exams, medications, created_at, updated_at`

// Create inserts the consultation. The unique index on appointment_id
// surfaces as repository.ErrDuplicate.
func (r *consultationRepository) Create(ctx context.Context, c *model.Consultation) error {
	query := `
		INSERT INTO consultations (` + consultationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	c.ID = uuid.New()
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.AppointmentID,
		c.PatientID,
		c.ClinicianID,
		c.VisitDate,
		c.ObservationsEnc,
		c.ExamsEnc,
		c.MedicationsEnc,
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consultation: %w", translate(err))
	}
	return nil
}

func (r *consultationRepository) Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE id = $1`

	var c model.Consultation
	if err := r.db.GetContext(ctx, &c, query, id); err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", translate(err))
	}
	return &c, nil
}

func (r *consultationRepository) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE appointment_id = $1`

	var c model.Consultation
	if err := r.db.GetContext(ctx, &c, query, appointmentID); err != nil {
		return nil, fmt.Errorf("failed to get consultation: %w", translate(err))
	}
	return &c, nil
}

func (r *consultationRepository) Update(ctx context.Context, c *model.Consultation) error {
	query := `
		UPDATE consultations
		SET visit_date = $1, observations = $2, exams = $3, medications = $4, updated_at = $5
		WHERE id = $6
	`
	c.UpdatedAt = time.Now()

	result, err := r.db.ExecContext(ctx, query,
		c.VisitDate,
		c.ObservationsEnc,
		c.ExamsEnc,
		c.MedicationsEnc,
		c.UpdatedAt,
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update consultation: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to update consultation: %w", repository.ErrNotFound)
	}
	return nil
}

func (r *consultationRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.Consultation, error) {
	query := `SELECT ` + consultationColumns + ` FROM consultations WHERE patient_id = $1`

	consultations := []*model.Consultation{}
	if err := r.db.SelectContext(ctx, &consultations, query, patientID); err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	return consultations, nil
}

package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/repository"
)

const appointmentColumns = `id, patient_id, patient_name, patient_email, patient_phone,
	clinician_id, clinician_email, title, category, color,
	start_time, end_time, description, status,
	external_event_id, sync_status, sync_error,
	created_at, updated_at`

func (r *appointmentRepository) Create(ctx context.Context, appointment *model.Appointment) error {
	query := `
		INSERT INTO appointments (` + appointmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)
	`
	appointment.ID = uuid.New()
	if appointment.CreatedAt.IsZero() {
		appointment.CreatedAt = time.Now()
	}
	appointment.UpdatedAt = appointment.CreatedAt

	_, err := r.db.ExecContext(ctx, query,
		appointment.ID,
		appointment.PatientID,
		appointment.PatientName,
		appointment.PatientEmail,
		appointment.PatientPhone,
		appointment.ClinicianID,
		appointment.ClinicianEmail,
		appointment.Title,
		appointment.Category,
		appointment.Color,
		appointment.Start,
		appointment.End,
		appointment.Description,
		appointment.Status,
		appointment.ExternalEventID,
		appointment.SyncStatus,
		appointment.SyncError,
		appointment.CreatedAt,
		appointment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create appointment: %w", translate(err))
	}
	return nil
}

func (r *appointmentRepository) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, id); err != nil {
		return nil, fmt.Errorf("failed to get appointment: %w", translate(err))
	}
	return &appointment, nil
}

// Update writes only the fields set on update and returns the merged row.
func (r *appointmentRepository) Update(ctx context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error) {
	var (
		sets []string
		args []interface{}
	)
	set := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		set("title", *update.Title)
	}
	if update.Description != nil {
		set("description", *update.Description)
	}
	if update.Category != nil {
		set("category", *update.Category)
		set("color", update.Category.Color())
	}
	if update.Start != nil {
		set("start_time", *update.Start)
	}
	if update.End != nil {
		set("end_time", *update.End)
	}
	if update.Status != nil {
		set("status", *update.Status)
	}
	if update.ExternalEventID != nil {
		set("external_event_id", *update.ExternalEventID)
	}
	if update.SyncStatus != nil {
		set("sync_status", *update.SyncStatus)
	}
	if update.SyncError != nil {
		set("sync_error", *update.SyncError)
	} else if update.ClearSyncError {
		sets = append(sets, "sync_error = NULL")
	}
	set("updated_at", time.Now())

	args = append(args, id)
	query := fmt.Sprintf(`UPDATE appointments SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(args), appointmentColumns)

	var appointment model.Appointment
	if err := r.db.GetContext(ctx, &appointment, query, args...); err != nil {
		return nil, fmt.Errorf("failed to update appointment: %w", translate(err))
	}
	return &appointment, nil
}

func (r *appointmentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `
		DELETE FROM appointments
		WHERE id = $1
	`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete appointment: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("failed to delete appointment: %w", repository.ErrNotFound)
	}

	return nil
}

func (r *appointmentRepository) ListByClinician(ctx context.Context, clinicianID string) ([]*model.Appointment, error) {
	return r.list(ctx, "clinician_id", clinicianID)
}

func (r *appointmentRepository) ListByPatient(ctx context.Context, patientID string) ([]*model.Appointment, error) {
	return r.list(ctx, "patient_id", patientID)
}

func (r *appointmentRepository) list(ctx context.Context, column, value string) ([]*model.Appointment, error) {
	query := fmt.Sprintf(`SELECT %s FROM appointments WHERE %s = $1`, appointmentColumns, column)

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, value); err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	return appointments, nil
}

func (r *appointmentRepository) ListUnsynced(ctx context.Context, olderThan time.Time, limit int) ([]*model.Appointment, error) {
	query := `SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE sync_status IN ('pending', 'failed', 'skipped')
		AND updated_at < $1
		ORDER BY updated_at ASC
		LIMIT $2`

	appointments := []*model.Appointment{}
	if err := r.db.SelectContext(ctx, &appointments, query, olderThan, limit); err != nil {
		return nil, fmt.Errorf("failed to list unsynced appointments: %w", err)
	}
	return appointments, nil
}

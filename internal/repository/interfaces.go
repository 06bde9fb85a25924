package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/model"
)

var (
	// ErrNotFound is returned by every repository when no row matches.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects a write.
	ErrDuplicate = errors.New("duplicate record")
)

// All repository interfaces in one file
type (
	// AppointmentRepository is the keyed store behind the record manager.
	// Lists come back unordered.
	AppointmentRepository interface {
		Create(ctx context.Context, appointment *model.Appointment) error
		Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
		Update(ctx context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error)
		Delete(ctx context.Context, id uuid.UUID) error
		ListByClinician(ctx context.Context, clinicianID string) ([]*model.Appointment, error)
		ListByPatient(ctx context.Context, patientID string) ([]*model.Appointment, error)
		// ListUnsynced returns appointments whose calendar mirror is pending,
		// failed or skipped and which were last touched before olderThan.
		ListUnsynced(ctx context.Context, olderThan time.Time, limit int) ([]*model.Appointment, error)
	}

	ConsultationRepository interface {
		Create(ctx context.Context, consultation *model.Consultation) error
		Get(ctx context.Context, id uuid.UUID) (*model.Consultation, error)
		GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Consultation, error)
		Update(ctx context.Context, consultation *model.Consultation) error
		ListByPatient(ctx context.Context, patientID string) ([]*model.Consultation, error)
	}

	// PatientRepository is read-only for the API. Patients are written by
	// the identity platform's onboarding flow; Upsert serves that sync and
	// the seed command.
	PatientRepository interface {
		Get(ctx context.Context, id string) (*model.Patient, error)
		List(ctx context.Context) ([]*model.Patient, error)
		Upsert(ctx context.Context, patient *model.Patient) error
	}

	MailRepository interface {
		Enqueue(ctx context.Context, doc *model.MailDocument) error
	}
)

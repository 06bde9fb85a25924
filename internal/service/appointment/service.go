package appointment

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/repository"
)

// Service is the appointment record manager. It owns validation and
// ordering; persistence is delegated to the repository.
type Service struct {
	repo   repository.AppointmentRepository
	logger zerolog.Logger
	now    func() time.Time
}

func NewService(repo repository.AppointmentRepository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("component", "appointment-service").Logger(),
		now:    time.Now,
	}
}

func validateRange(start, end time.Time) error {
	if !end.After(start) {
		return model.ErrInvalidTimeRange
	}
	return nil
}

func (s *Service) validate(apt *model.Appointment) error {
	if !apt.Category.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidCategory, apt.Category)
	}
	if !apt.Status.Valid() {
		return fmt.Errorf("%w: %q", model.ErrInvalidStatus, apt.Status)
	}
	return validateRange(apt.Start, apt.End)
}

// Create stores a new appointment and returns it with its assigned id.
func (s *Service) Create(ctx context.Context, apt *model.Appointment) (*model.Appointment, error) {
	if apt.Status == "" {
		apt.Status = model.AppointmentStatusScheduled
	}
	if err := s.validate(apt); err != nil {
		return nil, fmt.Errorf("invalid appointment: %w", err)
	}

	apt.Color = apt.Category.Color()
	apt.CreatedAt = s.now()
	apt.UpdatedAt = apt.CreatedAt

	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, fmt.Errorf("failed to create appointment: %w", err)
	}

	s.logger.Debug().
		Str("appointment_id", apt.ID.String()).
		Str("clinician_id", apt.ClinicianID).
		Msg("appointment created")
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to get appointment: %w", err)
	}
	return apt, nil
}

// ListForClinician returns the clinician's appointments, earliest first.
func (s *Service) ListForClinician(ctx context.Context, clinicianID string) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListByClinician(ctx, clinicianID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	sort.SliceStable(appointments, func(i, j int) bool {
		return appointments[i].Start.Before(appointments[j].Start)
	})
	return appointments, nil
}

// ListForPatient returns the patient's appointments, latest first.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list appointments: %w", err)
	}
	sort.SliceStable(appointments, func(i, j int) bool {
		return appointments[i].Start.After(appointments[j].Start)
	})
	return appointments, nil
}

// Update applies a partial update. Concurrent writers are last-write-wins.
func (s *Service) Update(ctx context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error) {
	if update == nil || update.Empty() {
		return s.Get(ctx, id)
	}
	if update.Category != nil && !update.Category.Valid() {
		return nil, fmt.Errorf("invalid appointment: %w: %q", model.ErrInvalidCategory, *update.Category)
	}
	if update.Status != nil && !update.Status.Valid() {
		return nil, fmt.Errorf("invalid appointment: %w: %q", model.ErrInvalidStatus, *update.Status)
	}

	if update.Start != nil || update.End != nil {
		current, err := s.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		start, end := current.Start, current.End
		if update.Start != nil {
			start = *update.Start
		}
		if update.End != nil {
			end = *update.End
		}
		if err := validateRange(start, end); err != nil {
			return nil, fmt.Errorf("invalid appointment: %w", err)
		}
	}

	apt, err := s.repo.Update(ctx, id, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrAppointmentNotFound
		}
		return nil, fmt.Errorf("failed to update appointment: %w", err)
	}
	return apt, nil
}

// Delete removes the record permanently. Mirrored calendar events must be
// removed by the caller first.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.ErrAppointmentNotFound
		}
		return fmt.Errorf("failed to delete appointment: %w", err)
	}
	return nil
}

// ListUnsynced returns appointments whose calendar mirror needs another push.
func (s *Service) ListUnsynced(ctx context.Context, olderThan time.Time, limit int) ([]*model.Appointment, error) {
	appointments, err := s.repo.ListUnsynced(ctx, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list unsynced appointments: %w", err)
	}
	return appointments, nil
}

package scheduling

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/medilink/clinic-api/internal/calendar"
	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/service/consultation"
	"github.com/medilink/clinic-api/pkg/messaging"
)

const (
	EventCreated   = "appointment.created"
	EventUpdated   = "appointment.updated"
	EventCancelled = "appointment.cancelled"
	EventDeleted   = "appointment.deleted"
	EventCompleted = "appointment.completed"
)

// Records is the appointment record manager.
type Records interface {
	Create(ctx context.Context, apt *model.Appointment) (*model.Appointment, error)
	Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error)
	Update(ctx context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Calendar mirrors appointments onto an external calendar.
type Calendar interface {
	Push(ctx context.Context, apt *model.Appointment) (string, error)
	Remove(ctx context.Context, clinicianID, foreignID string) error
}

type Notifier interface {
	SendConfirmation(ctx context.Context, apt *model.Appointment) error
	SendReminder(ctx context.Context, apt *model.Appointment) error
}

type Patients interface {
	Get(ctx context.Context, id string) (*model.Patient, error)
}

type Consultations interface {
	Create(ctx context.Context, apt *model.Appointment, in consultation.Input) (*model.Consultation, error)
	GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Consultation, error)
}

// ScheduleRequest describes a new appointment, optionally repeated.
type ScheduleRequest struct {
	ClinicianID    string
	ClinicianEmail string
	PatientID      string
	Title          string
	Category       model.AppointmentCategory
	Start          time.Time
	End            time.Time
	Description    string
	Status         model.AppointmentStatus
	// Frequency and Count request a recurring series. Count <= 1 creates a
	// single appointment.
	Frequency model.Frequency
	Count     int
}

// Event is the payload published for appointment lifecycle changes.
type Event struct {
	AppointmentID uuid.UUID               `json:"appointment_id"`
	ClinicianID   string                  `json:"clinician_id"`
	PatientID     string                  `json:"patient_id"`
	Status        model.AppointmentStatus `json:"status"`
	Start         time.Time               `json:"start"`
	End           time.Time               `json:"end"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// Service orchestrates the record store, the calendar mirror and patient
// notifications. The record write and the calendar push are separate steps
// with no rollback: a failed push leaves the record marked for the
// reconciler.
type Service struct {
	records       Records
	calendar      Calendar
	notifier      Notifier
	patients      Patients
	consultations Consultations
	publisher     messaging.Publisher
	logger        zerolog.Logger
	now           func() time.Time

	notifyTimeout time.Duration
	pending       sync.WaitGroup
}

type Option func(*Service)

// WithCalendar enables calendar mirroring.
func WithCalendar(c Calendar) Option {
	return func(s *Service) { s.calendar = c }
}

func WithPublisher(p messaging.Publisher) Option {
	return func(s *Service) { s.publisher = p }
}

// WithNotifyTimeout bounds each background confirmation send.
func WithNotifyTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.notifyTimeout = d
		}
	}
}

func NewService(records Records, notifier Notifier, patients Patients, consultations Consultations, logger zerolog.Logger, opts ...Option) *Service {
	s := &Service{
		records:       records,
		notifier:      notifier,
		patients:      patients,
		consultations: consultations,
		logger:        logger.With().Str("component", "scheduling").Logger(),
		now:           time.Now,
		notifyTimeout: 30 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) SyncEnabled() bool {
	return s.calendar != nil
}

// Schedule creates the requested appointment, or the whole series when a
// recurrence is given. Each instance is persisted, announced to the patient
// in the background and pushed to the calendar in turn. Notification and
// calendar failures are logged only. A store failure stops the series and returns the instances
// created so far together with the error.
func (s *Service) Schedule(ctx context.Context, req ScheduleRequest) ([]*model.Appointment, error) {
	if !req.Category.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidCategory, req.Category)
	}
	if !req.End.After(req.Start) {
		return nil, model.ErrInvalidTimeRange
	}
	if req.Count > 1 && !req.Frequency.Valid() {
		return nil, fmt.Errorf("%w: %q", model.ErrInvalidFrequency, req.Frequency)
	}

	patient, err := s.patients.Get(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}

	template := &model.Appointment{
		PatientID:      patient.ID,
		PatientName:    patient.FullName,
		PatientEmail:   patient.Email,
		PatientPhone:   patient.Phone,
		ClinicianID:    req.ClinicianID,
		ClinicianEmail: req.ClinicianEmail,
		Title:          req.Title,
		Category:       req.Category,
		Start:          req.Start,
		End:            req.End,
		Description:    req.Description,
		Status:         req.Status,
	}
	if template.Title == "" {
		template.Title = "Consultation with " + patient.FullName
	}
	if template.Status == "" {
		template.Status = model.AppointmentStatusConfirmed
	}
	if s.calendar != nil {
		template.SyncStatus = model.SyncStatusPending
	}

	instances := []*model.Appointment{template}
	if req.Count > 1 {
		instances = Expand(template, req.Frequency, req.Count)
	}

	created := make([]*model.Appointment, 0, len(instances))
	for _, instance := range instances {
		apt, err := s.records.Create(ctx, instance)
		if err != nil {
			return created, err
		}

		s.confirm(ctx, apt.Clone())

		apt = s.Sync(ctx, apt)
		s.publish(ctx, EventCreated, apt)
		created = append(created, apt)
	}

	s.logger.Info().
		Str("clinician_id", req.ClinicianID).
		Str("patient_id", req.PatientID).
		Int("count", len(created)).
		Msg("appointments scheduled")
	return created, nil
}

// confirm sends the confirmation email off the request path. The send
// outlives the request context but not the notify timeout.
func (s *Service) confirm(ctx context.Context, apt *model.Appointment) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.SendConfirmation(ctx, apt); err != nil {
			s.logger.Error().Err(err).
				Str("appointment_id", apt.ID.String()).
				Msg("failed to send appointment confirmation")
		}
	}()
}

// Wait blocks until background confirmations have finished.
func (s *Service) Wait() {
	s.pending.Wait()
}

// Sync pushes apt to the calendar and records the outcome on the record.
// It never fails; problems are logged and left for the reconciler.
func (s *Service) Sync(ctx context.Context, apt *model.Appointment) *model.Appointment {
	if s.calendar == nil {
		return apt
	}

	foreignID, err := s.calendar.Push(ctx, apt)

	var status model.SyncStatus
	update := &model.AppointmentUpdate{}
	switch {
	case err == nil:
		status = model.SyncStatusSynced
		update.ClearSyncError = true
		if foreignID != "" && foreignID != apt.ForeignID() {
			update.ExternalEventID = &foreignID
		}
	case errors.Is(err, calendar.ErrSyncSkipped):
		status = model.SyncStatusSkipped
	default:
		status = model.SyncStatusFailed
		msg := err.Error()
		update.SyncError = &msg
		s.logger.Error().Err(err).
			Str("appointment_id", apt.ID.String()).
			Msg("failed to push appointment to calendar")
	}
	update.SyncStatus = &status

	updated, err := s.records.Update(ctx, apt.ID, update)
	if err != nil {
		s.logger.Error().Err(err).
			Str("appointment_id", apt.ID.String()).
			Str("sync_status", string(status)).
			Msg("failed to record calendar sync state")
		update.Apply(apt)
		return apt
	}
	return updated
}

// Edit applies a partial update and re-pushes the calendar mirror. Edits
// never expand a recurrence.
func (s *Service) Edit(ctx context.Context, id uuid.UUID, update *model.AppointmentUpdate) (*model.Appointment, error) {
	return s.edit(ctx, id, update, EventUpdated)
}

func (s *Service) edit(ctx context.Context, id uuid.UUID, update *model.AppointmentUpdate, event string) (*model.Appointment, error) {
	u := *update
	if s.calendar != nil {
		pending := model.SyncStatusPending
		u.SyncStatus = &pending
	}

	apt, err := s.records.Update(ctx, id, &u)
	if err != nil {
		return nil, err
	}

	apt = s.Sync(ctx, apt)
	s.publish(ctx, event, apt)
	return apt, nil
}

func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	status := model.AppointmentStatusCancelled
	return s.edit(ctx, id, &model.AppointmentUpdate{Status: &status}, EventCancelled)
}

// Confirm marks the appointment confirmed, typically from the patient
// portal.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	status := model.AppointmentStatusConfirmed
	return s.edit(ctx, id, &model.AppointmentUpdate{Status: &status}, EventUpdated)
}

// Delete removes the mirrored calendar event, then the record. A failed
// removal is logged and does not block the deletion.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	apt, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}

	if s.calendar != nil && apt.ForeignID() != "" {
		if err := s.calendar.Remove(ctx, apt.ClinicianID, apt.ForeignID()); err != nil {
			s.logger.Warn().Err(err).
				Str("appointment_id", apt.ID.String()).
				Str("event_id", apt.ForeignID()).
				Msg("failed to remove calendar event")
		}
	}

	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, EventDeleted, apt)
	return nil
}

// Complete files the consultation note and marks the appointment
// completed. When the note was filed but the status write failed, a retry
// keeps the existing note and finishes the status change. It fails with
// model.ErrConsultationExists once the appointment is completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, in consultation.Input) (*model.Appointment, *model.Consultation, error) {
	apt, err := s.records.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	c, err := s.consultations.Create(ctx, apt, in)
	if errors.Is(err, model.ErrConsultationExists) && apt.Status != model.AppointmentStatusCompleted {
		s.logger.Info().
			Str("appointment_id", apt.ID.String()).
			Msg("consultation already filed, resuming completion")
		c, err = s.consultations.GetByAppointment(ctx, id)
	}
	if err != nil {
		return nil, nil, err
	}

	status := model.AppointmentStatusCompleted
	apt, err = s.records.Update(ctx, id, &model.AppointmentUpdate{Status: &status})
	if err != nil {
		return nil, c, err
	}
	s.publish(ctx, EventCompleted, apt)
	return apt, c, nil
}

// SendReminder texts the patient a reminder for the appointment.
func (s *Service) SendReminder(ctx context.Context, id uuid.UUID) error {
	apt, err := s.records.Get(ctx, id)
	if err != nil {
		return err
	}
	return s.notifier.SendReminder(ctx, apt)
}

func (s *Service) publish(ctx context.Context, eventType string, apt *model.Appointment) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.Publish(ctx, eventType, Event{
		AppointmentID: apt.ID,
		ClinicianID:   apt.ClinicianID,
		PatientID:     apt.PatientID,
		Status:        apt.Status,
		Start:         apt.Start,
		End:           apt.End,
		OccurredAt:    s.now(),
	})
	if err != nil {
		s.logger.Warn().Err(err).
			Str("event", eventType).
			Str("appointment_id", apt.ID.String()).
			Msg("failed to publish appointment event")
	}
}

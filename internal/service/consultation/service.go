package consultation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/repository"
	"github.com/medilink/clinic-api/pkg/security"
)

// Input is the clinical content of a consultation.
type Input struct {
	Observations string
	Exams        string
	Medications  string
	VisitDate    time.Time
}

type Update struct {
	Observations *string
	Exams        *string
	Medications  *string
	VisitDate    *time.Time
}

// Service files consultation notes. Free-text fields are encrypted before
// they reach the repository.
type Service struct {
	repo      repository.ConsultationRepository
	encryptor security.Encryptor
	now       func() time.Time
}

func NewService(repo repository.ConsultationRepository, encryptor security.Encryptor) *Service {
	return &Service{repo: repo, encryptor: encryptor, now: time.Now}
}

// Create files the consultation for a completed appointment. Only one
// consultation may exist per appointment.
func (s *Service) Create(ctx context.Context, apt *model.Appointment, in Input) (*model.Consultation, error) {
	if in.VisitDate.IsZero() {
		in.VisitDate = s.now()
	}
	c := &model.Consultation{
		AppointmentID: apt.ID,
		PatientID:     apt.PatientID,
		ClinicianID:   apt.ClinicianID,
		VisitDate:     in.VisitDate,
		Observations:  in.Observations,
		Exams:         in.Exams,
		Medications:   in.Medications,
	}
	if err := s.seal(c); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, c); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, model.ErrConsultationExists
		}
		return nil, fmt.Errorf("failed to create consultation: %w", err)
	}
	return c, nil
}

func (s *Service) Update(ctx context.Context, id uuid.UUID, u Update) (*model.Consultation, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	if err := s.open(c); err != nil {
		return nil, err
	}

	if u.Observations != nil {
		c.Observations = *u.Observations
	}
	if u.Exams != nil {
		c.Exams = *u.Exams
	}
	if u.Medications != nil {
		c.Medications = *u.Medications
	}
	if u.VisitDate != nil {
		c.VisitDate = *u.VisitDate
	}

	if err := s.seal(c); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("failed to update consultation: %w", err)
	}
	return c, nil
}

func (s *Service) GetByAppointment(ctx context.Context, appointmentID uuid.UUID) (*model.Consultation, error) {
	c, err := s.repo.GetByAppointment(ctx, appointmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, model.ErrConsultationNotFound
		}
		return nil, fmt.Errorf("failed to get consultation: %w", err)
	}
	if err := s.open(c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListForPatient returns the patient's consultations, latest visit first.
func (s *Service) ListForPatient(ctx context.Context, patientID string) ([]*model.Consultation, error) {
	consultations, err := s.repo.ListByPatient(ctx, patientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list consultations: %w", err)
	}
	for _, c := range consultations {
		if err := s.open(c); err != nil {
			return nil, err
		}
	}
	sort.SliceStable(consultations, func(i, j int) bool {
		return consultations[i].VisitDate.After(consultations[j].VisitDate)
	})
	return consultations, nil
}

func (s *Service) seal(c *model.Consultation) error {
	var err error
	if c.ObservationsEnc, err = s.encrypt(c.Observations); err != nil {
		return err
	}
	if c.ExamsEnc, err = s.encrypt(c.Exams); err != nil {
		return err
	}
	if c.MedicationsEnc, err = s.encrypt(c.Medications); err != nil {
		return err
	}
	return nil
}

func (s *Service) open(c *model.Consultation) error {
	var err error
	if c.Observations, err = s.decrypt(c.ObservationsEnc); err != nil {
		return err
	}
	if c.Exams, err = s.decrypt(c.ExamsEnc); err != nil {
		return err
	}
	if c.Medications, err = s.decrypt(c.MedicationsEnc); err != nil {
		return err
	}
	return nil
}

func (s *Service) encrypt(plain string) ([]byte, error) {
	if plain == "" {
		return nil, nil
	}
	out, err := s.encryptor.Encrypt([]byte(plain))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt consultation: %w", err)
	}
	return out, nil
}

func (s *Service) decrypt(sealed []byte) (string, error) {
	if len(sealed) == 0 {
		return "", nil
	}
	out, err := s.encryptor.Decrypt(sealed)
	if err != nil {
		return "", fmt.Errorf("failed to decrypt consultation: %w", err)
	}
	return string(out), nil
}

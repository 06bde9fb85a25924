package model

import (
	"time"

	"github.com/google/uuid"
)

// Consultation is the clinical note filed when an appointment is completed.
type Consultation struct {
	ID            uuid.UUID `db:"id" json:"id"`
	AppointmentID uuid.UUID `db:"appointment_id" json:"appointment_id"`
	PatientID     string    `db:"patient_id" json:"patient_id"`
	ClinicianID   string    `db:"clinician_id" json:"clinician_id"`
	VisitDate     time.Time `db:"visit_date" json:"visit_date"`
	Observations  string    `db:"-" json:"observations"`
	Exams         string    `db:"-" json:"exams"`
	Medications   string    `db:"-" json:"medications"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time `db:"updated_at" json:"updated_at"`

	// Encrypted forms of the free-text fields as stored.
	ObservationsEnc []byte `db:"observations" json:"-"`
	ExamsEnc        []byte `db:"exams" json:"-"`
	MedicationsEnc  []byte `db:"medications" json:"-"`
}

type CompleteAppointmentRequest struct {
	Observations string     `json:"observations" binding:"required,max=10000"`
	Exams        string     `json:"exams" binding:"max=10000"`
	Medications  string     `json:"medications" binding:"max=10000"`
	VisitDate    *time.Time `json:"visit_date"`
}

type UpdateConsultationRequest struct {
	Observations *string    `json:"observations" binding:"omitempty,max=10000"`
	Exams        *string    `json:"exams" binding:"omitempty,max=10000"`
	Medications  *string    `json:"medications" binding:"omitempty,max=10000"`
	VisitDate    *time.Time `json:"visit_date"`
}

package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusScheduled AppointmentStatus = "scheduled"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusScheduled, AppointmentStatusConfirmed,
		AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

type AppointmentCategory string

const (
	CategoryGeneralConsultation AppointmentCategory = "general-consultation"
	CategorySurgery             AppointmentCategory = "surgery"
	CategoryVaccination         AppointmentCategory = "vaccination"
	CategoryExempted            AppointmentCategory = "exempted"
)

// CategoryColors holds the display color for each category. The calendar
// bridge keeps its own palette mapping for the external service.
var CategoryColors = map[AppointmentCategory]string{
	CategoryGeneralConsultation: "#3b82f6",
	CategorySurgery:             "#ef4444",
	CategoryVaccination:         "#10b981",
	CategoryExempted:            "#f59e0b",
}

func (c AppointmentCategory) Valid() bool {
	_, ok := CategoryColors[c]
	return ok
}

// Color returns the display color for the category, or an empty string for
// unknown categories.
func (c AppointmentCategory) Color() string {
	return CategoryColors[c]
}

// SyncStatus tracks the state of the mirrored calendar event.
type SyncStatus string

const (
	SyncStatusNone    SyncStatus = ""
	SyncStatusPending SyncStatus = "pending"
	SyncStatusSynced  SyncStatus = "synced"
	SyncStatusSkipped SyncStatus = "skipped"
	SyncStatusFailed  SyncStatus = "failed"
)

type Appointment struct {
	ID              uuid.UUID           `db:"id" json:"id"`
	PatientID       string              `db:"patient_id" json:"patient_id"`
	PatientName     string              `db:"patient_name" json:"patient_name"`
	PatientEmail    string              `db:"patient_email" json:"patient_email"`
	PatientPhone    string              `db:"patient_phone" json:"patient_phone,omitempty"`
	ClinicianID     string              `db:"clinician_id" json:"clinician_id"`
	ClinicianEmail  string              `db:"clinician_email" json:"clinician_email"`
	Title           string              `db:"title" json:"title"`
	Category        AppointmentCategory `db:"category" json:"category"`
	Color           string              `db:"color" json:"color"`
	Start           time.Time           `db:"start_time" json:"start"`
	End             time.Time           `db:"end_time" json:"end"`
	Description     string              `db:"description" json:"description"`
	Status          AppointmentStatus   `db:"status" json:"status"`
	ExternalEventID *string             `db:"external_event_id" json:"external_event_id,omitempty"`
	SyncStatus      SyncStatus          `db:"sync_status" json:"sync_status,omitempty"`
	SyncError       *string             `db:"sync_error" json:"sync_error,omitempty"`
	CreatedAt       time.Time           `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time           `db:"updated_at" json:"updated_at"`
}

// ForeignID returns the mirrored calendar event id, or "" when the
// appointment has not been pushed yet.
func (a *Appointment) ForeignID() string {
	if a.ExternalEventID == nil {
		return ""
	}
	return *a.ExternalEventID
}

// Clone returns a copy that shares no pointers with a.
func (a *Appointment) Clone() *Appointment {
	c := *a
	if a.ExternalEventID != nil {
		id := *a.ExternalEventID
		c.ExternalEventID = &id
	}
	if a.SyncError != nil {
		msg := *a.SyncError
		c.SyncError = &msg
	}
	return &c
}

// AppointmentUpdate is a partial update. Only non-nil fields are written.
type AppointmentUpdate struct {
	Title           *string
	Description     *string
	Category        *AppointmentCategory
	Start           *time.Time
	End             *time.Time
	Status          *AppointmentStatus
	ExternalEventID *string
	SyncStatus      *SyncStatus
	SyncError       *string
	ClearSyncError  bool
}

func (u *AppointmentUpdate) Empty() bool {
	return u.Title == nil && u.Description == nil && u.Category == nil &&
		u.Start == nil && u.End == nil && u.Status == nil &&
		u.ExternalEventID == nil && u.SyncStatus == nil && u.SyncError == nil &&
		!u.ClearSyncError
}

// Apply merges the set fields of u into a.
func (u *AppointmentUpdate) Apply(a *Appointment) {
	if u.Title != nil {
		a.Title = *u.Title
	}
	if u.Description != nil {
		a.Description = *u.Description
	}
	if u.Category != nil {
		a.Category = *u.Category
		a.Color = u.Category.Color()
	}
	if u.Start != nil {
		a.Start = *u.Start
	}
	if u.End != nil {
		a.End = *u.End
	}
	if u.Status != nil {
		a.Status = *u.Status
	}
	if u.ExternalEventID != nil {
		id := *u.ExternalEventID
		a.ExternalEventID = &id
	}
	if u.SyncStatus != nil {
		a.SyncStatus = *u.SyncStatus
	}
	if u.ClearSyncError {
		a.SyncError = nil
	}
	if u.SyncError != nil {
		msg := *u.SyncError
		a.SyncError = &msg
	}
}

type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
)

type RecurrenceRequest struct {
	Frequency Frequency `json:"frequency" binding:"required,frequency"`
	Count     int       `json:"count" binding:"required,min=2,max=24"`
}

type CreateAppointmentRequest struct {
	PatientID   string              `json:"patient_id" binding:"required"`
	Title       string              `json:"title" binding:"max=200"`
	Category    AppointmentCategory `json:"category" binding:"required,category"`
	Start       time.Time           `json:"start" binding:"required"`
	End         time.Time           `json:"end" binding:"required,gtfield=Start"`
	Description string              `json:"description" binding:"max=2000"`
	Status      AppointmentStatus   `json:"status" binding:"omitempty,oneof=scheduled confirmed"`
	Recurrence  *RecurrenceRequest  `json:"recurrence"`
}

type UpdateAppointmentRequest struct {
	Title       *string              `json:"title" binding:"omitempty,max=200"`
	Description *string              `json:"description" binding:"omitempty,max=2000"`
	Category    *AppointmentCategory `json:"category" binding:"omitempty,category"`
	Start       *time.Time           `json:"start"`
	End         *time.Time           `json:"end"`
	Status      *AppointmentStatus   `json:"status" binding:"omitempty,oneof=scheduled confirmed cancelled completed"`
}

func (r *UpdateAppointmentRequest) ToUpdate() *AppointmentUpdate {
	return &AppointmentUpdate{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Start:       r.Start,
		End:         r.End,
		Status:      r.Status,
	}
}

// CalendarLinks holds add-to-calendar links for an appointment.
type CalendarLinks struct {
	Google  string `json:"google"`
	Outlook string `json:"outlook"`
}

func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly:
		return true
	}
	return false
}

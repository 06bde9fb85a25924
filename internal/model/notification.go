package model

import (
	"time"

	"github.com/google/uuid"
)

type NotificationChannel string

const (
	ChannelEmail NotificationChannel = "email"
	ChannelSMS   NotificationChannel = "sms"
)

// MailDocument is a queued message consumed by an external mail trigger.
type MailDocument struct {
	ID           uuid.UUID         `db:"id" json:"id"`
	To           string            `db:"recipient" json:"to"`
	Subject      string            `db:"subject" json:"subject"`
	Template     string            `db:"template" json:"template"`
	TemplateData map[string]string `db:"-" json:"template_data"`
	Payload      string            `db:"payload" json:"-"`
	CreatedAt    time.Time         `db:"created_at" json:"created_at"`
}

// ConfirmationParams are the template parameters of the appointment
// confirmation email.
type ConfirmationParams struct {
	PatientName            string `json:"patient_name"`
	PatientEmail           string `json:"patient_email"`
	NotificationEmails     string `json:"notification_emails"`
	AppointmentTitle       string `json:"appointment_title"`
	AppointmentDate        string `json:"appointment_date"`
	AppointmentTime        string `json:"appointment_time"`
	AppointmentDescription string `json:"appointment_description"`
	CalendarLink           string `json:"calendar_link"`
}

func (p ConfirmationParams) Map() map[string]string {
	return map[string]string{
		"patient_name":            p.PatientName,
		"patient_email":           p.PatientEmail,
		"notification_emails":     p.NotificationEmails,
		"appointment_title":       p.AppointmentTitle,
		"appointment_date":        p.AppointmentDate,
		"appointment_time":        p.AppointmentTime,
		"appointment_description": p.AppointmentDescription,
		"calendar_link":           p.CalendarLink,
	}
}

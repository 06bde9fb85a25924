package notification

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/medilink/clinic-api/internal/calendar"
	"github.com/medilink/clinic-api/internal/email"
	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/pkg/metrics"
)

const (
	dateLayout = "02/01/2006"
	timeLayout = "15:04"

	defaultDescription  = "General Checkup"
	confirmationSubject = "Confirmación de cita"
)

// SMSSender delivers a text message.
type SMSSender interface {
	Send(ctx context.Context, to, message string) error
}

type Config struct {
	// TimeZone is used to render dates and times in messages.
	TimeZone string
	// PortalURL is the base of patient portal links.
	PortalURL string
	// NotificationEmails is copied into the confirmation template.
	NotificationEmails string
}

type Service struct {
	mailer  email.Mailer
	sms     SMSSender
	loc     *time.Location
	portal  string
	copyTo  string
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewService(cfg Config, mailer email.Mailer, sms SMSSender, m *metrics.Metrics, logger zerolog.Logger) (*Service, error) {
	loc := time.UTC
	if cfg.TimeZone != "" {
		var err error
		if loc, err = time.LoadLocation(cfg.TimeZone); err != nil {
			return nil, fmt.Errorf("failed to load time zone %q: %w", cfg.TimeZone, err)
		}
	}
	return &Service{
		mailer:  mailer,
		sms:     sms,
		loc:     loc,
		portal:  strings.TrimRight(cfg.PortalURL, "/"),
		copyTo:  cfg.NotificationEmails,
		metrics: m,
		logger:  logger.With().Str("component", "notification-service").Logger(),
	}, nil
}

// ConfirmationParams builds the confirmation template parameters.
func (s *Service) ConfirmationParams(apt *model.Appointment) model.ConfirmationParams {
	description := apt.Description
	if description == "" {
		description = defaultDescription
	}
	notify := apt.PatientEmail
	if s.copyTo != "" {
		notify = s.copyTo
	}
	start := apt.Start.In(s.loc)
	return model.ConfirmationParams{
		PatientName:            apt.PatientName,
		PatientEmail:           apt.PatientEmail,
		NotificationEmails:     notify,
		AppointmentTitle:       apt.Title,
		AppointmentDate:        start.Format(dateLayout),
		AppointmentTime:        start.Format(timeLayout),
		AppointmentDescription: description,
		CalendarLink:           calendar.GoogleLink(apt.Title, apt.Description, apt.Start, apt.End),
	}
}

// SendConfirmation emails the patient that the appointment was booked.
func (s *Service) SendConfirmation(ctx context.Context, apt *model.Appointment) error {
	params := s.ConfirmationParams(apt)
	err := s.mailer.Send(ctx, &email.Message{
		To:       []string{apt.PatientEmail},
		Subject:  confirmationSubject,
		Template: email.TemplateAppointmentConfirmation,
		Data:     params.Map(),
	})
	s.metrics.ObserveNotification(string(model.ChannelEmail), err)
	if err != nil {
		return fmt.Errorf("failed to send confirmation: %w", err)
	}
	return nil
}

// ConfirmLink is the patient portal link that confirms the appointment.
func (s *Service) ConfirmLink(apt *model.Appointment) string {
	return fmt.Sprintf("%s/portal/appointments/%s/confirm", s.portal, apt.ID)
}

// ReminderMessage renders the SMS reminder text.
func (s *Service) ReminderMessage(apt *model.Appointment) string {
	start := apt.Start.In(s.loc)
	return fmt.Sprintf("Hola %s, recordatorio de tu cita médica el %s a las %s. Confirma aquí: %s",
		apt.PatientName, start.Format(dateLayout), start.Format(timeLayout), s.ConfirmLink(apt))
}

// SendReminder texts the patient a reminder with a confirmation link.
func (s *Service) SendReminder(ctx context.Context, apt *model.Appointment) error {
	if apt.PatientPhone == "" {
		return model.ErrNoPhone
	}
	err := s.sms.Send(ctx, apt.PatientPhone, s.ReminderMessage(apt))
	s.metrics.ObserveNotification(string(model.ChannelSMS), err)
	if err != nil {
		return fmt.Errorf("failed to send reminder: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of a carrier.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger.With().Str("component", "sms").Logger()}
}

func (l *LogSender) Send(_ context.Context, to, message string) error {
	l.logger.Info().Str("to", to).Str("message", message).Msg("sms sent")
	return nil
}

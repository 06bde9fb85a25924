// Package app wires the services shared by the api and worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/medilink/clinic-api/internal/calendar"
	"github.com/medilink/clinic-api/internal/config"
	"github.com/medilink/clinic-api/internal/email"
	"github.com/medilink/clinic-api/internal/handler"
	"github.com/medilink/clinic-api/internal/repository/postgres"
	"github.com/medilink/clinic-api/internal/service/appointment"
	"github.com/medilink/clinic-api/internal/service/consultation"
	"github.com/medilink/clinic-api/internal/service/notification"
	"github.com/medilink/clinic-api/internal/service/patient"
	"github.com/medilink/clinic-api/internal/service/scheduling"
	"github.com/medilink/clinic-api/pkg/messaging"
	"github.com/medilink/clinic-api/pkg/messaging/redis"
	"github.com/medilink/clinic-api/pkg/metrics"
	"github.com/medilink/clinic-api/pkg/security"
)

type App struct {
	DB      *sqlx.DB
	Broker  messaging.Broker
	Metrics *metrics.Metrics
	Tokens  *calendar.Provider

	Appointments  *appointment.Service
	Patients      *patient.Service
	Consultations *consultation.Service
	Notifications *notification.Service
	Scheduling    *scheduling.Service

	// Deps are pinged by the readiness probe.
	Deps map[string]handler.Pinger

	closers []func() error
}

// New connects to the store and the broker and builds every service.
func New(ctx context.Context, cfg *config.Config, subsystem string, logger zerolog.Logger) (*App, error) {
	a := &App{Deps: map[string]handler.Pinger{}}

	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a.DB = db
	a.Deps["postgres"] = db
	a.closers = append(a.closers, db.Close)

	a.Metrics = metrics.NewMetrics("clinic", subsystem, prometheus.DefaultRegisterer)

	var store calendar.TokenStore
	a.Broker = messaging.NopBroker{}
	if cfg.Redis.Enabled {
		rb, err := redis.NewRedisBroker(ctx, redis.Config{
			URL:        cfg.Redis.URL,
			MaxRetries: cfg.Redis.MaxRetries,
			PoolSize:   cfg.Redis.PoolSize,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Broker = rb
		a.Deps["redis"] = rb
		a.closers = append(a.closers, rb.Close)
		store = calendar.NewRedisStore(rb.Client(), "")
	} else {
		logger.Warn().Msg("redis disabled, calendar tokens are kept in process memory")
	}

	var oauth *oauth2.Config
	if cfg.Calendar.ClientID != "" {
		oauth = calendar.OAuthConfig(cfg.Calendar.ClientID, cfg.Calendar.ClientSecret, cfg.Calendar.RedirectURL)
	}
	a.Tokens = calendar.NewProvider(store, oauth, logger)

	key, err := security.ParseKey(cfg.Security.EncryptionKey)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("invalid encryption key: %w", err)
	}
	encryptor, err := security.NewAESEncryptor(key)
	if err != nil {
		a.Close()
		return nil, err
	}

	a.Appointments = appointment.NewService(postgres.NewAppointmentRepository(db), logger)
	a.Patients = patient.NewService(postgres.NewPatientRepository(db))
	a.Consultations = consultation.NewService(postgres.NewConsultationRepository(db), encryptor)

	a.Notifications, err = notification.NewService(notification.Config{
		TimeZone:           cfg.Calendar.TimeZone,
		PortalURL:          cfg.PortalURL,
		NotificationEmails: cfg.Mail.NotificationEmails,
	}, newMailer(cfg, db, logger), notification.NewLogSender(logger), a.Metrics, logger)
	if err != nil {
		a.Close()
		return nil, err
	}

	opts := []scheduling.Option{
		scheduling.WithPublisher(messaging.NewPublisher(a.Broker, cfg.Redis.Channel)),
		scheduling.WithNotifyTimeout(cfg.Mail.SendTimeout),
	}
	if cfg.Calendar.Enabled {
		bridge, err := calendar.NewBridge(calendar.Config{
			CalendarID:  cfg.Calendar.CalendarID,
			TimeZone:    cfg.Calendar.TimeZone,
			Endpoint:    cfg.Calendar.Endpoint,
			Timeout:     cfg.Calendar.Timeout,
			MaxFailures: cfg.Calendar.MaxFailures,
			OpenTimeout: cfg.Calendar.OpenTimeout,
		}, a.Tokens, a.Metrics, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		opts = append(opts, scheduling.WithCalendar(bridge))
	}

	a.Scheduling = scheduling.NewService(a.Appointments, a.Notifications, a.Patients, a.Consultations, logger, opts...)
	return a, nil
}

func newMailer(cfg *config.Config, db *sqlx.DB, logger zerolog.Logger) email.Mailer {
	switch cfg.Mail.Driver {
	case "smtp":
		return email.NewSMTPMailer(email.SMTPConfig{
			Host:     cfg.Mail.SMTP.Host,
			Port:     cfg.Mail.SMTP.Port,
			Username: cfg.Mail.SMTP.Username,
			Password: cfg.Mail.SMTP.Password,
			From:     cfg.Mail.From,
		})
	case "queue":
		return email.NewQueueMailer(postgres.NewMailRepository(db))
	default:
		return email.NewNopMailer(logger)
	}
}

// Close waits for background confirmations, then releases connections in
// reverse order of acquisition.
func (a *App) Close() {
	if a.Scheduling != nil {
		a.Scheduling.Wait()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
	a.closers = nil
}

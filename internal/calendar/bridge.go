package calendar

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/pkg/circuitbreaker"
	"github.com/medilink/clinic-api/pkg/metrics"
)

// ErrSyncSkipped is returned when a push or removal was not attempted
// because the clinician has no valid calendar token.
var ErrSyncSkipped = errors.New("calendar sync skipped")

type Config struct {
	CalendarID string
	// TimeZone is the IANA zone sent alongside every event instant.
	TimeZone string
	// Endpoint overrides the API base path, e.g. for tests.
	Endpoint    string
	Timeout     time.Duration
	MaxFailures int
	OpenTimeout time.Duration
	// HTTPClient is the base transport for API calls.
	HTTPClient *http.Client
}

// Bridge mirrors appointments onto the clinician's external calendar.
type Bridge struct {
	cfg     Config
	loc     *time.Location
	tokens  TokenProvider
	cb      *circuitbreaker.CircuitBreaker
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

func NewBridge(cfg Config, tokens TokenProvider, m *metrics.Metrics, logger zerolog.Logger) (*Bridge, error) {
	if cfg.CalendarID == "" {
		cfg.CalendarID = "primary"
	}
	if cfg.TimeZone == "" {
		cfg.TimeZone = "UTC"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	loc, err := time.LoadLocation(cfg.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("failed to load time zone %q: %w", cfg.TimeZone, err)
	}

	return &Bridge{
		cfg:    cfg,
		loc:    loc,
		tokens: tokens,
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "google-calendar",
			MaxFailures: cfg.MaxFailures,
			Timeout:     cfg.OpenTimeout,
			IsFailure:   isRemoteFailure,
		}),
		metrics: m,
		logger:  logger.With().Str("component", "calendar-bridge").Logger(),
	}, nil
}

// isRemoteFailure counts server side and transport errors only. Client
// errors say nothing about the health of the remote.
func isRemoteFailure(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code >= 500 || gerr.Code == http.StatusTooManyRequests
	}
	return true
}

func isGone(err error) bool {
	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return gerr.Code == http.StatusNotFound || gerr.Code == http.StatusGone
	}
	return false
}

// Event maps an appointment onto the external event body.
func (b *Bridge) Event(apt *model.Appointment) *gcal.Event {
	return &gcal.Event{
		Summary:     fmt.Sprintf("%s (%s)", apt.Title, strings.ToUpper(string(apt.Category))),
		Description: fmt.Sprintf("%s\n\nType: %s", apt.Description, apt.Category),
		ColorId:     ColorID(apt.Category),
		Status:      eventStatus(apt.Status),
		Start: &gcal.EventDateTime{
			DateTime: apt.Start.In(b.loc).Format(time.RFC3339),
			TimeZone: b.cfg.TimeZone,
		},
		End: &gcal.EventDateTime{
			DateTime: apt.End.In(b.loc).Format(time.RFC3339),
			TimeZone: b.cfg.TimeZone,
		},
	}
}

// eventStatus maps the appointment status onto the event status. A
// cancelled event stays addressable by id, so a later confirm brings it back.
func eventStatus(status model.AppointmentStatus) string {
	if status == model.AppointmentStatusCancelled {
		return "cancelled"
	}
	return "confirmed"
}

func (b *Bridge) service(ctx context.Context, clinicianID string) (*gcal.Service, error) {
	tok, err := b.tokens.Token(ctx, clinicianID)
	if err != nil {
		return nil, err
	}

	base := ctx
	if b.cfg.HTTPClient != nil {
		base = context.WithValue(ctx, oauth2.HTTPClient, b.cfg.HTTPClient)
	}
	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(base, oauth2.StaticTokenSource(tok))),
	}
	if b.cfg.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(b.cfg.Endpoint))
	}

	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create calendar client: %w", err)
	}
	return svc, nil
}

// Push creates the mirrored event, or updates it when the appointment
// already carries a foreign id, and returns the foreign id. Without a valid
// token the push is skipped and ErrSyncSkipped is returned with the existing
// id.
func (b *Bridge) Push(ctx context.Context, apt *model.Appointment) (string, error) {
	existing := apt.ForeignID()

	svc, err := b.service(ctx, apt.ClinicianID)
	if err != nil {
		if errors.Is(err, ErrTokenUnavailable) {
			b.logger.Warn().
				Str("appointment_id", apt.ID.String()).
				Str("clinician_id", apt.ClinicianID).
				Msg("no calendar token, skipping sync")
			b.metrics.CalendarSkipped("push")
			return existing, ErrSyncSkipped
		}
		return existing, err
	}

	event := b.Event(apt)
	if existing != "" {
		id, err := b.update(ctx, svc, existing, event)
		if err == nil {
			return id, nil
		}
		if !isGone(err) {
			return existing, err
		}
		b.logger.Info().
			Str("appointment_id", apt.ID.String()).
			Str("event_id", existing).
			Msg("mirrored event gone, recreating")
	}
	id, err := b.insert(ctx, svc, event)
	if err != nil {
		return existing, err
	}
	return id, nil
}

func (b *Bridge) insert(ctx context.Context, svc *gcal.Service, event *gcal.Event) (string, error) {
	var id string
	err := b.call(ctx, "insert", func(ctx context.Context) error {
		created, err := svc.Events.Insert(b.cfg.CalendarID, event).Context(ctx).Do()
		if err != nil {
			return err
		}
		id = created.Id
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("failed to insert calendar event: %w", err)
	}
	return id, nil
}

func (b *Bridge) update(ctx context.Context, svc *gcal.Service, eventID string, event *gcal.Event) (string, error) {
	id := eventID
	err := b.call(ctx, "update", func(ctx context.Context) error {
		updated, err := svc.Events.Update(b.cfg.CalendarID, eventID, event).Context(ctx).Do()
		if err != nil {
			return err
		}
		if updated.Id != "" {
			id = updated.Id
		}
		return nil
	})
	if err != nil {
		return eventID, fmt.Errorf("failed to update calendar event: %w", err)
	}
	return id, nil
}

// Remove deletes the mirrored event. An event that no longer exists counts
// as removed.
func (b *Bridge) Remove(ctx context.Context, clinicianID, foreignID string) error {
	if foreignID == "" {
		return nil
	}

	svc, err := b.service(ctx, clinicianID)
	if err != nil {
		if errors.Is(err, ErrTokenUnavailable) {
			b.logger.Warn().
				Str("clinician_id", clinicianID).
				Str("event_id", foreignID).
				Msg("no calendar token, skipping event removal")
			b.metrics.CalendarSkipped("delete")
			return ErrSyncSkipped
		}
		return err
	}

	err = b.call(ctx, "delete", func(ctx context.Context) error {
		return svc.Events.Delete(b.cfg.CalendarID, foreignID).Context(ctx).Do()
	})
	if err != nil && !isGone(err) {
		return fmt.Errorf("failed to delete calendar event: %w", err)
	}
	return nil
}

func (b *Bridge) call(ctx context.Context, operation string, fn func(context.Context) error) error {
	start := time.Now()
	err := b.cb.Execute(func() error {
		ctx, cancel := context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
		return fn(ctx)
	})
	b.metrics.ObserveCalendar(operation, time.Since(start).Seconds(), err)
	return err
}

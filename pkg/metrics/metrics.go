package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Calendar bridge
	CalendarOperations *prometheus.CounterVec
	CalendarLatency    *prometheus.HistogramVec

	// Notifications
	Notifications *prometheus.CounterVec

	// Reconciler
	ReconcilerRuns    *prometheus.CounterVec
	ReconcilerRetries *prometheus.CounterVec
}

// NewMetrics creates and registers all application metrics with reg. A nil
// registerer uses the default prometheus registry.
func NewMetrics(namespace, subsystem string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		CalendarOperations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calendar_operations_total",
			Help:      "Total number of external calendar operations",
		}, []string{"operation", "status"}),
		CalendarLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "calendar_operation_duration_seconds",
			Help:      "Duration of external calendar calls",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"operation"}),

		Notifications: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "notifications_total",
			Help:      "Total number of notifications sent",
		}, []string{"channel", "status"}),

		ReconcilerRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sync_reconciler_runs_total",
			Help:      "Total number of calendar sync reconciler runs",
		}, []string{"status"}),
		ReconcilerRetries: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sync_reconciler_retries_total",
			Help:      "Total number of appointments re-pushed by the reconciler",
		}, []string{"result"}),
	}
}

// NewNop returns metrics registered on a throwaway registry, for tests.
func NewNop() *Metrics {
	return NewMetrics("test", "", prometheus.NewRegistry())
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// ObserveCalendar records the outcome of a calendar call.
func (m *Metrics) ObserveCalendar(operation string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.CalendarOperations.WithLabelValues(operation, status(err)).Inc()
	m.CalendarLatency.WithLabelValues(operation).Observe(seconds)
}

// CalendarSkipped records a push or remove skipped for lack of a token.
func (m *Metrics) CalendarSkipped(operation string) {
	if m == nil {
		return
	}
	m.CalendarOperations.WithLabelValues(operation, "skipped").Inc()
}

func (m *Metrics) ObserveNotification(channel string, err error) {
	if m == nil {
		return
	}
	m.Notifications.WithLabelValues(channel, status(err)).Inc()
}

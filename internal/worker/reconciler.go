package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/pkg/metrics"
)

// UnsyncedLister finds appointments whose calendar mirror is behind.
type UnsyncedLister interface {
	ListUnsynced(ctx context.Context, olderThan time.Time, limit int) ([]*model.Appointment, error)
}

// Syncer re-pushes one appointment and records the outcome.
type Syncer interface {
	Sync(ctx context.Context, apt *model.Appointment) *model.Appointment
}

type ReconcilerConfig struct {
	Schedule    string
	GracePeriod time.Duration
	BatchSize   int
}

// Reconciler retries calendar pushes that were skipped or failed when the
// appointment was written.
type Reconciler struct {
	lister  UnsyncedLister
	syncer  Syncer
	cfg     ReconcilerConfig
	metrics *metrics.Metrics
	logger  zerolog.Logger
	now     func() time.Time

	running sync.Mutex
}

func NewReconciler(lister UnsyncedLister, syncer Syncer, cfg ReconcilerConfig, m *metrics.Metrics, logger zerolog.Logger) *Reconciler {
	if cfg.Schedule == "" {
		cfg.Schedule = "@every 5m"
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 100
	}
	return &Reconciler{
		lister:  lister,
		syncer:  syncer,
		cfg:     cfg,
		metrics: m,
		logger:  logger.With().Str("component", "sync-reconciler").Logger(),
		now:     time.Now,
	}
}

// Start runs the reconciler on its cron schedule until ctx is done.
func (r *Reconciler) Start(ctx context.Context) error {
	c := cron.New(cron.WithChain(cron.Recover(cronLogger{r.logger})))
	if _, err := c.AddFunc(r.cfg.Schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}

	r.logger.Info().Str("schedule", r.cfg.Schedule).Msg("sync reconciler started")
	c.Start()

	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	r.logger.Info().Msg("sync reconciler stopped")
	return nil
}

// RunOnce processes one batch and reports how many appointments ended up
// synced. Overlapping runs are skipped.
func (r *Reconciler) RunOnce(ctx context.Context) int {
	if !r.running.TryLock() {
		r.logger.Debug().Msg("previous run still in progress")
		return 0
	}
	defer r.running.Unlock()

	cutoff := r.now().Add(-r.cfg.GracePeriod)
	appointments, err := r.lister.ListUnsynced(ctx, cutoff, r.cfg.BatchSize)
	if err != nil {
		r.logger.Error().Err(err).Msg("failed to list unsynced appointments")
		r.observeRun("error")
		return 0
	}

	synced := 0
	for _, apt := range appointments {
		if ctx.Err() != nil {
			break
		}
		result := r.syncer.Sync(ctx, apt)
		r.observeRetry(string(result.SyncStatus))
		if result.SyncStatus == model.SyncStatusSynced {
			synced++
		}
	}

	r.logger.Info().
		Int("candidates", len(appointments)).
		Int("synced", synced).
		Msg("sync reconciler run finished")
	r.observeRun("success")
	return synced
}

func (r *Reconciler) observeRun(status string) {
	if r.metrics != nil {
		r.metrics.ReconcilerRuns.WithLabelValues(status).Inc()
	}
}

func (r *Reconciler) observeRetry(result string) {
	if r.metrics != nil {
		r.metrics.ReconcilerRetries.WithLabelValues(result).Inc()
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

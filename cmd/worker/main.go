package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/medilink/clinic-api/internal/app"
	"github.com/medilink/clinic-api/internal/config"
	"github.com/medilink/clinic-api/internal/handler"
	"github.com/medilink/clinic-api/internal/worker"
	"github.com/medilink/clinic-api/pkg/logger"
)

const healthAddr = ":8081"

func setupHealthCheck(deps map[string]handler.Pinger, logger zerolog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, dep := range deps {
			if err := dep.PingContext(ctx); err != nil {
				logger.Warn().Err(err).Str("dependency", name).Msg("readiness check failed")
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: healthAddr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error().Err(err).Msg("health check server failed")
			os.Exit(1)
		}
	}()
	return srv
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	lg := logger.New(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Console: cfg.Log.Console,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := app.New(ctx, cfg, "worker", lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer a.Close()

	if !a.Scheduling.SyncEnabled() {
		lg.Warn().Msg("calendar sync disabled, nothing to reconcile")
		return
	}

	reconciler := worker.NewReconciler(a.Appointments, a.Scheduling, worker.ReconcilerConfig{
		Schedule:    cfg.Reconciler.Schedule,
		GracePeriod: cfg.Reconciler.GracePeriod,
		BatchSize:   cfg.Reconciler.BatchSize,
	}, a.Metrics, lg)

	health := setupHealthCheck(a.Deps, lg)
	defer health.Close()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		lg.Info().Msg("shutting down...")
		cancel()
	}()

	if err := reconciler.Start(ctx); err != nil {
		lg.Error().Err(err).Msg("reconciler stopped with error")
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/medilink/clinic-api/internal/app"
	"github.com/medilink/clinic-api/internal/config"
	"github.com/medilink/clinic-api/internal/handler"
	appointmentHandler "github.com/medilink/clinic-api/internal/handler/appointment"
	calendarHandler "github.com/medilink/clinic-api/internal/handler/calendar"
	consultationHandler "github.com/medilink/clinic-api/internal/handler/consultation"
	patientHandler "github.com/medilink/clinic-api/internal/handler/patient"
	portalHandler "github.com/medilink/clinic-api/internal/handler/portal"
	"github.com/medilink/clinic-api/internal/middleware"
	"github.com/medilink/clinic-api/internal/router"
	"github.com/medilink/clinic-api/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	lg := logger.New(&logger.Config{
		Level:   logger.ParseLevel(cfg.Log.Level),
		Console: cfg.Log.Console,
	})

	ctx := context.Background()
	a, err := app.New(ctx, cfg, "api", lg)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to initialize services")
	}
	defer a.Close()

	authMiddleware := middleware.NewAuthMiddleware(middleware.AuthConfig{
		Secret:   cfg.JWT.Secret,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
	})

	r := router.NewRouter(authMiddleware, router.Handlers{
		Health:        handler.NewHandler(a.Deps, nil),
		Appointments:  appointmentHandler.NewHandler(a.Appointments, a.Scheduling),
		Patients:      patientHandler.NewHandler(a.Patients, a.Appointments, a.Consultations),
		Consultations: consultationHandler.NewHandler(a.Consultations),
		Calendar:      calendarHandler.NewHandler(a.Tokens),
		Portal:        portalHandler.NewHandler(a.Appointments, a.Scheduling),
	}, router.RouterConfig{
		RateLimit:     rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:     cfg.RateLimit.Burst,
		CORSConfig:    middleware.DefaultCORSConfig(cfg.CORS.AllowedOrigins),
		MetricsPrefix: "clinic_api",
		Logger:        lg,
	})
	r.Setup()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		lg.Info().
			Int("port", cfg.Server.Port).
			Bool("calendar_sync", a.Scheduling.SyncEnabled()).
			Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			lg.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	lg.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Error().Err(err).Msg("server forced to shutdown")
	}

	lg.Info().Msg("server exited properly")
}

package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"

	"github.com/medilink/clinic-api/internal/config"
	"github.com/medilink/clinic-api/internal/model"
	"github.com/medilink/clinic-api/internal/repository/postgres"
	"github.com/medilink/clinic-api/pkg/logger"
)

func main() {
	count := flag.Int("patients", 20, "number of patients to create")
	seed := flag.Uint64("seed", 0, "faker seed, 0 for random")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "lifetime of the printed demo tokens")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Warn().Err(err).Msg("failed to load .env file")
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}
	lg := logger.New(&logger.Config{Level: logger.InfoLevel, Console: true})

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	repo := postgres.NewPatientRepository(db)
	faker := gofakeit.New(*seed)

	var first *model.Patient
	for i := 0; i < *count; i++ {
		birth := faker.DateRange(time.Now().AddDate(-90, 0, 0), time.Now().AddDate(-1, 0, 0))
		p := &model.Patient{
			ID:             uuid.NewString(),
			FullName:       faker.Name(),
			DocumentNumber: faker.Numerify("##########"),
			Email:          faker.Email(),
			Phone:          "+57" + faker.Numerify("3#########"),
			Address:        faker.Address().Address,
			BirthDate:      &birth,
			Role:           model.RolePatient,
		}
		if err := repo.Upsert(ctx, p); err != nil {
			lg.Fatal().Err(err).Msg("failed to seed patient")
		}
		if first == nil {
			first = p
		}
	}
	lg.Info().Int("patients", *count).Msg("patients seeded")

	clinician, err := demoToken(cfg, uuid.NewString(), faker.Email(), model.RoleClinician, *tokenTTL)
	if err != nil {
		lg.Fatal().Err(err).Msg("failed to sign clinician token")
	}
	fmt.Println("clinician token:", clinician)

	if first != nil {
		patient, err := demoToken(cfg, first.ID, first.Email, model.RolePatient, *tokenTTL)
		if err != nil {
			lg.Fatal().Err(err).Msg("failed to sign patient token")
		}
		fmt.Println("patient token:  ", patient)
	}
}

// demoToken signs a bearer token the way the identity platform does, for
// local testing only.
func demoToken(cfg *config.Config, subject, email, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := model.TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    cfg.JWT.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Role:  role,
	}
	if cfg.JWT.Audience != "" {
		claims.Audience = jwt.ClaimStrings{cfg.JWT.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWT.Secret))
}

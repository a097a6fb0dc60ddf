package main

import (
	"context"
	"errors"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/config"
	"github.com/oksasatya/prevently-api/internal/application"
	"github.com/oksasatya/prevently-api/internal/domain/entity"
	mongoinfra "github.com/oksasatya/prevently-api/internal/infrastructure/mongodb"
	"github.com/oksasatya/prevently-api/pkg/helpers"
)

const (
	demoEmail    = "demo@prevently.ai"
	demoPassword = "password123"
)

type sample struct {
	name     string
	category string
	severity int
	daysAgo  int
	stress   int
	weather  string
}

var samples = []sample{
	{"Headache", "physical", 4, 12, 5, "sunny"},
	{"Headache", "physical", 5, 9, 7, "rainy"},
	{"Fatigue", "physical", 6, 8, 6, ""},
	{"Headache", "physical", 7, 5, 8, "rainy"},
	{"Anxiety", "mental", 5, 4, 9, ""},
	{"Poor sleep", "sleep", 6, 2, 7, ""},
	{"Headache", "physical", 8, 1, 9, "rainy"},
}

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)
	ctx := context.Background()

	client, err := mongoinfra.NewClient(ctx, cfg.MongoURI, cfg.MongoMaxPool, cfg.MongoMinPool, cfg.MongoTimeout)
	if err != nil {
		logger.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()
	db := client.Database(cfg.MongoDatabase)
	if err := mongoinfra.EnsureIndexes(ctx, db); err != nil {
		logger.Fatalf("failed to ensure indexes: %v", err)
	}

	users := mongoinfra.NewUserRepository(db)
	logs := mongoinfra.NewSymptomLogRepository(db)
	jwt := helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL)
	auth := application.NewAuthService(users, nil, jwt, nil, cfg.SessionTTL, nil, application.NewNotifier(nil, cfg, logger), logger)
	symptoms := application.NewSymptomService(logs, users, nil, nil, 0, nil, logger)

	meta := application.RequestMeta{IP: "127.0.0.1", UserAgent: "seed"}
	height, weight := 172.0, 68.0
	u, _, err := auth.Register(ctx, application.RegisterInput{
		FirstName:     "Demo",
		LastName:      "User",
		Email:         demoEmail,
		Password:      demoPassword,
		HealthProfile: &entity.HealthProfile{Height: &height, Weight: &weight, Gender: "prefer-not-to-say"},
	}, meta)
	switch {
	case errors.Is(err, application.ErrEmailTaken):
		logger.WithField("email", demoEmail).Info("demo user already seeded")
		return
	case err != nil:
		logger.Fatalf("failed to seed user: %v", err)
	}

	now := time.Now().UTC()
	for _, s := range samples {
		in := &entity.SymptomLog{
			SymptomName: s.name,
			Category:    s.category,
			Severity:    s.severity,
			Description: "seeded " + s.name,
			Frequency:   "sometimes",
			LoggedAt:    now.AddDate(0, 0, -s.daysAgo),
			Context:     entity.SymptomContext{Mood: &entity.Mood{Stress: s.stress}},
		}
		if s.weather != "" {
			in.Context.Weather = &entity.Weather{Conditions: s.weather}
		}
		if _, err := symptoms.Create(ctx, u.ID.Hex(), in, "seed"); err != nil {
			logger.Fatalf("failed to seed symptom %s: %v", s.name, err)
		}
	}
	logger.WithFields(logrus.Fields{
		"user_id":  u.ID.Hex(),
		"email":    demoEmail,
		"password": demoPassword,
		"symptoms": len(samples),
	}).Info("seeded demo data")
}

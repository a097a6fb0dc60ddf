package router

import (
	"time"

	"github.com/oksasatya/prevently-api/internal/application"
	"github.com/oksasatya/prevently-api/internal/container"
	repo "github.com/oksasatya/prevently-api/internal/domain/repository"
	mongoinfra "github.com/oksasatya/prevently-api/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/prevently-api/internal/infrastructure/postgres"
	"github.com/oksasatya/prevently-api/internal/infrastructure/redisstore"
	"github.com/oksasatya/prevently-api/internal/infrastructure/search"
	"github.com/oksasatya/prevently-api/internal/infrastructure/storage"
	handlers "github.com/oksasatya/prevently-api/internal/interface/http"
	"github.com/oksasatya/prevently-api/internal/router/modules"
)

// Deps holds the services shared by the route modules.
type Deps struct {
	Users    repo.UserRepository
	Logs     repo.SymptomLogRepository
	Auth     *application.AuthService
	Symptoms *application.SymptomService
}

// optional backends are passed as nil interfaces when not configured

func sessionStore() application.SessionStore {
	if rdb := container.GetRedis(); rdb != nil {
		return redisstore.NewSessionStore(rdb)
	}
	return nil
}

func analyticsCache() application.AnalyticsCache {
	if rdb := container.GetRedis(); rdb != nil {
		return redisstore.NewAnalyticsCache(rdb)
	}
	return nil
}

func fileStore() application.FileStore {
	if c := container.GetGCS(); c != nil && container.GetConfig().GCSBucket != "" {
		return storage.NewGCSStore(c, container.GetConfig().GCSBucket)
	}
	return nil
}

func symptomSearcher() application.SymptomSearcher {
	if es := container.GetES(); es != nil {
		return search.NewSymptomIndex(es, container.GetConfig().ESSymptomsIndex, container.GetLogger())
	}
	return nil
}

func auditRepo() repo.AuditRepository {
	if p := container.GetPGPool(); p != nil && container.GetConfig().AuditEnabled {
		return pginfra.NewAuditRepository(p)
	}
	return nil
}

func emailQueue() application.EmailQueue {
	if p := container.GetRabbitPub(); p != nil {
		return p
	}
	return nil
}

func buildDeps() Deps {
	cfg := container.GetConfig()
	logger := container.GetLogger()
	db := container.GetMongoDB()

	users := mongoinfra.NewUserRepository(db)
	logs := mongoinfra.NewSymptomLogRepository(db)
	notify := application.NewNotifier(emailQueue(), cfg, logger)

	auth := application.NewAuthService(users, auditRepo(), container.GetJWT(), sessionStore(), cfg.SessionTTL, fileStore(), notify, logger)
	symptoms := application.NewSymptomService(logs, users, symptomSearcher(), analyticsCache(), cfg.AnalyticsCacheTTL, fileStore(), logger)

	return Deps{Users: users, Logs: logs, Auth: auth, Symptoms: symptoms}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry, health *handlers.HealthHandler) {
	cfg := container.GetConfig()
	deps := buildDeps()

	authHandler := handlers.NewAuthHandler(deps.Auth, container.GetLogger(), cfg.CookieDomain, cfg.CookieSecure, cfg.MaxUploadBytes)
	symptomHandler := handlers.NewSymptomHandler(deps.Symptoms, container.GetLogger(), cfg.MaxUploadBytes)

	authLimit := modules.Limit{Max: cfg.AuthRateLimitMax, Window: cfg.AuthRateLimitWindow}
	userLimit := modules.Limit{Max: 120, Window: time.Minute}

	r.Add(modules.NewHealthModule(health))
	r.Add(modules.NewAuthModule(authHandler, container.GetJWT(), deps.Auth, authLimit, userLimit))
	r.Add(modules.NewSymptomModule(symptomHandler, container.GetJWT(), deps.Auth, userLimit))
	if cfg.DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}

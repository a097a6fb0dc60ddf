package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"cloud.google.com/go/storage"
	"github.com/elastic/go-elasticsearch/v8"
	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/prevently-api/config"
	"github.com/oksasatya/prevently-api/internal/container"
	mongoinfra "github.com/oksasatya/prevently-api/internal/infrastructure/mongodb"
	pginfra "github.com/oksasatya/prevently-api/internal/infrastructure/postgres"
	"github.com/oksasatya/prevently-api/internal/infrastructure/search"
	handlers "github.com/oksasatya/prevently-api/internal/interface/http"
	"github.com/oksasatya/prevently-api/internal/interface/middleware"
	"github.com/oksasatya/prevently-api/internal/router"
	"github.com/oksasatya/prevently-api/pkg/helpers"
	"github.com/oksasatya/prevently-api/pkg/validation"
)

func main() {
	_ = godotenv.Load() // load .env if present

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	gin.SetMode(cfg.GinMode)
	validation.Init()

	ctx := context.Background()
	checks := map[string]handlers.PingFunc{}

	// MongoDB is the primary store and the only hard dependency
	mongoClient, err := mongoinfra.NewClient(ctx, cfg.MongoURI, cfg.MongoMaxPool, cfg.MongoMinPool, cfg.MongoTimeout)
	if err != nil {
		logger.Fatalf("failed to connect to mongo: %v", err)
	}
	defer func() { _ = mongoClient.Disconnect(context.Background()) }()
	mongoDB := mongoClient.Database(cfg.MongoDatabase)
	if cfg.MongoEnsureIdxs {
		if err := mongoinfra.EnsureIndexes(ctx, mongoDB); err != nil {
			logger.Fatalf("failed to ensure mongo indexes: %v", err)
		}
	}
	checks["mongo"] = func(ctx context.Context) error { return mongoinfra.Ping(ctx, mongoClient) }
	logger.WithField("database", cfg.MongoDatabase).Info("connected to mongo")

	container.SetConfig(cfg)
	container.SetLogger(logger)
	container.SetMongo(mongoClient, mongoDB)
	container.SetJWT(helpers.NewJWTManager(cfg.JWTAccessSecret, cfg.JWTRefreshSecret, cfg.AccessTTL, cfg.RefreshTTL))

	if pool := connectAudit(ctx, cfg, logger); pool != nil {
		defer pool.Close()
		container.SetPGPool(pool)
		checks["postgres"] = func(ctx context.Context) error { return pool.Ping(ctx) }
	}
	if rdb := connectRedis(ctx, cfg, logger); rdb != nil {
		defer func() { _ = rdb.Close() }()
		container.SetRedis(rdb)
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	if gcs := connectGCS(ctx, cfg, logger); gcs != nil {
		defer func() { _ = gcs.Close() }()
		container.SetGCS(gcs)
	}
	if es := connectES(ctx, cfg, logger); es != nil {
		container.SetES(es)
		checks["elasticsearch"] = func(ctx context.Context) error { return helpers.PingES(ctx, es) }
	}
	if cfg.MailSendEnabled && cfg.RabbitMQURL != "" {
		pub, err := helpers.NewRabbitPublisher(cfg.RabbitMQURL, cfg.RabbitMQEmailQueue, cfg.AppName)
		if err != nil {
			helpers.LogWarn(logger, "rabbitmq unavailable, emails disabled", err, nil)
		} else {
			defer pub.Close()
			container.SetRabbitPub(pub)
		}
	}

	// Gin engine and global middleware
	r := gin.New()
	trusted, err := middleware.ParseTrustedProxies(cfg.TrustedProxyList())
	if err != nil {
		logger.Fatalf("invalid TRUSTED_PROXIES: %v", err)
	}
	if err := r.SetTrustedProxies(cfg.TrustedProxyList()); err != nil {
		logger.Fatalf("invalid TRUSTED_PROXIES: %v", err)
	}
	r.Use(gin.Recovery())
	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.RealIP(trusted))
	r.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	if cfg.HTTPLogEnabled || cfg.IsDevelopment() {
		r.Use(middleware.RequestLogger(logger))
	}
	r.Use(gzip.Gzip(gzip.DefaultCompression))
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(middleware.RateLimit(container.GetRedis(), cfg.RateLimitMaxRequests, cfg.RateLimitWindow,
		middleware.KeyByIP(), middleware.AllowPaths("/health", "/api/health")))

	health := handlers.NewHealthHandler(cfg.AppName, cfg.AppVersion, cfg.Env, checks)
	r.GET("/health", health.Health)
	r.NoRoute(handlers.NotFound)

	// Registry: modules pull their dependencies from the container
	reg := router.NewRegistry(r, logger)
	router.InitModules(reg, health)
	reg.RegisterAll()

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		logger.WithFields(logrus.Fields{"port": cfg.Port, "env": cfg.Env}).Info("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("listen: %s", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("shutting down server")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}
	logger.Info("server exited properly")
}

// connectAudit opens the Postgres pool backing the auth audit log and applies migrations.
func connectAudit(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *pgxpool.Pool {
	if !cfg.AuditEnabled {
		return nil
	}
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolOptions{
		MaxConns:         cfg.DBMaxConns,
		MinConns:         cfg.DBMinConns,
		MaxConnLifetime:  cfg.DBMaxConnLife,
		AppName:          cfg.AppName + "-audit",
		StatementTimeout: 5 * time.Second,
	})
	if err != nil {
		helpers.LogWarn(logger, "postgres unavailable, audit log disabled", err, nil)
		return nil
	}
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		pool.Close()
		logger.Fatalf("migration failed: %v", err)
	}
	return pool
}

func connectRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *redis.Client {
	rdb := helpers.NewRedisClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pctx).Err(); err != nil {
		if cfg.IsProduction() {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		helpers.LogWarn(logger, "redis unavailable, sessions and rate limits disabled", err, nil)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

func connectGCS(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *storage.Client {
	if cfg.GCSBucket == "" {
		return nil
	}
	c, err := helpers.NewGCSClient(ctx, cfg.GCSCredentialsJSONPath)
	if err != nil {
		helpers.LogWarn(logger, "gcs unavailable, uploads disabled", err, nil)
		return nil
	}
	return c
}

func connectES(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *elasticsearch.Client {
	if len(cfg.ESAddrs()) == 0 {
		return nil
	}
	es, err := helpers.NewESClient(cfg.ESAddrs(), cfg.ElasticsearchUser, cfg.ElasticsearchPass)
	if err != nil {
		helpers.LogWarn(logger, "elasticsearch client init failed, search falls back to mongo", err, nil)
		return nil
	}
	ictx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := search.NewSymptomIndex(es, cfg.ESSymptomsIndex, logger).EnsureIndex(ictx); err != nil {
		helpers.LogWarn(logger, "elasticsearch unavailable, search falls back to mongo", err, nil)
		return nil
	}
	return es
}

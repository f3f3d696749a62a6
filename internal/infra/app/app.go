package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/florafleet/pollination-api/internal/core/port"
	"github.com/florafleet/pollination-api/internal/infra/config"
	"github.com/florafleet/pollination-api/internal/infra/database"
	"github.com/florafleet/pollination-api/internal/infra/kafka"
	"github.com/florafleet/pollination-api/internal/infra/logger"
	redisinfra "github.com/florafleet/pollination-api/internal/infra/redis"
	"github.com/florafleet/pollination-api/internal/infra/security"
	"github.com/florafleet/pollination-api/internal/infra/storage"
	mongorepo "github.com/florafleet/pollination-api/internal/repository/mongo"
	redisrepo "github.com/florafleet/pollination-api/internal/repository/redis"
	"github.com/florafleet/pollination-api/internal/transport/http/handlers"
	"github.com/florafleet/pollination-api/internal/transport/http/middleware"
	"github.com/florafleet/pollination-api/internal/transport/http/routes"
	"github.com/florafleet/pollination-api/internal/usecase"
)

const shutdownTimeout = 15 * time.Second

// App owns the wired dependencies and the HTTP server lifecycle.
type App struct {
	cfg    *config.AppConfig
	logger *zap.Logger
	server *http.Server

	mongo    *database.Mongo
	redis    *redisinfra.Client
	producer *kafka.Producer
}

// New builds the application graph from configuration.
func New(ctx context.Context, cfg *config.AppConfig) (*App, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	mongoDB, err := database.NewMongo(ctx, cfg.Mongo, log)
	if err != nil {
		return nil, fmt.Errorf("init mongo: %w", err)
	}

	repos := mongorepo.NewRepositories(mongoDB.Database())
	if err := repos.EnsureIndexes(ctx); err != nil {
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}

	redisClient, err := redisinfra.NewClient(cfg.Redis, log)
	if err != nil {
		return nil, fmt.Errorf("init redis: %w", err)
	}

	var (
		producer *kafka.Producer
		events   port.EventPublisher
	)
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafka.NewProducer(cfg.Kafka, log)
		if err != nil {
			return nil, fmt.Errorf("init kafka producer: %w", err)
		}
		events = kafka.NewEventPublisher(producer, cfg.App, log)
	} else {
		log.Info("No Kafka brokers configured, using stub event publisher")
		events = kafka.NewStubPublisher(log)
	}

	var media port.MediaStore
	if cfg.Minio.Endpoint != "" {
		store, err := storage.NewMinioStore(ctx, cfg.Minio)
		if err != nil {
			return nil, fmt.Errorf("init object store: %w", err)
		}
		media = store
	} else {
		log.Info("No object store configured, flower image endpoints disabled")
	}

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      cfg.Argon2.Memory,
		Iterations:  cfg.Argon2.Iterations,
		Parallelism: cfg.Argon2.Parallelism,
		SaltLength:  cfg.Argon2.SaltLength,
		KeyLength:   cfg.Argon2.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("init password hasher: %w", err)
	}

	tokens, err := security.NewJWTIssuer(cfg.Auth.Secret, cfg.Auth.Issuer)
	if err != nil {
		return nil, fmt.Errorf("init token issuer: %w", err)
	}

	credentials := usecase.NewCredentialService(repos.Accounts, hasher, tokens, log,
		usecase.WithTokenTTLs(cfg.Auth.AccessTokenTTL, cfg.Auth.ResetTokenTTL),
		usecase.WithEventPublisher(events),
	)
	drones := usecase.NewDroneService(repos.Drones, events, log)
	flowers := usecase.NewFlowerService(repos.Flowers, media, log)

	rateLimitStore := redisrepo.NewRateLimitStore(redisClient.Client(), cfg.Redis.RateLimitPrefix, cfg.Redis.RateLimitTTL)
	limiter := middleware.NewRateLimiter(rateLimitStore, log)

	metrics, err := middleware.NewHTTPMetrics(middleware.HTTPMetricsOptions{})
	if err != nil {
		return nil, fmt.Errorf("init http metrics: %w", err)
	}

	health := handlers.NewHealthHandler(
		handlers.WithReadinessCheck("mongo", mongoDB.HealthCheck),
		handlers.WithReadinessCheck("redis", redisClient.HealthCheck),
	)

	router := routes.New(routes.Dependencies{
		Config:  cfg,
		Logger:  log,
		Auth:    handlers.NewAuthHandler(credentials, cfg.Auth.ExposeResetToken),
		Drones:  handlers.NewDroneHandler(drones),
		Flowers: handlers.NewFlowerHandler(flowers),
		Health:  health,
		Tokens:  credentials,
		Limiter: limiter,
		Metrics: metrics,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.App.Host, cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &App{
		cfg:      cfg,
		logger:   log,
		server:   server,
		mongo:    mongoDB,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until the context is cancelled, then shuts everything
// down in dependency order.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("HTTP server listening",
			zap.String("addr", a.server.Addr),
			zap.String("env", a.cfg.App.Env),
		)
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var shutdownErr error
	if err := a.server.Shutdown(shutdownCtx); err != nil {
		shutdownErr = fmt.Errorf("shutdown http server: %w", err)
	}

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("Failed to close Kafka producer", zap.Error(err))
		}
	}
	if err := a.redis.Close(); err != nil {
		a.logger.Error("Failed to close Redis client", zap.Error(err))
	}
	if err := a.mongo.Close(shutdownCtx); err != nil {
		a.logger.Error("Failed to close MongoDB client", zap.Error(err))
	}

	_ = a.logger.Sync()
	return shutdownErr
}

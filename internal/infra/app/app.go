package app

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/mtsatou/mte-core/internal/core/port"
	"github.com/mtsatou/mte-core/internal/infra/config"
	"github.com/mtsatou/mte-core/internal/infra/database"
	kafkainfra "github.com/mtsatou/mte-core/internal/infra/kafka"
	"github.com/mtsatou/mte-core/internal/infra/logger"
	"github.com/mtsatou/mte-core/internal/infra/mail"
	redisinfra "github.com/mtsatou/mte-core/internal/infra/redis"
	"github.com/mtsatou/mte-core/internal/infra/security"
	"github.com/mtsatou/mte-core/internal/infra/telemetry"
	postgresrepo "github.com/mtsatou/mte-core/internal/repository/postgres"
	"github.com/mtsatou/mte-core/internal/transport/http/routes"
	"github.com/mtsatou/mte-core/internal/usecase"
)

const shutdownTimeout = 10 * time.Second

// Application owns the wired object graph and the process lifecycle. A single
// key-value store client is constructed here and shared by the cache service,
// the rate limiter and the middleware built on them.
type Application struct {
	cfg      *config.AppConfig
	engine   *gin.Engine
	logger   *zap.Logger
	pool     *pgxpool.Pool
	redis    *redisinfra.Client
	producer *kafkainfra.Producer
}

// New builds the application graph. Postgres is mandatory; the cache tier is
// optional and a failed Redis connect only degrades the service.
func New(ctx context.Context, cfg *config.AppConfig) (*Application, error) {
	log, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	pool, err := database.NewPostgresPool(ctx, cfg.Postgres, log)
	if err != nil {
		return nil, fmt.Errorf("init postgres: %w", err)
	}

	codec, err := security.NewTokenCodec(cfg.JWT.Secret, cfg.JWT.Issuer)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init token codec: %w", err)
	}

	redisClient := redisinfra.NewClient(cfg.Redis, log)
	if cfg.Redis.Enabled {
		if err := redisClient.Connect(ctx); err != nil {
			log.Warn("redis unavailable at startup, continuing without cache tier", zap.Error(err))
		}
	} else {
		log.Info("redis disabled, cache tier off")
	}

	metrics := telemetry.NewMetrics("mte")

	userRepo := postgresrepo.NewUserRepository(pool)
	verificationRepo := postgresrepo.NewVerificationRepository(pool)

	var producer *kafkainfra.Producer
	var eventPublisher port.EventPublisher
	if len(cfg.Kafka.Brokers) > 0 {
		producer, err = kafkainfra.NewProducer(cfg.Kafka, log)
		if err != nil {
			log.Warn("failed to init kafka producer, using stub publisher", zap.Error(err))
			eventPublisher = kafkainfra.NewStubPublisher(log)
		} else {
			eventPublisher = kafkainfra.NewEventPublisher(producer, cfg.App, log)
			log.Info("kafka event publisher initialized", zap.Strings("brokers", cfg.Kafka.Brokers))
		}
	} else {
		log.Info("kafka brokers not configured, using stub publisher")
		eventPublisher = kafkainfra.NewStubPublisher(log)
	}

	cacheService := usecase.NewCacheService(redisClient, cfg.Redis.DefaultTTL, log).
		WithMetrics(metrics)
	rateLimiter := usecase.NewRateLimiter(redisClient, log).
		WithMetrics(metrics)

	authService, err := usecase.NewAuthService(userRepo, codec, cfg.JWT.TokenTTL, log)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("init auth service: %w", err)
	}
	authService.WithEventPublisher(eventPublisher)

	mailer := mail.NewSMTPMailer(cfg.Email, log)
	verificationService := usecase.NewVerificationService(verificationRepo, mailer, 0, log).
		WithEventPublisher(eventPublisher)

	engine := routes.Register(routes.Dependencies{
		Config: cfg,
		Logger: log,
		Services: routes.ServiceSet{
			Auth:         authService,
			Verification: verificationService,
			Cache:        cacheService,
			RateLimiter:  rateLimiter,
			Users:        userRepo,
		},
	})

	return &Application{
		cfg:      cfg,
		engine:   engine,
		logger:   log,
		pool:     pool,
		redis:    redisClient,
		producer: producer,
	}, nil
}

// Run serves HTTP until ctx is cancelled, then drains the server and tears
// down the backing connections concurrently under one deadline. An overrun
// abandons the stragglers rather than hanging the exit.
func (a *Application) Run(ctx context.Context) error {
	defer func() {
		_ = a.logger.Sync()
	}()

	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, a.cfg.App.Port),
		Handler:           a.engine,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	metricsSrv := a.metricsServer()

	a.logger.Info("starting API",
		zap.String("env", a.cfg.App.Env),
		zap.String("address", srv.Addr),
	)

	serverErrCh := make(chan error, 2)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("run server: %w", err)
		}
	}()
	if metricsSrv != nil {
		a.logger.Info("starting metrics server", zap.String("address", metricsSrv.Addr))
		go func() {
			if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				serverErrCh <- fmt.Errorf("run metrics server: %w", err)
			}
		}()
	}

	select {
	case <-ctx.Done():
	case err := <-serverErrCh:
		a.shutdown(metricsSrv, srv)
		return err
	}

	return a.shutdown(metricsSrv, srv)
}

func (a *Application) metricsServer() *http.Server {
	port := a.cfg.Telemetry.MetricsPort
	if port <= 0 {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", a.cfg.App.Host, port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// shutdown drains the HTTP servers first, then closes the backing
// connections concurrently under the remainder of one shared deadline.
func (a *Application) shutdown(servers ...*http.Server) error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var firstErr error
	for _, srv := range servers {
		if srv == nil {
			continue
		}
		if err := srv.Shutdown(shutdownCtx); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("shutdown server: %w", err)
		}
	}

	done := make(chan struct{})
	go func() {
		var wg sync.WaitGroup

		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.redis.Disconnect(shutdownCtx); err != nil {
				a.logger.Warn("redis disconnect failed", zap.Error(err))
			}
		}()

		wg.Add(1)
		go func() {
			defer wg.Done()
			a.pool.Close()
		}()

		if a.producer != nil {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := a.producer.Close(); err != nil {
					a.logger.Warn("kafka producer close failed", zap.Error(err))
				}
			}()
		}

		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		a.logger.Info("shutdown complete")
	case <-shutdownCtx.Done():
		// Stragglers are abandoned; the process is exiting anyway.
		a.logger.Warn("shutdown deadline exceeded, abandoning remaining teardown")
	}

	return firstErr
}

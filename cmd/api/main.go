package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/jaekwang-park/planner-api/internal/cache"
	"github.com/jaekwang-park/planner-api/internal/config"
	"github.com/jaekwang-park/planner-api/internal/events"
	plannerhttp "github.com/jaekwang-park/planner-api/internal/http"
	"github.com/jaekwang-park/planner-api/internal/http/handler"
	"github.com/jaekwang-park/planner-api/internal/middleware"
	"github.com/jaekwang-park/planner-api/internal/repository"
	"github.com/jaekwang-park/planner-api/internal/service"
	"github.com/jaekwang-park/planner-api/internal/token"
)

func main() {
	// Initial logger at info level; reconfigured after config load
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if err := run(context.Background()); err != nil {
		logger.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.ParseLogLevel(),
	}))
	slog.SetDefault(logger)

	logger.Info("config loaded",
		"env", cfg.AppEnv,
		"port", cfg.ServerPort,
		"auth_dev_mode", cfg.AuthDevMode,
		"log_level", cfg.LogLevel,
		"stats_cache", cfg.Redis.URL != "",
		"sqs_events", cfg.Events.SQSQueueURL != "",
		"kafka_events", len(cfg.Events.KafkaBrokers) > 0,
	)

	// Database connection
	db, err := repository.NewDB(cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	logger.Info("database connected")

	if err := repository.Migrate(ctx, db, logger); err != nil {
		return err
	}

	// Repositories
	todoRepo := repository.NewPostgresTodo(db)
	userRepo := repository.NewPostgresUser(db)

	checks := map[string]handler.CheckFunc{
		"postgres": db.PingContext,
	}

	// Stats cache
	var statsCache service.StatsCache
	if cfg.Redis.URL != "" {
		client, err := cache.NewRedisClient(ctx, cfg.Redis.URL)
		if err != nil {
			return err
		}
		defer client.Close()
		statsCache = cache.NewStatsCache(client, cfg.Redis.StatsTTL, logger)
		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		logger.Info("stats cache enabled", "ttl", cfg.Redis.StatsTTL.String())
	}

	publisher, closePublishers, err := newPublisher(ctx, cfg.Events, logger)
	if err != nil {
		return err
	}
	defer closePublishers()

	// Tokens
	var tokens *token.Manager
	if cfg.JWT.Secret != "" {
		tokens = token.NewManager(cfg.JWT.Secret, cfg.JWT.TTL)
	} else {
		logger.Warn("token issuance disabled: JWT_SECRET not set")
	}

	// Services
	todoOpts := []service.TodoOption{
		service.WithPublisher(publisher),
		service.WithLogger(logger),
	}
	if statsCache != nil {
		todoOpts = append(todoOpts, service.WithStatsCache(statsCache))
	}
	todoSvc := service.NewTodoService(todoRepo, todoOpts...)
	authSvc := service.NewAuthService(userRepo, tokens)
	userSvc := service.NewUserService(userRepo, statsCache)

	seeded, err := userSvc.SeedDefaults(ctx, cfg.Seed.AdminPassword, cfg.Seed.UserPassword)
	if err != nil {
		return fmt.Errorf("failed to seed users: %w", err)
	}
	if seeded {
		logger.Info("default users seeded")
	}

	// Auth middleware
	authCfg := middleware.AuthConfig{
		DevMode: cfg.AuthDevMode,
	}
	if tokens != nil {
		authCfg.Verifier = tokens
	}
	auth, err := middleware.NewAuth(authCfg)
	if err != nil {
		return fmt.Errorf("failed to create auth middleware: %w", err)
	}

	// HTTP Server
	srv := plannerhttp.NewServer(cfg.ServerPort, logger, plannerhttp.Services{
		Todo:   todoSvc,
		Auth:   authSvc,
		Users:  userSvc,
		Health: checks,
	}, auth)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "error", err)
			stop()
		}
	}()

	logger.Info("server starting", "port", cfg.ServerPort)

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped gracefully")
	return nil
}

// newPublisher builds the event sinks enabled in cfg. The returned func
// flushes and closes them.
func newPublisher(ctx context.Context, cfg config.EventsConfig, logger *slog.Logger) (events.Publisher, func(), error) {
	var (
		sinks   events.Fanout
		closers []func() error
	)

	if cfg.SQSQueueURL != "" {
		client, err := events.NewSQSClient(ctx, cfg.AWSRegion, cfg.AWSEndpointURL)
		if err != nil {
			return nil, nil, err
		}
		sinks = append(sinks, events.NewSQSPublisher(client, cfg.SQSQueueURL))
		logger.Info("sqs events enabled", "region", cfg.AWSRegion)
	}

	if len(cfg.KafkaBrokers) > 0 {
		kp := events.NewKafkaPublisher(events.NewKafkaWriter(cfg.KafkaBrokers, cfg.KafkaTopic))
		sinks = append(sinks, kp)
		closers = append(closers, kp.Close)
		logger.Info("kafka events enabled", "brokers", cfg.KafkaBrokers, "topic", cfg.KafkaTopic)
	}

	closeAll := func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Error("failed to close event publisher", "error", err)
			}
		}
	}

	switch len(sinks) {
	case 0:
		return events.Nop{}, closeAll, nil
	case 1:
		return sinks[0], closeAll, nil
	default:
		return sinks, closeAll, nil
	}
}

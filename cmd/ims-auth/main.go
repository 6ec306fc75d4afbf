package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tsuruyu/SimplyBeauty-IMS/idm"
	"github.com/tsuruyu/SimplyBeauty-IMS/internal/config"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/audit"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/auth"
	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/repository"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Setup logger
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Credential store and primary audit sink
	var (
		usersRepo auth.CredentialRepository
		primary   audit.Sink
	)
	switch cfg.StoreDriver {
	case "postgres":
		db, err := repository.NewDB(repository.Config{
			DSN:             cfg.DSN(),
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: 30 * time.Minute,
		})
		if err != nil {
			logger.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err = repository.Migrate(ctx, db)
		cancel()
		if err != nil {
			logger.Error("failed to apply schema", "error", err)
			os.Exit(1)
		}
		logger.Info("connected to database")

		usersRepo = repository.NewUsersRepository(db)
		primary = repository.NewAuditRepository(db)
	default:
		logger.Warn("using in-memory credential store; accounts are lost on restart")
		usersRepo = repository.NewMemoryUsersRepository()
		primary = audit.NewMemorySink()
	}

	// Session store
	var sessionStore auth.SessionStore
	switch cfg.SessionDriver {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer rdb.Close()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err := rdb.Ping(ctx).Err()
		cancel()
		if err != nil {
			// Requests fail with 503 until Redis is reachable.
			logger.Error("redis unreachable at startup", "addr", cfg.RedisAddr, "error", err)
		}
		sessionStore = repository.NewSessionsRepository(rdb, "ims")
	default:
		logger.Warn("using in-memory session store; sessions are lost on restart")
		sessionStore = repository.NewMemorySessionsRepository()
	}

	// Audit fan-out: structured log always, RabbitMQ when configured
	secondaries := []audit.Sink{audit.NewLogSink(logger)}
	if cfg.HasAMQP() {
		var publisher audit.Publisher
		amqpPublisher, err := audit.NewAMQPPublisher(cfg.AMQPURL)
		if err != nil {
			logger.Warn("RabbitMQ unavailable, audit events will not be published", "error", err)
			publisher = &audit.FallbackPublisher{Logger: logger}
		} else {
			logger.Info("publishing audit events to RabbitMQ", "exchange", cfg.AuditExchange)
			publisher = amqpPublisher
		}
		defer publisher.Close()
		secondaries = append(secondaries, audit.NewAMQPSink(publisher, cfg.AuditExchange))
	}
	dispatcher := audit.NewDispatcher(audit.DispatcherConfig{DropIfFull: true}, logger, secondaries...)
	defer dispatcher.Close()

	sec, err := idm.New(idm.Config{
		Settings:  cfg,
		Users:     usersRepo,
		Sessions:  sessionStore,
		AuditSink: audit.NewMultiSink(primary, dispatcher),
		Logger:    logger,
	})
	if err != nil {
		logger.Error("failed to initialize security services", "error", err)
		os.Exit(1)
	}

	if cfg.Bootstrap.Enabled() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		created, err := sec.Bootstrap(ctx)
		cancel()
		if err != nil {
			logger.Error("failed to bootstrap admin account", "error", err)
			os.Exit(1)
		}
		if created {
			logger.Info("bootstrap admin account created", "email", cfg.Bootstrap.AdminEmail)
		}
	}

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.ServerAddr, cfg.ServerPort)
	server := &http.Server{
		Addr:         addr,
		Handler:      sec.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}

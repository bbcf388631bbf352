// Package main is the entry point for the Courtside server. It loads
// configuration, connects the storage backend and event broker, wires the
// plugins, and starts the HTTP server.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/keyxmakerx/courtside/internal/app"
	"github.com/keyxmakerx/courtside/internal/config"
	"github.com/keyxmakerx/courtside/internal/database"
	"github.com/keyxmakerx/courtside/internal/events"
	"github.com/keyxmakerx/courtside/internal/storage"
)

func main() {
	// --- Load Configuration ---
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	setupLogging(cfg)

	slog.Info("starting Courtside",
		slog.String("env", cfg.Env),
		slog.Int("port", cfg.Port),
		slog.String("storage", cfg.Storage.Backend),
		slog.String("timezone", cfg.Venue.Location.String()),
	)

	// --- Connect Storage ---
	store, closeStore, err := openStore(cfg)
	if err != nil {
		slog.Error("failed to open storage", slog.Any("error", err))
		os.Exit(1)
	}
	defer closeStore()

	// --- Connect Broker ---
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Broker.Enabled() {
		p, err := events.NewAMQPPublisher(cfg.Broker.URL, cfg.Broker.Queue)
		if err != nil {
			// Events are optional; the front desk keeps working without them.
			slog.Warn("event broker unavailable, events disabled", slog.Any("error", err))
		} else {
			publisher = p
			slog.Info("connected to RabbitMQ", slog.String("queue", cfg.Broker.Queue))
		}
	}
	defer publisher.Close()

	// --- Create Application ---
	application := app.New(cfg, store, publisher)
	application.RegisterRoutes()
	application.ResumeTicking(context.Background())

	// --- Graceful Shutdown ---
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		slog.Info("shutting down server...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := application.Shutdown(ctx); err != nil {
			slog.Error("server forced shutdown", slog.Any("error", err))
		}
	}()

	// --- Start Server ---
	if err := application.Start(); err != nil {
		// Echo returns http.ErrServerClosed on graceful shutdown.
		slog.Info("server stopped", slog.Any("reason", err))
	}
}

// openStore connects the configured storage backend. The returned func
// releases its connections.
func openStore(cfg *config.Config) (storage.Store, func(), error) {
	switch cfg.Storage.Backend {
	case config.BackendMariaDB:
		db, err := database.NewMariaDB(cfg.Database)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to MariaDB: %w", err)
		}
		if err := database.RunMigrations(db, cfg.Storage.MigrationsPath); err != nil {
			db.Close()
			return nil, nil, err
		}
		slog.Info("connected to MariaDB")
		return storage.NewMariaDBStore(db), func() { db.Close() }, nil

	case config.BackendMemory:
		slog.Warn("using in-memory storage; sessions are lost on restart")
		return storage.NewMemoryStore(), func() {}, nil

	default:
		rdb, err := database.NewRedis(cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to Redis: %w", err)
		}
		slog.Info("connected to Redis")
		return storage.NewRedisStore(rdb), func() { rdb.Close() }, nil
	}
}

// setupLogging configures the global slog logger. Development uses text
// output for readability, production JSON for log aggregation.
func setupLogging(cfg *config.Config) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}

	var handler slog.Handler
	if cfg.IsDevelopment() {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// Package app is the application bootstrap and dependency injection root.
// It holds the shared infrastructure (storage backend, event publisher, Echo
// instance) and wires the court, pricing and report plugins together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/courtside/internal/apperror"
	"github.com/keyxmakerx/courtside/internal/config"
	"github.com/keyxmakerx/courtside/internal/events"
	"github.com/keyxmakerx/courtside/internal/middleware"
	"github.com/keyxmakerx/courtside/internal/plugins/sessions"
	"github.com/keyxmakerx/courtside/internal/storage"
)

// App holds all shared dependencies and the Echo HTTP server instance.
// Created once at startup in main.go.
type App struct {
	// Config holds the loaded application configuration.
	Config *config.Config

	// Store is the backend holding the court session document.
	Store storage.Store

	// Events receives lifecycle events after each persisted change.
	Events events.Publisher

	// Echo is the HTTP server instance.
	Echo *echo.Echo

	// Courts runs the session lifecycle; set by RegisterRoutes.
	Courts sessions.CourtService

	// Ticker advances active sessions; set by RegisterRoutes.
	Ticker *sessions.Ticker
}

// New creates a new App and configures Echo with global middleware and the
// JSON error handler.
func New(cfg *config.Config, store storage.Store, publisher events.Publisher) *App {
	e := echo.New()

	// We log our own startup line.
	e.HideBanner = true
	e.HidePort = true

	middleware.TrustedProxies(e, cfg.TrustedProxies)

	app := &App{
		Config: cfg,
		Store:  store,
		Events: publisher,
		Echo:   e,
	}

	app.setupMiddleware()
	e.HTTPErrorHandler = app.errorHandler

	return app
}

// setupMiddleware registers global middleware. The logger wraps recovery so
// recovered panics are logged with their final status.
func (a *App) setupMiddleware() {
	a.Echo.Use(middleware.RequestLogger())
	a.Echo.Use(middleware.Recovery())
	a.Echo.Use(middleware.SecurityHeaders())
	a.Echo.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins: []string{a.Config.BaseURL},
	}))
}

// errorResponse is the body of every error reply.
type errorResponse struct {
	Error   string `json:"error"`
	Type    string `json:"type"`
	Message string `json:"message"`
}

// errorHandler maps domain errors (AppError) and Echo's own HTTP errors to
// JSON responses. Unexpected errors are logged and reported generically.
func (a *App) errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	errType := "internal_error"
	message := "An unexpected error occurred."

	var appErr *apperror.AppError
	var echoErr *echo.HTTPError
	switch {
	case errors.As(err, &appErr):
		code = appErr.Code
		errType = appErr.Type
		message = appErr.Message

		if appErr.Internal != nil {
			slog.Error("internal error",
				slog.String("type", appErr.Type),
				slog.String("message", appErr.Message),
				slog.Any("internal", appErr.Internal),
				slog.String("path", c.Request().URL.Path),
			)
		}
	case errors.As(err, &echoErr):
		code = echoErr.Code
		errType = "http_error"
		if msg, ok := echoErr.Message.(string); ok {
			message = msg
		} else {
			message = http.StatusText(code)
		}
	default:
		slog.Error("unhandled error",
			slog.Any("error", err),
			slog.String("path", c.Request().URL.Path),
		)
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, errorResponse{
		Error:   http.StatusText(code),
		Type:    errType,
		Message: message,
	})
}

// Start begins listening for HTTP requests on the configured port.
func (a *App) Start() error {
	addr := fmt.Sprintf(":%d", a.Config.Port)
	slog.Info("starting Courtside server",
		slog.String("addr", addr),
		slog.String("env", a.Config.Env),
		slog.String("storage", a.Config.Storage.Backend),
	)
	return a.Echo.Start(addr)
}

// Shutdown drains HTTP connections and stops all tick loops.
func (a *App) Shutdown(ctx context.Context) error {
	err := a.Echo.Shutdown(ctx)
	if a.Ticker != nil {
		a.Ticker.StopAll()
	}
	return err
}

package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/courtside/internal/middleware"
	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
	"github.com/keyxmakerx/courtside/internal/plugins/reports"
	"github.com/keyxmakerx/courtside/internal/plugins/sessions"
)

// RegisterRoutes builds the plugins and registers all routes. This is the
// single place where plugin wiring happens.
func (a *App) RegisterRoutes() {
	e := a.Echo
	venue := a.Config.Venue

	catalog := pricing.DefaultCatalog()
	courts := sessions.NewCourtRegistry(venue.SquashCourts, venue.TableTennisTables, catalog)
	repo := sessions.NewCourtRepository(a.Store, a.Config.Storage.Key)
	a.Courts = sessions.NewCourtService(repo, catalog, courts, a.Events, venue.Location)
	a.Ticker = sessions.NewTicker(a.Courts, venue.TickInterval)

	reportSvc := reports.NewReportService(a.Courts, catalog, venue.Location)

	// Health check for container orchestration; fails when storage is down.
	e.GET("/healthz", a.healthz)

	api := e.Group("/api/v1", middleware.RateLimit(a.Config.WriteRateLimit, time.Minute))
	pricing.RegisterRoutes(api, pricing.NewHandler(catalog))
	sessions.RegisterRoutes(api, sessions.NewHandler(a.Courts, a.Ticker))
	reports.RegisterRoutes(api, reports.NewHandler(reportSvc, venue.Location))
}

// ResumeTicking restarts tick loops for sessions left active by a previous
// run.
func (a *App) ResumeTicking(ctx context.Context) {
	if err := a.Ticker.Resume(ctx); err != nil {
		slog.Warn("could not resume active sessions", slog.Any("error", err))
	}
}

func (a *App) healthz(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	if err := a.Store.Ping(ctx); err != nil {
		slog.Warn("health check failed", slog.Any("error", err))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

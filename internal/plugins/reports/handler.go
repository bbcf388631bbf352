package reports

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/courtside/internal/apperror"
)

// Handler processes HTTP requests for the reports plugin.
type Handler struct {
	svc ReportService
	loc *time.Location

	// now is the clock used when no date is given.
	now func() time.Time
}

// NewHandler creates a new reports Handler. Dates in requests are read in loc.
func NewHandler(svc ReportService, loc *time.Location) *Handler {
	return &Handler{svc: svc, loc: loc, now: time.Now}
}

// day parses the "date" query parameter, defaulting to today.
func (h *Handler) day(c echo.Context) (time.Time, error) {
	v := c.QueryParam("date")
	if v == "" {
		return h.now().In(h.loc), nil
	}
	d, err := time.ParseInLocation(time.DateOnly, v, h.loc)
	if err != nil {
		return time.Time{}, apperror.NewBadRequest("date must look like YYYY-MM-DD")
	}
	return d, nil
}

// Daily returns the daily report as JSON.
// GET /api/v1/reports/daily?date=YYYY-MM-DD
func (h *Handler) Daily(c echo.Context) error {
	day, err := h.day(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Daily(c.Request().Context(), day)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, r)
}

// DailyCSV returns the daily report as a CSV download.
// GET /api/v1/reports/daily.csv?date=YYYY-MM-DD
func (h *Handler) DailyCSV(c echo.Context) error {
	day, err := h.day(c)
	if err != nil {
		return err
	}
	r, err := h.svc.Daily(c.Request().Context(), day)
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, r); err != nil {
		return apperror.NewInternal(err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename="report-%s.csv"`, r.Date))
	return c.Blob(http.StatusOK, "text/csv; charset=utf-8", buf.Bytes())
}

// RegisterRoutes sets up the report routes on the API group.
func RegisterRoutes(api *echo.Group, h *Handler) {
	api.GET("/reports/daily", h.Daily)
	api.GET("/reports/daily.csv", h.DailyCSV)
}

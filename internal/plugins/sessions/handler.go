package sessions

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/courtside/internal/apperror"
	"github.com/keyxmakerx/courtside/internal/plugins/pricing"
)

// Handler processes HTTP requests for the sessions plugin.
type Handler struct {
	svc    CourtService
	ticker *Ticker
}

// NewHandler creates a new sessions Handler. Starting a session through it
// starts the court's tick loop.
func NewHandler(svc CourtService, ticker *Ticker) *Handler {
	return &Handler{svc: svc, ticker: ticker}
}

// sessionResponse pairs a session with its current cost breakdown.
type sessionResponse struct {
	Session *Session      `json:"session"`
	Quote   pricing.Quote `json:"quote"`
}

func (h *Handler) respond(c echo.Context, code int, s *Session) error {
	return c.JSON(code, sessionResponse{Session: s, Quote: h.svc.Quote(s)})
}

// ListCourts returns every court with its sessions.
// GET /api/v1/courts
func (h *Handler) ListCourts(c echo.Context) error {
	courts, err := h.svc.ListCourts(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, courts)
}

// GetCourt returns one court's upcoming, active and finished sessions.
// GET /api/v1/courts/:court
func (h *Handler) GetCourt(c echo.Context) error {
	doc, err := h.svc.GetCourt(c.Request().Context(), c.Param("court"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, doc)
}

// GetSession returns a session in any state.
// GET /api/v1/courts/:court/sessions/:sid
func (h *Handler) GetSession(c echo.Context) error {
	s, err := h.svc.GetByID(c.Request().Context(), c.Param("court"), c.Param("sid"))
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, s)
}

// CreateSession books an upcoming session.
// POST /api/v1/courts/:court/sessions
func (h *Handler) CreateSession(c echo.Context) error {
	var input CreateSessionInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	s, err := h.svc.CreateUpcoming(c.Request().Context(), c.Param("court"), input)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusCreated, s)
}

// UpdateSession edits an upcoming session.
// PUT /api/v1/courts/:court/sessions/:sid
func (h *Handler) UpdateSession(c echo.Context) error {
	var patch SessionPatch
	if err := c.Bind(&patch); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	s, err := h.svc.UpdateUpcoming(c.Request().Context(), c.Param("court"), c.Param("sid"), patch)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, s)
}

// CancelSession removes an upcoming session.
// DELETE /api/v1/courts/:court/sessions/:sid
func (h *Handler) CancelSession(c echo.Context) error {
	if err := h.svc.CancelUpcoming(c.Request().Context(), c.Param("court"), c.Param("sid")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// StartSession activates an upcoming session.
// POST /api/v1/courts/:court/sessions/:sid/start
func (h *Handler) StartSession(c echo.Context) error {
	s, err := h.svc.Start(c.Request().Context(), c.Param("court"), c.Param("sid"))
	if err != nil {
		return err
	}
	h.ticker.Watch(s.CourtID)
	return h.respond(c, http.StatusOK, s)
}

// StartWalkIn creates and activates a session in one step.
// POST /api/v1/courts/:court/start
func (h *Handler) StartWalkIn(c echo.Context) error {
	var input CreateSessionInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	s, err := h.svc.StartWalkIn(c.Request().Context(), c.Param("court"), input)
	if err != nil {
		return err
	}
	h.ticker.Watch(s.CourtID)
	return h.respond(c, http.StatusCreated, s)
}

// UpdateActive edits the pricing inputs of the active session.
// PATCH /api/v1/courts/:court/active
func (h *Handler) UpdateActive(c echo.Context) error {
	var patch SessionPatch
	if err := c.Bind(&patch); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	s, err := h.svc.UpdateActive(c.Request().Context(), c.Param("court"), patch)
	if err != nil {
		return err
	}
	return h.respond(c, http.StatusOK, s)
}

// EndSession settles the active session. Responds 204 when nothing was
// active.
// POST /api/v1/courts/:court/active/end
func (h *Handler) EndSession(c echo.Context) error {
	var input EndSessionInput
	if err := c.Bind(&input); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}

	courtID := c.Param("court")
	s, err := h.svc.End(c.Request().Context(), courtID, input)
	if err != nil {
		return err
	}
	h.ticker.Stop(courtID)
	if s == nil {
		return c.NoContent(http.StatusNoContent)
	}
	return c.JSON(http.StatusOK, s)
}

// resetRequest is the body of a history reset.
type resetRequest struct {
	Timeframe string `json:"timeframe"`
}

// ResetHistory removes finished sessions older than a timeframe.
// POST /api/v1/history/reset
func (h *Handler) ResetHistory(c echo.Context) error {
	var req resetRequest
	if err := c.Bind(&req); err != nil {
		return apperror.NewBadRequest("invalid request body")
	}
	tf, err := ParseTimeframe(req.Timeframe)
	if err != nil {
		return err
	}

	removed, err := h.svc.ResetHistory(c.Request().Context(), tf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"removed": removed})
}

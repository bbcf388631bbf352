package sessions

import (
	"github.com/labstack/echo/v4"
)

// RegisterRoutes sets up all court and session routes on the API group.
func RegisterRoutes(api *echo.Group, h *Handler) {
	api.GET("/courts", h.ListCourts)
	api.GET("/courts/:court", h.GetCourt)

	api.POST("/courts/:court/sessions", h.CreateSession)
	api.GET("/courts/:court/sessions/:sid", h.GetSession)
	api.PUT("/courts/:court/sessions/:sid", h.UpdateSession)
	api.DELETE("/courts/:court/sessions/:sid", h.CancelSession)
	api.POST("/courts/:court/sessions/:sid/start", h.StartSession)

	api.POST("/courts/:court/start", h.StartWalkIn)
	api.PATCH("/courts/:court/active", h.UpdateActive)
	api.POST("/courts/:court/active/end", h.EndSession)

	api.POST("/history/reset", h.ResetHistory)
}

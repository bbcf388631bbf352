package middleware

import (
	"fmt"
	"log/slog"
	"runtime/debug"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/courtside/internal/apperror"
)

// Recovery turns a panicking handler into an internal AppError so the
// front desk gets the usual JSON error body.
func Recovery() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) (err error) {
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				attrs := []any{
					slog.Any("panic", r),
					slog.String("request_id", c.Response().Header().Get(RequestIDHeader)),
					slog.String("route", c.Path()),
					slog.String("stack", string(debug.Stack())),
				}
				if court := c.Param("court"); court != "" {
					attrs = append(attrs, slog.String("court_id", court))
				}
				slog.Error("handler panicked", attrs...)
				err = apperror.NewInternal(fmt.Errorf("panic in %s %s: %v", c.Request().Method, c.Path(), r))
			}()

			return next(c)
		}
	}
}

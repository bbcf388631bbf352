package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/keyxmakerx/courtside/internal/apperror"
)

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRateLimiter_Window(t *testing.T) {
	l := newRateLimiter(2, time.Minute)
	now := time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return now }

	for i := 0; i < 2; i++ {
		if ok, _ := l.allow("1.2.3.4"); !ok {
			t.Fatalf("request %d should pass", i+1)
		}
	}
	ok, retry := l.allow("1.2.3.4")
	if ok {
		t.Fatal("expected third request to be limited")
	}
	if retry != time.Minute {
		t.Errorf("expected retry after a full window, got %s", retry)
	}
	if ok, _ := l.allow("5.6.7.8"); !ok {
		t.Error("expected other IPs to be unaffected")
	}

	now = now.Add(61 * time.Second)
	if ok, _ := l.allow("1.2.3.4"); !ok {
		t.Error("expected a new window to reset the count")
	}
}

func TestRateLimit_SkipsReads(t *testing.T) {
	e := echo.New()
	h := RateLimit(1, time.Minute)(okHandler)

	for i := 0; i < 3; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
		if err := h(c); err != nil {
			t.Fatalf("GET %d: unexpected error %v", i, err)
		}
	}

	post := func() error {
		c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
		return h(c)
	}
	if err := post(); err != nil {
		t.Fatalf("first POST: %v", err)
	}
	if !apperror.Is(post(), "rate_limited") {
		t.Error("expected second POST to be rate limited")
	}
}

func TestTrustedProxies(t *testing.T) {
	e := echo.New()
	TrustedProxies(e, []string{"10.0.0.0/8", "not-a-cidr"})

	tests := []struct {
		name   string
		remote string
		xff    string
		want   string
	}{
		{"trusted proxy forwards client", "10.1.2.3:5000", "203.0.113.7, 10.1.2.3", "203.0.113.7"},
		{"untrusted peer ignored", "198.51.100.9:5000", "203.0.113.7", "198.51.100.9"},
		{"trusted without header", "10.1.2.3:5000", "", "10.1.2.3"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tt.remote
			if tt.xff != "" {
				req.Header.Set(echo.HeaderXForwardedFor, tt.xff)
			}
			if got := e.IPExtractor(req); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestCORS_Preflight(t *testing.T) {
	e := echo.New()
	h := CORS(CORSConfig{AllowedOrigins: []string{"https://desk.example.com/"}})(okHandler)

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/courts", nil)
	req.Header.Set(echo.HeaderOrigin, "https://desk.example.com")
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204 preflight, got %d", rec.Code)
	}
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "https://desk.example.com" {
		t.Errorf("expected origin echoed, got %q", rec.Header().Get(echo.HeaderAccessControlAllowOrigin))
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(echo.HeaderOrigin, "https://evil.example.com")
	rec = httptest.NewRecorder()
	h(e.NewContext(req, rec))
	if rec.Header().Get(echo.HeaderAccessControlAllowOrigin) != "" {
		t.Error("expected no CORS headers for unknown origin")
	}
}

func TestRecovery_ReturnsInternalError(t *testing.T) {
	e := echo.New()
	h := Recovery()(func(echo.Context) error { panic("boom") })

	err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder()))
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) || appErr.Code != http.StatusInternalServerError {
		t.Fatalf("expected internal AppError, got %v", err)
	}
}

func TestRecovery_KeepsPanicValueInternal(t *testing.T) {
	e := echo.New()
	h := Recovery()(func(echo.Context) error { panic("index out of range") })

	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), httptest.NewRecorder())
	c.SetPath("/api/v1/courts/:court/start")
	c.SetParamNames("court")
	c.SetParamValues("squash-1")

	err := h(c)
	var appErr *apperror.AppError
	if !errors.As(err, &appErr) {
		t.Fatalf("expected AppError, got %v", err)
	}
	if appErr.Internal == nil || !strings.Contains(appErr.Internal.Error(), "index out of range") {
		t.Errorf("expected panic value in the internal cause, got %v", appErr.Internal)
	}
	if strings.Contains(appErr.Message, "index out of range") {
		t.Errorf("panic value leaked to the client message: %q", appErr.Message)
	}
}

func TestRequestLogger_SetsRequestID(t *testing.T) {
	e := echo.New()
	h := RequestLogger()(okHandler)

	rec := httptest.NewRecorder()
	if err := h(e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected a generated request ID")
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "upstream-1")
	rec = httptest.NewRecorder()
	h(e.NewContext(req, rec))
	if rec.Header().Get(RequestIDHeader) != "upstream-1" {
		t.Errorf("expected upstream ID kept, got %q", rec.Header().Get(RequestIDHeader))
	}
}

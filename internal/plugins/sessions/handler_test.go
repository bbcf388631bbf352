package sessions

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

// newHandlerEnv returns a handler over a fresh in-memory service.
func newHandlerEnv(t *testing.T) (*Handler, *testEnv, *Ticker) {
	t.Helper()
	env := newTestEnv(t)
	tk := NewTicker(env.svc, time.Hour)
	t.Cleanup(tk.StopAll)
	return NewHandler(env.svc, tk), env, tk
}

// call runs fn against a JSON request and returns the recorder.
func call(t *testing.T, method, body string, params map[string]string, fn echo.HandlerFunc) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, "/", strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	var names, values []string
	for k, v := range params {
		names = append(names, k)
		values = append(values, v)
	}
	c.SetParamNames(names...)
	c.SetParamValues(values...)
	return rec, fn(c)
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var out sessionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding %s: %v", rec.Body.String(), err)
	}
	return out
}

func TestHandler_BookStartAndEnd(t *testing.T) {
	h, _, tk := newHandlerEnv(t)
	court := map[string]string{"court": "squash-1"}

	rec, err := call(t, http.MethodPost, `{"playerName":"Ana","scheduledDuration":2,"scheduledTime":"18:00","selectedTimeInterval":"evening","discountCards":1}`, court, h.CreateSession)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	created := decodeSession(t, rec)
	if created.Session.PlayerName != "Ana" || created.Quote.Total.String() != "150" {
		t.Errorf("unexpected booking %+v / %+v", created.Session, created.Quote)
	}

	rec, err = call(t, http.MethodPost, "", map[string]string{"court": "squash-1", "sid": created.Session.ID}, h.StartSession)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if decodeSession(t, rec).Session.Status != StatusActive {
		t.Errorf("expected active session, got %s", rec.Body.String())
	}
	if !tk.Running("squash-1") {
		t.Error("expected tick loop started with the session")
	}

	rec, err = call(t, http.MethodPost, `{"paymentMethod":"cash","finalCost":140}`, court, h.EndSession)
	if err != nil {
		t.Fatalf("end: %v", err)
	}
	var ended Session
	if err := json.Unmarshal(rec.Body.Bytes(), &ended); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ended.PaymentMethod != MethodCash || ended.Cost.String() != "140" {
		t.Errorf("unexpected settlement %+v", ended)
	}
	if tk.Running("squash-1") {
		t.Error("expected tick loop stopped after end")
	}
}

func TestHandler_EndWithoutActive(t *testing.T) {
	h, _, _ := newHandlerEnv(t)
	rec, err := call(t, http.MethodPost, "", map[string]string{"court": "squash-1"}, h.EndSession)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNoContent {
		t.Errorf("expected 204, got %d", rec.Code)
	}
}

func TestHandler_WalkInConflict(t *testing.T) {
	h, _, _ := newHandlerEnv(t)
	court := map[string]string{"court": "table-tennis"}

	if _, err := call(t, http.MethodPost, `{"playerName":"Ion"}`, court, h.StartWalkIn); err != nil {
		t.Fatalf("first walk-in: %v", err)
	}
	_, err := call(t, http.MethodPost, `{"playerName":"Dan"}`, court, h.StartWalkIn)
	assertAppError(t, err, http.StatusConflict)
}

func TestHandler_BadBody(t *testing.T) {
	h, _, _ := newHandlerEnv(t)
	_, err := call(t, http.MethodPost, `{"scheduledDuration":"two"}`, map[string]string{"court": "squash-1"}, h.CreateSession)
	assertAppError(t, err, http.StatusBadRequest)
}

func TestHandler_UnknownCourt(t *testing.T) {
	h, _, _ := newHandlerEnv(t)
	_, err := call(t, http.MethodGet, "", map[string]string{"court": "court-9"}, h.GetCourt)
	assertAppError(t, err, http.StatusNotFound)
}

func TestHandler_ResetHistory(t *testing.T) {
	h, _, _ := newHandlerEnv(t)

	_, err := call(t, http.MethodPost, `{"timeframe":"forever"}`, nil, h.ResetHistory)
	assertAppError(t, err, http.StatusUnprocessableEntity)

	rec, err := call(t, http.MethodPost, `{"timeframe":"all"}`, nil, h.ResetHistory)
	if err != nil {
		t.Fatalf("reset: %v", err)
	}
	if strings.TrimSpace(rec.Body.String()) != `{"removed":0}` {
		t.Errorf("unexpected body %s", rec.Body.String())
	}
}

func TestHandler_ListCourts(t *testing.T) {
	h, _, _ := newHandlerEnv(t)
	rec, err := call(t, http.MethodGet, "", nil, h.ListCourts)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var out []CourtSnapshot
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out) != 6 || out[5].Court.ID != "table-tennis" {
		t.Errorf("expected 5 squash courts then the table, got %d courts", len(out))
	}
}

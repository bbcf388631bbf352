package database

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func stubSleep(t *testing.T) *[]time.Duration {
	t.Helper()
	var waits []time.Duration
	orig := sleep
	sleep = func(d time.Duration) { waits = append(waits, d) }
	t.Cleanup(func() { sleep = orig })
	return &waits
}

func TestPingWithRetry_RecoversAfterFailures(t *testing.T) {
	waits := stubSleep(t)
	calls := 0
	err := pingWithRetry("redis", func(context.Context) error {
		calls++
		if calls < 3 {
			return errors.New("connection refused")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 pings, got %d", calls)
	}
	if len(*waits) != 2 || (*waits)[0] != time.Second || (*waits)[1] != 2*time.Second {
		t.Errorf("expected 1s then 2s backoff, got %v", *waits)
	}
}

func TestPingWithRetry_GivesUp(t *testing.T) {
	waits := stubSleep(t)
	cause := errors.New("no route to host")
	err := pingWithRetry("mariadb", func(context.Context) error { return cause })
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
	if !strings.Contains(err.Error(), "mariadb") {
		t.Errorf("expected backend name in error, got %v", err)
	}
	if len(*waits) != pingAttempts-1 {
		t.Errorf("expected %d waits, got %d", pingAttempts-1, len(*waits))
	}
	for _, w := range *waits {
		if w > maxBackoff {
			t.Errorf("backoff %s exceeds cap", w)
		}
	}
}

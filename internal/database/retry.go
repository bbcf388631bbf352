package database

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// How long NewMariaDB and NewRedis keep trying before the front desk
// server gives up on its storage backend.
const (
	pingAttempts   = 10
	pingTimeout    = 5 * time.Second
	initialBackoff = time.Second
	maxBackoff     = 30 * time.Second
)

// sleep is replaced in tests.
var sleep = time.Sleep

// pingWithRetry calls ping until it succeeds, doubling the wait between
// attempts up to maxBackoff.
func pingWithRetry(backend string, ping func(ctx context.Context) error) error {
	backoff := initialBackoff
	var err error

	for attempt := 1; attempt <= pingAttempts; attempt++ {
		ctx, cancel := context.WithTimeout(context.Background(), pingTimeout)
		err = ping(ctx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}

		slog.Warn(backend+" not ready, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("backoff", backoff),
			slog.Any("error", err),
		)
		sleep(backoff)
		backoff = min(backoff*2, maxBackoff)
	}
	return fmt.Errorf("pinging %s after %d attempts: %w", backend, pingAttempts, err)
}

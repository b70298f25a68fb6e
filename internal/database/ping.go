package database

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
)

const (
	pingAttempts = 5
	pingTimeout  = 5 * time.Second
)

// pingWithRetry calls ping until it succeeds, backing off 250ms, 500ms, 1s...
// between attempts. Containers started together often race the database.
func pingWithRetry(ctx context.Context, name string, log zerolog.Logger, ping func(context.Context) error) error {
	backoff := 250 * time.Millisecond
	var err error
	for attempt := 1; attempt <= pingAttempts; attempt++ {
		pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		err = ping(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == pingAttempts {
			break
		}
		log.Warn().Err(err).Str("backend", name).Int("attempt", attempt).Dur("retry_in", backoff).Msg("Backend not ready")

		select {
		case <-ctx.Done():
			return fmt.Errorf("ping %s: %w", name, ctx.Err())
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	return fmt.Errorf("ping %s after %d attempts: %w", name, pingAttempts, err)
}

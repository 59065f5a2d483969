// pkg/retry/retry.go - functions for retrying actions with exponential backoff.

package retry

import (
	"errors"
	"fmt"
	"time"

	"github.com/windowsadmins/vpndeploy/pkg/logging"
)

// NonRetryable wraps an error that must not be retried.
type NonRetryable struct {
	Err error
}

func (e NonRetryable) Error() string { return e.Err.Error() }
func (e NonRetryable) Unwrap() error { return e.Err }

// Config defines the configuration for retry attempts.
type Config struct {
	MaxRetries      int
	InitialInterval time.Duration
	Multiplier      float64
}

// Retry retries a given function with exponential backoff.
func Retry(cfg Config, action func() error) error {
	interval := cfg.InitialInterval

	var lastErr error
	for attempt := 1; attempt <= cfg.MaxRetries; attempt++ {
		lastErr = action()
		if lastErr == nil {
			return nil
		}

		var nonRetryable NonRetryable
		if errors.As(lastErr, &nonRetryable) {
			logging.Warn("Non-retryable error encountered",
				"attempt", attempt, "error", lastErr)
			return lastErr
		}

		if attempt < cfg.MaxRetries {
			logging.Warn("Attempt failed, retrying",
				"attempt", attempt, "max_attempts", cfg.MaxRetries,
				"retry_delay", interval.String(), "error", lastErr)
			time.Sleep(interval)
			interval = time.Duration(float64(interval) * cfg.Multiplier)
		}
	}

	return fmt.Errorf("action failed after %d attempts: %w", cfg.MaxRetries, lastErr)
}

// Package backoff wraps retry-go with the pipeline's error taxonomy: bounded
// exponential backoff for transient inference and storage failures, no
// retries for permanent ones.
package backoff

import (
	"context"
	"errors"
	"time"

	"github.com/avast/retry-go/v4"
)

// Defaults for external call retries.
const (
	DefaultAttempts = 3
	DefaultDelay    = time.Second
)

// permanentError marks an error that must not be retried.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so Do gives up immediately.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// Do runs fn with bounded exponential backoff. Attempts <= 0 and delay <= 0
// fall back to the defaults. Errors wrapped with Permanent stop the loop, as
// does context cancellation. Only the last error is returned.
func Do(ctx context.Context, attempts uint, delay time.Duration, fn func() error) error {
	if attempts == 0 {
		attempts = DefaultAttempts
	}
	if delay <= 0 {
		delay = DefaultDelay
	}

	err := retry.Do(
		fn,
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(delay),
		retry.DelayType(retry.BackOffDelay),
		retry.MaxDelay(30*time.Second),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !IsPermanent(err)
		}),
	)
	if err != nil {
		// Unwrap the permanent marker so callers see the underlying error.
		var pe *permanentError
		if errors.As(err, &pe) {
			return pe.err
		}
	}
	return err
}

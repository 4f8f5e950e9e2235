package jobs

import (
	"context"
	"errors"
	"time"

	"github.com/prepdeck/backend/internal/models"
)

// Handler is the function that processes a queue job
type Handler func(ctx context.Context, j *models.QueueJob) error

// ErrMaxAttempts indicates the job reached max attempts
var ErrMaxAttempts = errors.New("max attempts reached")

// permanentError marks a failure that retrying cannot fix, such as a
// missing prerequisite or unparsable model output.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the worker pool fails the job immediately instead
// of retrying. A nil err returns nil.
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

// BackoffDuration returns exponential backoff duration for attempt n
func BackoffDuration(attempt int) time.Duration {
	if attempt <= 0 {
		return time.Second
	}
	// simple exponential: base 2^attempt seconds, capped
	d := time.Duration(1<<uint(attempt)) * time.Second
	max := 5 * time.Minute
	if d > max {
		return max
	}
	return d
}

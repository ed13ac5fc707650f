package solscan

import (
	"errors"
	"fmt"
)

// ErrMalformed marks an upstream response that does not match the expected
// schema. The crawler tolerates a small number of these per crawl before
// aborting.
var ErrMalformed = errors.New("malformed upstream response")

// ErrBlockedMeta is returned when the metadata endpoint serves a challenge
// page. Metadata is best-effort, so callers usually log and continue.
var ErrBlockedMeta = errors.New("metadata request blocked")

// TransientError wraps a network failure or 5xx response that is worth
// retrying with backoff.
type TransientError struct {
	Status int   // HTTP status, 0 for transport-level failures
	Err    error // underlying cause, nil for bare status errors
}

func (e *TransientError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transient upstream error: %v", e.Err)
	}
	return fmt.Sprintf("transient upstream error: status %d", e.Status)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsTransient reports whether err is retryable with backoff.
func IsTransient(err error) bool {
	var te *TransientError
	return errors.As(err, &te)
}

package crawler

import (
	"math"
	"math/rand"
	"time"
)

// backoffDelay computes the exponential backoff delay for the given attempt
// (1-based), capped at maxDelay, with +/-15% jitter to avoid synchronized
// retries across concurrent crawls.
func backoffDelay(base, maxDelay time.Duration, attempt int) time.Duration {
	delay := float64(base) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxDelay) {
		delay = float64(maxDelay)
	}

	jitter := rand.Float64() * 0.3 * delay
	delay = delay + jitter - (0.15 * delay)

	return time.Duration(delay)
}

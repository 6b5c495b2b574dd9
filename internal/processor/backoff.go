package processor

import "time"

// Default backoff policy for transient delivery failures.
const (
	DefaultBackoffBase = 10 * time.Second
	DefaultBackoffCap  = 10 * time.Minute
)

// Backoff computes the retry delay for the given attempt count:
// base * 2^attempt, capped. The result is non-decreasing in attempt.
func Backoff(base, cap time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = DefaultBackoffBase
	}
	if cap <= 0 {
		cap = DefaultBackoffCap
	}
	if attempt < 0 {
		attempt = 0
	}

	// Guard the shift; past this point the delay is capped anyway.
	if attempt > 30 {
		return cap
	}

	delay := base << uint(attempt)
	if delay > cap || delay <= 0 {
		return cap
	}
	return delay
}

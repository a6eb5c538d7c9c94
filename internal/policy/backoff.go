package policy

import (
	"math"
	"time"
)

// Backoff returns the wait before retry attempt n, counted from 0
type Backoff func(attempt int) time.Duration

// ConstantBackoff waits d before every retry
func ConstantBackoff(d time.Duration) Backoff {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff waits base*multiplier^attempt, capped at ceiling when ceiling is
// positive. A non-positive multiplier doubles.
func ExponentialBackoff(base, ceiling time.Duration, multiplier float64) Backoff {
	if multiplier <= 0 {
		multiplier = 2
	}
	return func(attempt int) time.Duration {
		delay := float64(base) * math.Pow(multiplier, float64(attempt))
		if ceiling > 0 && delay > float64(ceiling) {
			return ceiling
		}
		return time.Duration(delay)
	}
}

package policy

import (
	"time"
)

// retryPolicy implements RetryPolicy
type retryPolicy struct {
	maxRetries int
	backoff    Backoff
	retryable  func(error) bool
}

// NewRetryPolicy creates a retry policy. A nil retryable retries every
// error; a nil backoff retries immediately.
func NewRetryPolicy(maxRetries int, backoff Backoff, retryable func(error) bool) RetryPolicy {
	if backoff == nil {
		backoff = ConstantBackoff(0)
	}
	return &retryPolicy{
		maxRetries: maxRetries,
		backoff:    backoff,
		retryable:  retryable,
	}
}

func (p *retryPolicy) Enabled() bool {
	return p.maxRetries > 0
}

func (p *retryPolicy) Name() string {
	return "retry"
}

func (p *retryPolicy) ShouldRetry(attempt int, err error) bool {
	if err == nil || attempt >= p.maxRetries {
		return false
	}
	if p.retryable != nil {
		return p.retryable(err)
	}
	return true
}

func (p *retryPolicy) Backoff(attempt int) time.Duration {
	if attempt < 0 {
		return 0
	}
	return p.backoff(attempt)
}

func (p *retryPolicy) MaxRetries() int {
	return p.maxRetries
}

package shared

import (
	"time"
)

// RetryPolicy describes a bounded retry schedule with exponential backoff.
// Components receive a policy from configuration instead of embedding retry
// loops inside adapters, so the retry behavior for each error kind stays in
// one place.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first one.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the exponential growth of the delay.
	MaxDelay time.Duration
}

// DefaultRetryPolicy returns the retry schedule used when configuration does
// not override it: 3 attempts, 2s base delay, 30s cap.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   2 * time.Second,
		MaxDelay:    30 * time.Second,
	}
}

// ShouldRetry reports whether another attempt is allowed after the given
// number of completed attempts.
func (p RetryPolicy) ShouldRetry(attempts int) bool {
	return attempts < p.MaxAttempts
}

// Delay returns the backoff delay before the given retry, using exponential
// backoff: BaseDelay * 2^(retry-1), capped at MaxDelay. retry is 1-based.
func (p RetryPolicy) Delay(retry int) time.Duration {
	if retry < 1 {
		retry = 1
	}
	delay := p.BaseDelay
	for i := 1; i < retry; i++ {
		delay *= 2
		if delay >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && delay > p.MaxDelay {
		return p.MaxDelay
	}
	return delay
}

// Validate checks the policy for usable values.
func (p RetryPolicy) Validate() error {
	if p.MaxAttempts < 1 {
		return NewDomainError("INVALID_RETRY_POLICY", "Retry policy must allow at least one attempt")
	}
	if p.BaseDelay < 0 || p.MaxDelay < 0 {
		return NewDomainError("INVALID_RETRY_POLICY", "Retry delays cannot be negative")
	}
	if p.MaxDelay > 0 && p.BaseDelay > p.MaxDelay {
		return NewDomainError("INVALID_RETRY_POLICY", "Base delay cannot exceed max delay")
	}
	return nil
}

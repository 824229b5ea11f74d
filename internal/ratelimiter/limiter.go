package ratelimiter

import (
	"context"

	"golang.org/x/time/rate"
)

// ProviderLimiter is a token bucket in front of the push provider.
// Each batch send consumes one token regardless of how many devices it
// addresses, matching how the provider meters multicast calls.
// Burst is set equal to the rate so no extra burst capacity is allowed
// beyond the configured per-second maximum.
type ProviderLimiter struct {
	limiter *rate.Limiter
}

// New creates a ProviderLimiter granting ratePerSec calls per second.
func New(ratePerSec int) *ProviderLimiter {
	return &ProviderLimiter{limiter: rate.NewLimiter(rate.Limit(ratePerSec), ratePerSec)}
}

// Wait blocks until the limiter grants a token.
// Returns a non-nil error only if ctx is cancelled while waiting.
func (l *ProviderLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

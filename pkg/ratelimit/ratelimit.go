// pkg/ratelimit/ratelimit.go
package ratelimit

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Limiter gates outbound requests. Wait blocks until the next request may
// be issued or the context is canceled.
type Limiter interface {
	Wait(ctx context.Context) error
}

// IntervalLimiter enforces a minimum interval between calls. The first call
// passes immediately.
type IntervalLimiter struct {
	limiter *rate.Limiter
}

func NewIntervalLimiter(minInterval time.Duration) *IntervalLimiter {
	if minInterval <= 0 {
		return &IntervalLimiter{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &IntervalLimiter{limiter: rate.NewLimiter(rate.Every(minInterval), 1)}
}

func (l *IntervalLimiter) Wait(ctx context.Context) error {
	return l.limiter.Wait(ctx)
}

// Nop never blocks. Used in tests and for disabling politeness delays.
type Nop struct{}

func (Nop) Wait(ctx context.Context) error { return ctx.Err() }

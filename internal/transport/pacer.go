package transport

import (
	"context"

	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between outbound calls. It wraps
// golang.org/x/time/rate.Limiter the same way the teacher's inbound HTTP
// rate limiting does (internal/middleware.RateLimit), but in the outbound
// direction: burst is fixed at 1, so Wait blocks until exactly one
// requests-per-second-shaped slot has elapsed since the last call.
type Pacer struct {
	limiter *rate.Limiter
}

// NewPacer builds a Pacer. requestsPerSecond must be > 0.
func NewPacer(requestsPerSecond float64) *Pacer {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 1
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1)}
}

// Wait blocks until the next permitted slot, or until ctx is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

package transport

import (
	"math"
	"math/rand"
	"time"
)

// Backoff computes decorrelated-jitter sleep durations for retried calls:
// sleep = min(cap, base*2^attempt) * U[0.7, 1.3]. Ported from the original
// rate_limiter.py's backoff_sleep — the corpus has no ecosystem backoff
// library with this exact jitter shape, so this stays hand-rolled.
type Backoff struct {
	Base time.Duration
	Cap  time.Duration
	rnd  *rand.Rand
}

// NewBackoff builds a Backoff with the spec's defaults (base 500ms, cap 8s).
func NewBackoff() *Backoff {
	return &Backoff{
		Base: 500 * time.Millisecond,
		Cap:  8 * time.Second,
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Duration computes the sleep duration for the given attempt (0-based)
// without sleeping, so callers can select on it against ctx.Done().
func (b *Backoff) Duration(attempt int) time.Duration {
	raw := float64(b.Base) * math.Pow(2, float64(attempt))
	capped := math.Min(float64(b.Cap), raw)
	jitter := 0.7 + b.rnd.Float64()*0.6
	return time.Duration(capped * jitter)
}

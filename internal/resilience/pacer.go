package resilience

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Pacer enforces a minimum interval between remote calls, independent of
// retry state.
type Pacer struct {
	limiter *rate.Limiter
	min     time.Duration
}

// NewPacer allows one call per min. A non-positive min disables pacing.
func NewPacer(min time.Duration) *Pacer {
	if min <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{limiter: rate.NewLimiter(rate.Every(min), 1), min: min}
}

// Wait blocks until the next call may start.
func (p *Pacer) Wait(ctx context.Context) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return eris.Wrap(err, "pacer: wait")
	}
	return nil
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration { return p.min }

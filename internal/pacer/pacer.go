// Package pacer spaces out repeated requests to a target rate.
package pacer

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// Pacer hands out start times at a fixed rate. It is a token bucket of
// size one: callers that fall behind schedule start immediately but never
// burst to catch up.
//
// A Pacer is safe for concurrent use.
type Pacer struct {
	limiter  *rate.Limiter
	interval time.Duration
	now      func() time.Time
}

// New returns a Pacer releasing perSecond requests per second. A
// non-positive rate returns nil, and a nil Pacer never waits.
func New(perSecond float64) *Pacer {
	if perSecond <= 0 {
		return nil
	}
	return &Pacer{
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
		interval: time.Duration(float64(time.Second) / perSecond),
		now:      time.Now,
	}
}

// Interval returns the spacing between two slots.
func (p *Pacer) Interval() time.Duration {
	if p == nil {
		return 0
	}
	return p.interval
}

// Next reserves a slot and returns when it starts. The first slot starts
// immediately; the result is never earlier than now.
func (p *Pacer) Next() time.Time {
	now := p.now()
	return now.Add(p.limiter.ReserveN(now, 1).DelayFrom(now))
}

// Wait blocks until the caller's slot starts or ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	if p == nil {
		return ctx.Err()
	}
	return p.limiter.Wait(ctx)
}

package wsclient

import (
	"context"
	"time"
)

const (
	retryMin = 500 * time.Millisecond
	retryMax = 10 * time.Second
)

// Retry is a doubling reconnect delay capped at max.
type Retry struct {
	min, max time.Duration
	t        time.Duration
}

func NewRetry(min, max time.Duration) Retry {
	return Retry{min: min, max: max, t: min}
}

// Fail waits out the current delay and doubles it. It returns false when
// ctx ends first.
func (r *Retry) Fail(ctx context.Context) bool {
	timer := time.NewTimer(r.t)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
	}
	r.t *= 2
	if r.t > r.max {
		r.t = r.max
	}
	return true
}

func (r *Retry) Success()            { r.t = r.min }
func (r *Retry) Time() time.Duration { return r.t }

package ratelimit

import (
	"context"
	"time"
)

// Decision is the outcome of a Check.  Remaining is max(0, limit-count) for
// allowed requests and 0 for denied ones.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	Reset      time.Time
	RetryAfter time.Duration
}

// Limiter applies policies to client keys using a Store.
type Limiter struct {
	store Store
	now   func() time.Time
}

type Option func(*Limiter)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(l *Limiter) { l.now = now }
}

func New(store Store, opts ...Option) *Limiter {
	l := &Limiter{store: store, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Check counts one request from client under policy p.  State is keyed by
// the pair (client, p.Raw) so different routes never share a counter.
func (l *Limiter) Check(ctx context.Context, client string, p Policy) (Decision, error) {
	now := l.now()
	w, err := l.store.Hit(ctx, client+":"+p.Raw, p.Period, now)
	if err != nil {
		return Decision{}, err
	}
	d := Decision{Limit: p.Limit, Reset: w.Reset}
	if w.Count > p.Limit {
		d.RetryAfter = w.Reset.Sub(now)
		if d.RetryAfter < 0 {
			d.RetryAfter = 0
		}
		return d, nil
	}
	d.Allowed = true
	d.Remaining = p.Limit - w.Count
	return d, nil
}

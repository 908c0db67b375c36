package ratelimit

import (
	"context"
	"time"
)

// Window is the state of one counter after a hit.
type Window struct {
	Count int
	Reset time.Time
}

// Store records a hit against key and returns the resulting window.  A new
// window of length period starts when none exists or now is past the stored
// reset.  Implementations must make the increment atomic per key.
type Store interface {
	Hit(ctx context.Context, key string, period time.Duration, now time.Time) (Window, error)
}

package engine

import (
	"sync"
	"time"
)

// RateLimiter caps how many fingerprint checks may run per clock hour.
// Every call to Allow consumes quota, including calls that end up denied
// and checks replayed for OTP validation: the budget measures how often
// the check path runs, not how often it succeeds.
//
// The window is fixed, not sliding. The first check after the previous
// window expired opens a fresh hour with a zero count. A fixed window is
// coarser than a sliding one but needs no per-call history, and the
// budget is generous enough that the difference never reaches a
// legitimate user.
type RateLimiter struct {
	mu            sync.Mutex
	max           int
	count         int
	windowResetAt time.Time

	// now is replaced in tests to step across window boundaries.
	now func() time.Time
}

// NewRateLimiter creates a limiter allowing max checks per hour.
func NewRateLimiter(max int) *RateLimiter {
	return &RateLimiter{max: max, now: time.Now}
}

// Allow consumes one unit of quota and reports whether the check may
// proceed. The window is lazily opened on the first call and reopened
// whenever the current time reaches its reset point.
func (r *RateLimiter) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.windowResetAt.IsZero() || !now.Before(r.windowResetAt) {
		r.windowResetAt = now.Add(time.Hour)
		r.count = 0
	}

	r.count++
	return r.count <= r.max
}

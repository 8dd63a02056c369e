package admission

import (
	"sync"
	"time"
)

// Decision is the outcome of a rate check.
type Decision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

type window struct {
	count   int
	resetAt time.Time
}

// RateLimiter is a fixed-window counter per identity.
type RateLimiter struct {
	clock  Clock
	limit  int
	window time.Duration

	mu      sync.Mutex
	windows map[string]*window
}

// NewRateLimiter allows limit requests per identity in each window.
func NewRateLimiter(limit int, win time.Duration, clock Clock) *RateLimiter {
	if clock == nil {
		clock = SystemClock()
	}
	return &RateLimiter{
		clock:   clock,
		limit:   limit,
		window:  win,
		windows: make(map[string]*window),
	}
}

// TryAdmit counts one request for identity. The first request opens a window;
// requests inside it are admitted until the limit is reached; once the window
// has elapsed the next request opens a fresh one.
func (r *RateLimiter) TryAdmit(identity string) Decision {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	w, ok := r.windows[identity]
	if !ok || !now.Before(w.resetAt) {
		w = &window{resetAt: now.Add(r.window)}
		r.windows[identity] = w
	}

	if w.count >= r.limit {
		return Decision{Allowed: false, Limit: r.limit, Remaining: 0, ResetAt: w.resetAt}
	}
	w.count++
	return Decision{Allowed: true, Limit: r.limit, Remaining: r.limit - w.count, ResetAt: w.resetAt}
}

// Sweep drops expired windows and returns how many were removed.
func (r *RateLimiter) Sweep() int {
	now := r.clock.Now()

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, w := range r.windows {
		if !now.Before(w.resetAt) {
			delete(r.windows, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked identities.
func (r *RateLimiter) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.windows)
}

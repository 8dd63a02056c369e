// Package admission gates inbound commands: an idempotency cache that replays
// stored results and a fixed-window rate limiter keyed by caller identity.
package admission

import "time"

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock returns the wall clock.
func SystemClock() Clock {
	return systemClock{}
}

package sdjwt

import "time"

// Clock abstracts time.Now for deterministic tests and for callers running
// against a synchronized external clock.
type Clock interface {
	Now() time.Time
}

// SystemClock is the default Clock, backed by time.Now.
type SystemClock struct{}

// Now returns the current wall-clock time.
func (SystemClock) Now() time.Time { return time.Now() }

package engine

import "time"

// SetClock swaps the match clock until the returned func is called.
func SetClock(f func() time.Time) (restore func()) {
	prev := now
	now = f
	return func() { now = prev }
}

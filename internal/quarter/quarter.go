// Package quarter implements the calendar-quarter edit-lock policy.
// Records whose observed_at falls outside the current quarter are
// read-only; the check is re-evaluated against the wall clock on every
// mutation attempt, so a record can become locked between two requests
// purely because time advanced.
package quarter

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// clock is a package-level time source so tests can freeze time via SetClock.
// Production code uses the real clock.
var clock = clockwork.NewRealClock()

// SetClock swaps the time source used by IsCurrent. Pass nil to reset to
// real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}

// Index returns the zero-based quarter index (0-3) of t in UTC.
func Index(t time.Time) int {
	return (int(t.UTC().Month()) - 1) / 3
}

// IsCurrent reports whether t falls in the same calendar quarter and year
// as now, both evaluated in UTC.
func IsCurrent(t time.Time) bool {
	now := clock.Now().UTC()
	t = t.UTC()
	return t.Year() == now.Year() && Index(t) == Index(now)
}

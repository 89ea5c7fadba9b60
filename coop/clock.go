// Package coop implements the cooperative's financial record engine:
// period key resolution across legacy storage formats, per-period
// aggregation, refund eligibility, quarter share price reconciliation
// and report building on top of PocketBase collections.
package coop

import "time"

// Clock provides the current time to date-driven rules.
// Injecting it keeps eligibility and expiry windows deterministic in tests.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

// Now returns the current wall clock time.
func (SystemClock) Now() time.Time {
	return time.Now()
}

// FixedClock is a Clock pinned to a single instant, for tests.
type FixedClock struct {
	Instant time.Time
}

// Now returns the pinned instant.
func (c FixedClock) Now() time.Time {
	return c.Instant
}

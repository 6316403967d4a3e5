package engine

import "time"

// Clock supplies the ledger time. Review windows and stake locks compare
// against this, never against time.Now directly, so tests control time.
type Clock interface {
	Now() int64 // unix seconds
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns the current unix time in seconds.
func (SystemClock) Now() int64 { return time.Now().Unix() }

// FixedClock is a settable clock for tests.
type FixedClock struct {
	Time int64
}

// Now returns the fixed time.
func (c *FixedClock) Now() int64 { return c.Time }

// Advance moves the clock forward by d seconds.
func (c *FixedClock) Advance(d int64) { c.Time += d }

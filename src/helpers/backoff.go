package helpers

import "time"

// BackoffPolicy decides how long to wait before start attempt number
// attempt (1-based) after consecutive failures.
type BackoffPolicy interface {
	Next(attempt int) time.Duration
}

// FixedBackoff waits the same interval after every failure.
type FixedBackoff struct {
	Interval time.Duration
}

func (b FixedBackoff) Next(int) time.Duration {
	return b.Interval
}

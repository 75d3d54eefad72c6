package supervisor

import (
	"sync"
	"time"
)

// RestartLimiter allows at most Max session starts inside Window. Once the
// limit is hit further starts are refused for Pause.
type RestartLimiter struct {
	Max    int
	Window time.Duration
	Pause  time.Duration

	mu          sync.Mutex
	starts      []time.Time
	pausedUntil time.Time
}

func NewRestartLimiter(max int, window, pause time.Duration) *RestartLimiter {
	return &RestartLimiter{Max: max, Window: window, Pause: pause}
}

// -----------------------------------------------------------------------------

// Allow reports whether a start may happen at now. When it may not, the
// returned duration is the remaining pause.
func (l *RestartLimiter) Allow(now time.Time) (bool, time.Duration) {
	if l == nil || l.Max <= 0 {
		return true, 0
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Before(l.pausedUntil) {
		return false, l.pausedUntil.Sub(now)
	}

	l.pruneLocked(now)
	if len(l.starts) >= l.Max {
		l.pausedUntil = now.Add(l.Pause)
		l.starts = nil
		return false, l.Pause
	}
	return true, 0
}

// -----------------------------------------------------------------------------

// Record counts one start attempt.
func (l *RestartLimiter) Record(now time.Time) {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts = append(l.starts, now)
}

// -----------------------------------------------------------------------------

// Reset clears history and any pause. Used for operator starts.
func (l *RestartLimiter) Reset() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.starts = nil
	l.pausedUntil = time.Time{}
}

// -----------------------------------------------------------------------------

func (l *RestartLimiter) pruneLocked(now time.Time) {
	cutoff := now.Add(-l.Window)
	kept := l.starts[:0]
	for _, t := range l.starts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.starts = kept
}

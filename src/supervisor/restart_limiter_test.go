package supervisor

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRestartLimiter_PausesAfterMax(t *testing.T) {
	l := NewRestartLimiter(5, 300*time.Second, 300*time.Second)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		ok, _ := l.Allow(now)
		assert.True(t, ok)
		l.Record(now)
		now = now.Add(30 * time.Second)
	}

	ok, wait := l.Allow(now)
	assert.False(t, ok)
	assert.Equal(t, 300*time.Second, wait)

	ok, wait = l.Allow(now.Add(100 * time.Second))
	assert.False(t, ok)
	assert.Equal(t, 200*time.Second, wait)

	ok, _ = l.Allow(now.Add(300 * time.Second))
	assert.True(t, ok)
}

func TestRestartLimiter_OldStartsAge(t *testing.T) {
	l := NewRestartLimiter(2, time.Minute, time.Hour)
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	l.Record(now)
	l.Record(now.Add(10 * time.Second))

	ok, _ := l.Allow(now.Add(75 * time.Second))
	assert.True(t, ok)
}

func TestRestartLimiter_DisabledAndReset(t *testing.T) {
	var nilLimiter *RestartLimiter
	ok, _ := nilLimiter.Allow(time.Now())
	assert.True(t, ok)

	l := NewRestartLimiter(1, time.Minute, time.Hour)
	now := time.Now()
	l.Record(now)
	ok, _ = l.Allow(now)
	assert.False(t, ok)

	l.Reset()
	ok, _ = l.Allow(now)
	assert.True(t, ok)
}

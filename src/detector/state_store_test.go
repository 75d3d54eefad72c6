package detector

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserve_FirstObservationReturnsItself(t *testing.T) {
	s := NewSymbolStateStore()

	prevVol, prevPrice := s.Observe("X", 101.5, 5000)
	assert.Equal(t, int64(5000), prevVol)
	assert.Equal(t, 101.5, prevPrice)

	prevVol, prevPrice = s.Observe("X", 102, 7000)
	assert.Equal(t, int64(5000), prevVol)
	assert.Equal(t, 101.5, prevPrice)

	st, ok := s.Get("X")
	require.True(t, ok)
	assert.Equal(t, int64(7000), st.LastVolume)
	assert.Equal(t, 102.0, st.LastPrice)
	assert.True(t, st.LastAlertAt.IsZero())
}

func TestTryMarkAlert_Cooldown(t *testing.T) {
	s := NewSymbolStateStore()
	t0 := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)

	assert.True(t, s.TryMarkAlert("X", t0, time.Minute))
	assert.False(t, s.TryMarkAlert("X", t0.Add(59*time.Second), time.Minute))
	assert.True(t, s.TryMarkAlert("X", t0.Add(60*time.Second), time.Minute))
	assert.True(t, s.TryMarkAlert("Y", t0, time.Minute))
}

func TestObserve_Concurrent(t *testing.T) {
	s := NewSymbolStateStore()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.Observe("X", 1, int64(i+1))
			s.TryMarkAlert("X", time.Now(), time.Minute)
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 1, s.Len())
}

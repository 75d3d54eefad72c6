package utils

import (
	"testing"

	"volume-spike-detector/src/models"

	"github.com/stretchr/testify/assert"
)

func TestRingBuffer_WrapsAndKeepsOrder(t *testing.T) {
	rb := NewRingBuffer(3)
	for _, sym := range []string{"A", "B", "C", "D"} {
		rb.Append(models.MSpikeEvent{Symbol: sym})
	}

	assert.Equal(t, 3, rb.Size())
	all := rb.GetAll()
	assert.Equal(t, []string{"B", "C", "D"}, symbols(all))
	assert.Equal(t, []string{"C", "D"}, symbols(rb.GetLatest(2)))
	assert.Empty(t, rb.GetLatest(0))
}

func TestRingBuffer_DefaultCapacity(t *testing.T) {
	assert.Equal(t, 200, NewRingBuffer(0).Capacity())
}

func symbols(evs []models.MSpikeEvent) []string {
	out := make([]string, len(evs))
	for i, e := range evs {
		out[i] = e.Symbol
	}
	return out
}

package utils

import (
	"sync"

	"volume-spike-detector/src/models"
)

// -----------------------------------------------------------------------------
// RingBuffer is a fixed-size circular buffer of recent spike events.
// -----------------------------------------------------------------------------

type RingBuffer struct {
	data     []models.MSpikeEvent
	capacity int
	index    int // Next write position
	size     int // Current number of elements
	mu       sync.RWMutex
}

// -----------------------------------------------------------------------------

// NewRingBuffer creates a new buffer with fixed capacity
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 200
	}

	return &RingBuffer{
		data:     make([]models.MSpikeEvent, capacity),
		capacity: capacity,
	}
}

// -----------------------------------------------------------------------------

// Append adds an event, overwriting the oldest when full
func (rb *RingBuffer) Append(ev models.MSpikeEvent) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data[rb.index] = ev
	rb.index = (rb.index + 1) % rb.capacity

	if rb.size < rb.capacity {
		rb.size++
	}
}

// -----------------------------------------------------------------------------

// GetLatest returns up to n latest events, oldest first
func (rb *RingBuffer) GetLatest(n int) []models.MSpikeEvent {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if rb.size == 0 || n <= 0 {
		return []models.MSpikeEvent{}
	}

	count := n
	if n > rb.size {
		count = rb.size
	}

	result := make([]models.MSpikeEvent, count)

	// Latest element sits at index-1
	startIdx := (rb.index - count + rb.capacity) % rb.capacity
	for i := 0; i < count; i++ {
		result[i] = rb.data[(startIdx+i)%rb.capacity]
	}

	return result
}

// -----------------------------------------------------------------------------

// GetAll returns all events in insertion order (oldest to newest)
func (rb *RingBuffer) GetAll() []models.MSpikeEvent {
	return rb.GetLatest(rb.capacity)
}

// -----------------------------------------------------------------------------

// Size returns current number of elements
func (rb *RingBuffer) Size() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.size
}

// -----------------------------------------------------------------------------

// Capacity returns buffer capacity (fixed)
func (rb *RingBuffer) Capacity() int {
	return rb.capacity
}

package modem

import (
	"fmt"
	"sync"
)

// History implements a thread-safe bounded buffer of the most recent
// signal readings. When the buffer reaches capacity the oldest
// readings are dropped, so it always holds a contiguous tail of the
// reading stream in arrival order.
type History struct {
	capacity int

	mu       sync.Mutex
	readings []Reading
}

// NewHistory creates a history buffer holding up to capacity readings.
// Returns an error if capacity is not positive.
func NewHistory(capacity int) (*History, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("invalid history capacity: %d", capacity)
	}
	return &History{
		capacity: capacity,
		readings: make([]Reading, 0, capacity),
	}, nil
}

// Append adds a reading, evicting the oldest one when full.
func (h *History) Append(r Reading) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.readings) == h.capacity {
		copy(h.readings, h.readings[1:])
		h.readings = h.readings[:h.capacity-1]
	}
	h.readings = append(h.readings, r)
}

// Latest returns the most recent reading, or false when empty.
func (h *History) Latest() (Reading, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.readings) == 0 {
		return Reading{}, false
	}
	return h.readings[len(h.readings)-1], true
}

// Snapshot returns a copy of the buffered readings, oldest first.
// Returns nil if the buffer is empty.
func (h *History) Snapshot() []Reading {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.readings) == 0 {
		return nil
	}
	out := make([]Reading, len(h.readings))
	copy(out, h.readings)
	return out
}

// Size returns the current number of buffered readings.
func (h *History) Size() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.readings)
}

// Clear removes all buffered readings.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.readings = h.readings[:0]
}

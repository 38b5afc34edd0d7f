package status

import "github.com/sweeney/agri-logger/internal/logic"

// eventRing is a fixed-capacity FIFO of the most recent transitions.
// The oldest entry is overwritten when full.
// Not safe for concurrent use; the caller must synchronize.
type eventRing struct {
	buf      []logic.Event
	capacity int
	head     int // next write position
	count    int
}

func newEventRing(capacity int) *eventRing {
	return &eventRing{
		buf:      make([]logic.Event, capacity),
		capacity: capacity,
	}
}

func (r *eventRing) push(e logic.Event) {
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.capacity
	if r.count < r.capacity {
		r.count++
	}
}

// items returns a copy of the stored events, oldest first.
func (r *eventRing) items() []logic.Event {
	if r.count == 0 {
		return nil
	}

	result := make([]logic.Event, r.count)
	// Oldest item is at (head - count) mod capacity
	start := (r.head - r.count + r.capacity) % r.capacity
	for i := 0; i < r.count; i++ {
		result[i] = r.buf[(start+i)%r.capacity]
	}
	return result
}

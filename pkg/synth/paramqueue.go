package synth

import "sync/atomic"

// ParamChange is one queued parameter update.
type ParamChange struct {
	ID    string
	Value float64
}

// ParamQueue is a single-producer single-consumer lock-free ring carrying
// parameter changes from the UI thread to the audio thread. The audio thread
// drains it at the start of each buffer; parameter smoothing absorbs the one
// buffer of latency.
type ParamQueue struct {
	buffer []ParamChange
	mask   uint64
	head   atomic.Uint64 // consumer position
	tail   atomic.Uint64 // producer position
}

// NewParamQueue creates a queue. Capacity rounds up to a power of two.
func NewParamQueue(capacity int) *ParamQueue {
	size := 1
	for size < capacity {
		size <<= 1
	}
	return &ParamQueue{
		buffer: make([]ParamChange, size),
		mask:   uint64(size - 1),
	}
}

// Push enqueues a change from the producer side. Returns false when the
// queue is full; the caller can retry on the next change since smoothed
// parameters tolerate a dropped intermediate value.
func (q *ParamQueue) Push(change ParamChange) bool {
	tail := q.tail.Load()
	if tail-q.head.Load() >= uint64(len(q.buffer)) {
		return false
	}
	q.buffer[tail&q.mask] = change
	q.tail.Store(tail + 1)
	return true
}

// Pop dequeues from the consumer side.
func (q *ParamQueue) Pop() (ParamChange, bool) {
	head := q.head.Load()
	if head == q.tail.Load() {
		return ParamChange{}, false
	}
	change := q.buffer[head&q.mask]
	q.head.Store(head + 1)
	return change, true
}

// Len returns the number of queued changes.
func (q *ParamQueue) Len() int {
	return int(q.tail.Load() - q.head.Load())
}

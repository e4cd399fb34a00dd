package queue

import "sync/atomic"

// DefaultCapacity is the ring's slot count used unless a component asks for
// a different one. Must stay a power of two (fast modulo via bitwise AND).
const DefaultCapacity = 1 << 14

// Ring is a bounded single-producer/single-consumer queue: exactly one
// goroutine may call Push, exactly one (a different) goroutine may call
// Pop. Unlike the teacher's multi-producer disruptor.RingBuffer, a single
// producer never needs a CAS to claim a slot — a plain atomic store on the
// producer cursor is enough, so there is no Sequencer here, just the two
// cursors.
//
// The producer and consumer cursors are each padded to their own cache
// line (the teacher's RingBufferSlot/RingBuffer pad the same way with
// `_ [40]byte` to stop false sharing) so the producer spinning on
// Push and the consumer spinning on Pop never bounce the same cache line
// back and forth between cores.
type Ring[T any] struct {
	mask uint64
	buf  []T

	producer uint64
	_        [7]uint64 // pad producer onto its own cache line

	consumer uint64
	_        [7]uint64 // pad consumer onto its own cache line
}

// NewRing creates a ring with the given capacity, which must be a power of
// two. Panics otherwise — this is a startup-time configuration error, not
// a runtime condition.
func NewRing[T any](capacity int) *Ring[T] {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("queue: capacity must be a power of two")
	}
	return &Ring[T]{
		mask: uint64(capacity - 1),
		buf:  make([]T, capacity),
	}
}

// Push appends v. It reports false without blocking if the ring is full —
// back-pressure is the caller's problem to solve (spin-yield, drop, retry),
// never the queue's.
func (r *Ring[T]) Push(v T) bool {
	producer := atomic.LoadUint64(&r.producer)
	consumer := atomic.LoadUint64(&r.consumer)
	if producer-consumer >= uint64(len(r.buf)) {
		return false
	}
	r.buf[producer&r.mask] = v
	atomic.StoreUint64(&r.producer, producer+1)
	return true
}

// Pop removes and returns the oldest element. It reports false without
// blocking if the ring is empty.
func (r *Ring[T]) Pop() (T, bool) {
	var zero T
	consumer := atomic.LoadUint64(&r.consumer)
	producer := atomic.LoadUint64(&r.producer)
	if consumer >= producer {
		return zero, false
	}
	v := r.buf[consumer&r.mask]
	r.buf[consumer&r.mask] = zero
	atomic.StoreUint64(&r.consumer, consumer+1)
	return v, true
}

// Len reports the number of elements currently queued. Approximate under
// concurrent access from the non-owning side, exact from the owning side.
func (r *Ring[T]) Len() int {
	producer := atomic.LoadUint64(&r.producer)
	consumer := atomic.LoadUint64(&r.consumer)
	return int(producer - consumer)
}

// Cap reports the ring's fixed capacity.
func (r *Ring[T]) Cap() int {
	return len(r.buf)
}

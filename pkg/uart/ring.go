package uart

import "sync/atomic"

// BufferSize is the capacity of the receive buffer in bytes.
const BufferSize = 64

// RingBuffer is the receive buffer shared between the interrupt handler
// (producer) and the foreground loop (consumer).
//
// The producer owns write and the slot it points at; the consumer owns read.
// pending is the only field both sides modify and is updated atomically:
// the producer stores the byte before incrementing it, the consumer loads
// it before reading the slot. pending never exceeds BufferSize; a byte that
// would exceed it is dropped and raises the overflow flag instead.
//
// Reset touches both sides and must run with the producer masked.
type RingBuffer struct {
	storage [BufferSize]byte
	write   uint32
	read    uint32

	pending  atomic.Int32
	overflow atomic.Bool

	produced atomic.Uint64
	consumed atomic.Uint64
	dropped  atomic.Uint64
}

// RingStats is a snapshot of buffer counters.
type RingStats struct {
	Produced uint64 `json:"produced"`
	Consumed uint64 `json:"consumed"`
	Dropped  uint64 `json:"dropped"`
	Pending  int    `json:"pending"`
	Overflow bool   `json:"overflow"`
}

// Produce stores one byte. It is called from interrupt context: it never
// blocks, never allocates and runs in constant time.
func (rb *RingBuffer) Produce(b byte) {
	if rb.pending.Load() >= BufferSize {
		rb.overflow.Store(true)
		rb.dropped.Add(1)
		return
	}
	rb.storage[rb.write] = b
	rb.write = (rb.write + 1) % BufferSize
	rb.pending.Add(1)
	rb.produced.Add(1)
}

// Available returns the number of bytes ready to consume, or ErrDataLoss if
// bytes were dropped since the last Reset. The count is a snapshot; the
// producer may add bytes right after it is taken.
func (rb *RingBuffer) Available() (int, error) {
	if rb.overflow.Load() {
		return 0, ErrDataLoss
	}
	return int(rb.pending.Load()), nil
}

// Consume removes and returns the oldest byte.
func (rb *RingBuffer) Consume() (byte, error) {
	if rb.pending.Load() == 0 {
		return 0, ErrEmptyBuffer
	}
	b := rb.storage[rb.read]
	rb.read = (rb.read + 1) % BufferSize
	rb.pending.Add(-1)
	rb.consumed.Add(1)
	return b, nil
}

// Reset discards all buffered bytes and clears the overflow flag.
// Counters in Stats are kept.
func (rb *RingBuffer) Reset() {
	rb.write, rb.read = 0, 0
	rb.pending.Store(0)
	rb.overflow.Store(false)
}

// Stats returns the current counters.
func (rb *RingBuffer) Stats() RingStats {
	return RingStats{
		Produced: rb.produced.Load(),
		Consumed: rb.consumed.Load(),
		Dropped:  rb.dropped.Load(),
		Pending:  int(rb.pending.Load()),
		Overflow: rb.overflow.Load(),
	}
}

// Package buffer provides a bounded history buffer for terminal output.
package buffer

import (
	"sync"
)

// RingBuffer is a thread-safe circular byte buffer that keeps the most
// recent data up to a fixed capacity, discarding the oldest bytes when full.
//
// The terminal session writes its raw output here so reconnecting clients
// can be replayed recent history.
type RingBuffer struct {
	data     []byte
	capacity int
	mu       sync.RWMutex
}

// NewRingBuffer creates a RingBuffer with the given capacity. A capacity
// below 1 is clamped to 1.
func NewRingBuffer(capacity int) *RingBuffer {
	if capacity <= 0 {
		capacity = 1
	}
	return &RingBuffer{
		data:     make([]byte, 0, capacity),
		capacity: capacity,
	}
}

// Write appends data, discarding the oldest bytes once capacity is
// exceeded. Implements io.Writer and never fails.
func (rb *RingBuffer) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		return 0, nil
	}

	rb.mu.Lock()
	defer rb.mu.Unlock()

	// A write at or beyond capacity replaces the whole buffer with the tail.
	if len(p) >= rb.capacity {
		rb.data = make([]byte, rb.capacity)
		copy(rb.data, p[len(p)-rb.capacity:])
		return len(p), nil
	}

	newLen := len(rb.data) + len(p)
	if newLen <= rb.capacity {
		rb.data = append(rb.data, p...)
	} else {
		discard := newLen - rb.capacity
		newData := make([]byte, rb.capacity)
		copy(newData, rb.data[discard:])
		copy(newData[len(rb.data)-discard:], p)
		rb.data = newData
	}

	return len(p), nil
}

// ReadAll returns a copy of the buffered data, safe to use concurrently.
func (rb *RingBuffer) ReadAll() []byte {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if len(rb.data) == 0 {
		return nil
	}

	result := make([]byte, len(rb.data))
	copy(result, rb.data)
	return result
}

// Clear removes all buffered data.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.data = rb.data[:0]
}

// Len returns the current number of buffered bytes.
func (rb *RingBuffer) Len() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	return len(rb.data)
}

// Cap returns the buffer capacity.
func (rb *RingBuffer) Cap() int {
	return rb.capacity
}

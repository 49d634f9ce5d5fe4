package services

import (
	"sync/atomic"
)

// EpochCounter is the monotonic counter behind stale-mutation invalidation.
// Asynchronous work captures the current value before starting I/O and
// discards its result, silently and without partial application, when the
// live value has moved on by completion time.
type EpochCounter struct {
	value atomic.Uint64
}

// NewEpochCounter creates a counter starting at zero
func NewEpochCounter() *EpochCounter {
	return &EpochCounter{}
}

// Current returns the live epoch value
func (e *EpochCounter) Current() uint64 {
	return e.value.Load()
}

// Bump advances the epoch, invalidating every in-flight capture
func (e *EpochCounter) Bump() uint64 {
	return e.value.Add(1)
}

// IsCurrent reports whether a captured value is still live
func (e *EpochCounter) IsCurrent(captured uint64) bool {
	return e.value.Load() == captured
}

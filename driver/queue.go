package driver

import (
	"time"

	"github.com/notnil/armbus"
)

// ReliableQueue is a bounded FIFO of frames that must not be dropped, such as
// configuration writes and parameter queries. A full queue either rejects the
// frame or makes the caller wait; it never overwrites.
type ReliableQueue struct {
	ch chan armbus.Frame
}

// NewReliableQueue creates a queue holding up to capacity frames.
func NewReliableQueue(capacity int) *ReliableQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &ReliableQueue{ch: make(chan armbus.Frame, capacity)}
}

// TryEnqueue appends f or returns ErrQueueFull immediately.
func (q *ReliableQueue) TryEnqueue(f armbus.Frame) error {
	return q.enqueue(f, 0, nil)
}

// Enqueue appends f, waiting up to timeout for space. A non-positive timeout
// behaves like TryEnqueue.
func (q *ReliableQueue) Enqueue(f armbus.Frame, timeout time.Duration) error {
	return q.enqueue(f, timeout, nil)
}

// enqueue additionally gives up with ErrNotRunning when stop is closed.
func (q *ReliableQueue) enqueue(f armbus.Frame, timeout time.Duration, stop <-chan struct{}) error {
	select {
	case q.ch <- f:
		return nil
	default:
	}
	if timeout <= 0 {
		return ErrQueueFull
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case q.ch <- f:
		return nil
	case <-timer.C:
		return ErrTimeout
	case <-stop:
		return ErrNotRunning
	}
}

// TryDequeue pops the oldest frame without blocking.
func (q *ReliableQueue) TryDequeue() (armbus.Frame, bool) {
	select {
	case f := <-q.ch:
		return f, true
	default:
		return armbus.Frame{}, false
	}
}

// Len returns the number of queued frames.
func (q *ReliableQueue) Len() int { return len(q.ch) }

// Cap returns the queue capacity.
func (q *ReliableQueue) Cap() int { return cap(q.ch) }

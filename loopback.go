package armbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// LoopbackBus is an in-memory CAN bus for tests and simulations.
// Multiple endpoints opened from the same bus can exchange frames.
//
// Like a CAN controller whose receive FIFO overflows, an endpoint with a full
// buffer misses the frame; the sender never waits for it. Misses are counted
// in Dropped.
type LoopbackBus struct {
	mu        sync.RWMutex
	closed    bool
	endpoints map[*loopEndpoint]struct{}
	depth     int
	dropped   atomic.Uint64
}

// NewLoopbackBus creates a new loopback bus whose endpoints buffer up to 64
// frames each.
func NewLoopbackBus() *LoopbackBus {
	return NewLoopbackBusDepth(64)
}

// NewLoopbackBusDepth creates a loopback bus with the given per-endpoint
// receive buffer depth.
func NewLoopbackBusDepth(depth int) *LoopbackBus {
	if depth < 1 {
		depth = 1
	}
	return &LoopbackBus{endpoints: make(map[*loopEndpoint]struct{}), depth: depth}
}

// Open creates a new endpoint attached to the bus.
func (b *LoopbackBus) Open() Transport {
	ep := &loopEndpoint{
		bus:    b,
		ch:     make(chan Frame, b.depth),
		closed: make(chan struct{}),
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ep.dead = true
		close(ep.closed)
		return ep
	}
	b.endpoints[ep] = struct{}{}
	b.mu.Unlock()
	return ep
}

// Dropped returns how many deliveries were skipped because an endpoint's
// buffer was full.
func (b *LoopbackBus) Dropped() uint64 { return b.dropped.Load() }

// Close closes the bus and detaches all endpoints.
func (b *LoopbackBus) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for ep := range b.endpoints {
		ep.closeNoLock()
	}
	b.endpoints = nil
	b.mu.Unlock()
	return nil
}

type loopEndpoint struct {
	bus    *LoopbackBus
	ch     chan Frame
	mu     sync.Mutex
	dead   bool
	closed chan struct{}
}

// Send broadcasts the frame to all other endpoints on the same bus without
// blocking. Frames without a timestamp are stamped with the send time.
func (e *loopEndpoint) Send(frame Frame) error {
	if err := frame.Validate(); err != nil {
		return Transient("send", err)
	}
	e.mu.Lock()
	dead := e.dead
	e.mu.Unlock()
	if dead {
		return Fatal("send", ErrClosed)
	}
	e.bus.mu.RLock()
	if e.bus.closed {
		e.bus.mu.RUnlock()
		return Fatal("send", ErrClosed)
	}
	targets := make([]*loopEndpoint, 0, len(e.bus.endpoints))
	for ep := range e.bus.endpoints {
		if ep != e {
			targets = append(targets, ep)
		}
	}
	e.bus.mu.RUnlock()

	if frame.Timestamp == 0 {
		frame.Timestamp = uint64(time.Now().UnixMicro())
	}
	for _, t := range targets {
		select {
		case t.ch <- frame:
		default:
			e.bus.dropped.Add(1)
		}
	}
	return nil
}

// Receive waits up to timeout for the next frame. A non-positive timeout
// polls without blocking.
func (e *loopEndpoint) Receive(timeout time.Duration) (Frame, error) {
	select {
	case f := <-e.ch:
		return f, nil
	case <-e.closed:
		return Frame{}, Fatal("receive", ErrClosed)
	default:
	}
	if timeout <= 0 {
		return Frame{}, Timeout("receive", nil)
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case f := <-e.ch:
		return f, nil
	case <-e.closed:
		return Frame{}, Fatal("receive", ErrClosed)
	case <-timer.C:
		return Frame{}, Timeout("receive", nil)
	}
}

// Close detaches endpoint from bus.
func (e *loopEndpoint) Close() error {
	e.bus.mu.Lock()
	e.closeNoLock()
	e.bus.mu.Unlock()
	return nil
}

func (e *loopEndpoint) closeNoLock() {
	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return
	}
	e.dead = true
	close(e.closed)
	if e.bus.endpoints != nil {
		delete(e.bus.endpoints, e)
	}
	e.mu.Unlock()
}

package armbus

import (
	"sync"
	"sync/atomic"
)

// Mux fans out received frames to any number of subscribers via filters.
//
// Unlike a reader that owns the Transport, Mux never calls Receive itself: the
// goroutine that already owns receiving (the driver's RX pipeline) hands every
// frame to Dispatch. Dispatch never blocks; a subscriber whose buffer is full
// misses the frame and the miss is counted in Dropped.
type Mux struct {
	mu      sync.RWMutex
	subs    map[uint64]*subscriber
	next    uint64
	closed  bool
	dropped atomic.Uint64
}

type subscriber struct {
	filter FrameFilter
	ch     chan Frame
}

// NewMux creates an empty multiplexer.
func NewMux() *Mux {
	return &Mux{subs: make(map[uint64]*subscriber)}
}

// Close closes all subscriber channels. Subsequent Subscribe calls return a
// closed channel.
func (m *Mux) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return nil
	}
	m.closed = true
	for id, s := range m.subs {
		close(s.ch)
		delete(m.subs, id)
	}
	return nil
}

// Subscribe registers a new subscriber with the provided filter and channel
// buffer. The returned channel receives frames that match the filter. The
// cancel function closes the channel and is safe to call more than once.
func (m *Mux) Subscribe(filter FrameFilter, buffer int) (<-chan Frame, func()) {
	if buffer < 0 {
		buffer = 0
	}
	s := &subscriber{filter: filter, ch: make(chan Frame, buffer)}
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		close(s.ch)
		return s.ch, func() {}
	}
	id := m.next
	m.next++
	m.subs[id] = s
	m.mu.Unlock()

	cancel := func() {
		m.mu.Lock()
		if cur, ok := m.subs[id]; ok && cur == s {
			close(cur.ch)
			delete(m.subs, id)
		}
		m.mu.Unlock()
	}
	return s.ch, cancel
}

// Dispatch delivers f to every matching subscriber without blocking.
func (m *Mux) Dispatch(f Frame) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.subs {
		if s.filter != nil && !s.filter(f) {
			continue
		}
		select {
		case s.ch <- f:
		default:
			m.dropped.Add(1)
		}
	}
}

// Len returns the number of active subscribers.
func (m *Mux) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber was full.
func (m *Mux) Dropped() uint64 { return m.dropped.Load() }

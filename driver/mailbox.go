package driver

import (
	"sync"
	"sync/atomic"
)

// Mailbox is a single-slot, last-write-wins holder of the latest realtime
// command.
//
// A bounded channel cannot have its pending item replaced by the sender, so
// latest-wins over a channel needs drain-and-retry loops. A mutex around one
// slot does the same job in a value swap.
//
// Invariants: at most one command is resident; Send always replaces; Take
// empties the slot. The critical sections only swap values; metrics are
// updated after the lock is released.
type Mailbox struct {
	mu   sync.Mutex
	slot Command
	full bool

	poisoned  atomic.Bool
	maxFrames int
	metrics   *Metrics
}

// NewMailbox creates a mailbox accepting commands of up to maxFrames frames.
// metrics may be nil.
func NewMailbox(maxFrames int, metrics *Metrics) *Mailbox {
	if metrics == nil {
		metrics = &Metrics{}
	}
	return &Mailbox{maxFrames: maxFrames, metrics: metrics}
}

// Send replaces the slot contents with cmd. It returns ErrInvalidInput for an
// empty or oversized command and ErrPoisonedState once the consumer died
// abnormally.
func (m *Mailbox) Send(cmd Command) error {
	if err := cmd.validate(m.maxFrames); err != nil {
		return err
	}
	if m.poisoned.Load() {
		return ErrPoisonedState
	}

	m.mu.Lock()
	replaced := m.full
	m.slot = cmd
	m.full = true
	m.mu.Unlock()

	m.metrics.realtimeCommands.Add(1)
	m.metrics.realtimeFrames.Add(uint64(cmd.Len()))
	if replaced {
		m.metrics.overwrites.Add(1)
	}
	return nil
}

// Take removes and returns the resident command. Only the TX pipeline calls it.
func (m *Mailbox) Take() (Command, bool) {
	m.mu.Lock()
	if !m.full {
		m.mu.Unlock()
		return Command{}, false
	}
	cmd := m.slot
	m.slot = Command{}
	m.full = false
	m.mu.Unlock()
	return cmd, true
}

// Pending reports whether a command is waiting.
func (m *Mailbox) Pending() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.full
}

// Poison marks the mailbox unusable. The TX pipeline calls it when it
// terminates abnormally.
func (m *Mailbox) Poison() { m.poisoned.Store(true) }

// Poisoned reports whether Poison was called.
func (m *Mailbox) Poisoned() bool { return m.poisoned.Load() }

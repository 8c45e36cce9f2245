package driver

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/notnil/armbus"
)

// Driver runs the RX and TX pipelines over one transport.
//
// Callers may use SendRealtime, SendReliable, Snapshot, Diagnostics, Metrics
// and CheckHealth concurrently from any number of goroutines.
type Driver struct {
	cfg       Config
	transport armbus.Transport
	logger    *slog.Logger
	session   uuid.UUID
	ownsBus   bool

	mailbox   *Mailbox
	queue     *ReliableQueue
	metrics   *Metrics
	telemetry *telemetry
	mux       *armbus.Mux

	running  atomic.Bool
	started  atomic.Bool
	stop     chan struct{}
	stopOnce sync.Once
	rxDone   chan struct{}
	txDone   chan struct{}

	shutdownOnce sync.Once
	shutdownErr  error
}

// Option customizes a Driver.
type Option func(*Driver)

// WithLogger sets the logger. The driver adds component and session
// attributes to it.
func WithLogger(l *slog.Logger) Option {
	return func(d *Driver) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithoutTransportClose leaves the transport open on Shutdown.
func WithoutTransportClose() Option {
	return func(d *Driver) { d.ownsBus = false }
}

// New creates a stopped driver over t. Call Start to launch the pipelines.
func New(t armbus.Transport, cfg Config, opts ...Option) (*Driver, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil transport", ErrInvalidInput)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Driver{
		cfg:       cfg,
		transport: t,
		logger:    slog.Default(),
		session:   uuid.New(),
		ownsBus:   true,
		metrics:   &Metrics{},
		telemetry: newTelemetry(),
		mux:       armbus.NewMux(),
		stop:      make(chan struct{}),
		rxDone:    make(chan struct{}),
		txDone:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	d.logger = d.logger.With("component", "armbus.driver", "session", d.session.String())
	d.mailbox = NewMailbox(cfg.MaxPackageFrames, d.metrics)
	d.queue = NewReliableQueue(cfg.QueueCapacity)
	return d, nil
}

// Open builds the transport described by cfg and starts a driver on it.
func Open(cfg Config, opts ...Option) (*Driver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	holder := &Driver{logger: slog.Default()}
	for _, opt := range opts {
		opt(holder)
	}
	t, err := OpenTransport(cfg, holder.logger)
	if err != nil {
		return nil, err
	}
	d, err := New(t, cfg, opts...)
	if err != nil {
		_ = t.Close()
		return nil, err
	}
	if err := d.Start(); err != nil {
		_ = d.Shutdown()
		return nil, err
	}
	return d, nil
}

// Start launches the RX and TX pipelines. It may be called once.
func (d *Driver) Start() error {
	if !d.started.CompareAndSwap(false, true) {
		return ErrAlreadyStarted
	}
	d.running.Store(true)
	go d.runPipeline("rx", d.rxDone, d.rxLoop)
	go d.runPipeline("tx", d.txDone, d.txLoop)
	d.logger.Info("driver started",
		"burst_limit", d.cfg.BurstLimit,
		"queue_capacity", d.cfg.QueueCapacity,
		"rx_timeout", d.cfg.RxTimeout)
	return nil
}

// runPipeline runs loop on a dedicated OS thread and turns a panic into a
// fatal error. A TX panic poisons the mailbox.
func (d *Driver) runPipeline(name string, done chan struct{}, loop func()) {
	defer close(done)
	defer func() {
		if r := recover(); r != nil {
			if name == "tx" {
				d.mailbox.Poison()
			}
			d.fail(name, fmt.Errorf("pipeline panic: %v", r))
		}
	}()

	if d.cfg.LockOSThread {
		runtime.LockOSThread()
		defer runtime.UnlockOSThread()
		if err := setThreadNice(d.cfg.Nice); err != nil {
			d.logger.Warn("thread priority not applied", "pipeline", name, "nice", d.cfg.Nice, "error", err)
		}
	}
	loop()
	d.logger.Debug("pipeline exited", "pipeline", name)
}

// fail records a fatal error and clears the running flag, which stops the
// other pipeline too.
func (d *Driver) fail(pipeline string, err error) {
	d.metrics.fatalErrors.Add(1)
	if d.running.Swap(false) {
		d.logger.Error("fatal error, stopping driver", "pipeline", pipeline, "error", err)
	}
	d.stopOnce.Do(func() { close(d.stop) })
}

// SendRealtime places cmd in the mailbox, replacing any command the TX
// pipeline has not picked up yet. It never waits for the bus.
func (d *Driver) SendRealtime(cmd Command) error {
	if d.mailbox.Poisoned() {
		return ErrPoisonedState
	}
	if !d.running.Load() {
		return ErrNotRunning
	}
	return d.mailbox.Send(cmd)
}

// SendRealtimeFrames is SendRealtime for a package given as frames.
func (d *Driver) SendRealtimeFrames(frames ...armbus.Frame) error {
	return d.SendRealtime(NewCommand(frames...))
}

// SendReliable appends f to the reliable queue. With a non-positive timeout
// a full queue returns ErrQueueFull at once; otherwise the call waits up to
// timeout and returns ErrTimeout.
func (d *Driver) SendReliable(f armbus.Frame, timeout time.Duration) error {
	if d.mailbox.Poisoned() {
		return ErrPoisonedState
	}
	if !d.running.Load() {
		return ErrNotRunning
	}
	if err := f.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	err := d.queue.enqueue(f, timeout, d.stop)
	switch {
	case err == nil:
		d.metrics.reliableEnqueued.Add(1)
	case errors.Is(err, ErrQueueFull):
		d.metrics.queueFull.Add(1)
	case errors.Is(err, ErrTimeout):
		d.metrics.sendTimeouts.Add(1)
	}
	return err
}

// Snapshot returns the latest published telemetry. It never blocks.
func (d *Driver) Snapshot() Snapshot { return d.telemetry.snapshot() }

// Diagnostics returns the low-rate diagnostics aggregate.
func (d *Driver) Diagnostics() Diagnostics { return d.telemetry.diagnostics() }

// Metrics returns a copy of the counters.
func (d *Driver) Metrics() MetricsSnapshot { return d.metrics.Snapshot() }

// Session returns the id attached to this driver's log records.
func (d *Driver) Session() uuid.UUID { return d.session }

// Running reports whether both pipelines are meant to be running.
func (d *Driver) Running() bool { return d.running.Load() }

// Subscribe taps the received frame stream. See armbus.Mux.Subscribe.
func (d *Driver) Subscribe(filter armbus.FrameFilter, buffer int) (<-chan armbus.Frame, func()) {
	return d.mux.Subscribe(filter, buffer)
}

// CheckHealth reports whether the RX and TX goroutines are still alive.
func (d *Driver) CheckHealth() (rxAlive, txAlive bool) {
	if !d.started.Load() {
		return false, false
	}
	return alive(d.rxDone), alive(d.txDone)
}

func alive(done <-chan struct{}) bool {
	select {
	case <-done:
		return false
	default:
		return true
	}
}

// Done is closed once the driver stops, whether by Shutdown or by a fatal
// error.
func (d *Driver) Done() <-chan struct{} { return d.stop }

// Shutdown stops both pipelines, waits for them and closes the transport.
// It is safe to call more than once; later calls return the first result.
func (d *Driver) Shutdown() error {
	d.shutdownOnce.Do(func() {
		d.running.Store(false)
		d.stopOnce.Do(func() { close(d.stop) })
		if d.started.Load() {
			<-d.rxDone
			<-d.txDone
		}
		d.mux.Close()

		if n := d.queue.Len(); n > 0 {
			d.logger.Warn("reliable frames left unsent", "count", n)
		}
		if d.ownsBus {
			if err := d.transport.Close(); err != nil && !errors.Is(err, armbus.ErrClosed) {
				d.shutdownErr = fmt.Errorf("driver: close transport: %w", err)
			}
		}
		m := d.metrics.Snapshot()
		d.logger.Info("driver stopped",
			"rx_frames", m.RxFrames,
			"tx_frames", m.TxFrames,
			"overwrites", m.Overwrites,
			"fatal_errors", m.FatalErrors)
	})
	return d.shutdownErr
}

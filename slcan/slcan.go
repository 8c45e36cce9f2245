// Package slcan implements an armbus.Transport for USB-CAN bridges that speak
// the Lawicel SLCAN ASCII protocol over a serial port (CANable, USBtin and
// most CDC-ACM adapters).
package slcan

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"go.bug.st/serial"

	"github.com/notnil/armbus"
)

// DefaultBaud is the serial baud rate used when Options.Baud is zero. USB CDC
// adapters ignore it; UART bridges need it to match their firmware.
const DefaultBaud = 2_000_000

// ErrNack is returned when the adapter answers a command with BEL.
var ErrNack = errors.New("slcan: adapter rejected command")

// Port is the subset of serial.Port the transport needs.
type Port interface {
	io.ReadWriteCloser
	SetReadTimeout(t time.Duration) error
}

// Options configures the adapter on Open.
type Options struct {
	Baud    int    // serial baud rate, DefaultBaud if zero
	Bitrate uint32 // CAN bitrate, 1 Mbit/s if zero
}

// Transport is an SLCAN adapter. Receive must be called from one goroutine;
// Send may run concurrently with it.
type Transport struct {
	port   Port
	closed atomic.Bool

	// receive side, owned by the receiving goroutine
	buf     []byte
	scratch [256]byte

	writeMu sync.Mutex
	wbuf    []byte
}

// Open opens the serial device, configures the CAN bitrate and opens the
// channel.
func Open(portName string, opts Options) (*Transport, error) {
	baud := opts.Baud
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("slcan: open serial port %q: %w", portName, err)
	}
	t, err := New(port, opts)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	return t, nil
}

// New runs the SLCAN setup sequence on an already opened port.
func New(port Port, opts Options) (*Transport, error) {
	bitrate := opts.Bitrate
	if bitrate == 0 {
		bitrate = 1_000_000
	}
	speed, err := bitrateCommand(bitrate)
	if err != nil {
		return nil, err
	}
	t := &Transport{port: port, buf: make([]byte, 0, 512), wbuf: make([]byte, 0, maxLine+1)}
	// Close first so a channel left open by a previous session accepts Sn.
	for _, cmd := range []string{"C\r", speed, "O\r"} {
		if _, err := port.Write([]byte(cmd)); err != nil {
			return nil, fmt.Errorf("slcan: setup %q: %w", cmd[:len(cmd)-1], err)
		}
	}
	return t, nil
}

// Close closes the CAN channel and the serial port.
func (t *Transport) Close() error {
	if !t.closed.CompareAndSwap(false, true) {
		return nil
	}
	t.writeMu.Lock()
	_, _ = t.port.Write([]byte("C\r"))
	t.writeMu.Unlock()
	return t.port.Close()
}

// Send writes one frame line.
func (t *Transport) Send(frame armbus.Frame) error {
	if t.closed.Load() {
		return armbus.Fatal("send", armbus.ErrClosed)
	}
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	line, err := appendFrame(t.wbuf[:0], frame)
	if err != nil {
		return armbus.Transient("send", err)
	}
	t.wbuf = line
	for written := 0; written < len(line); {
		n, err := t.port.Write(line[written:])
		if err != nil {
			return armbus.Fatal("send", portErr(err))
		}
		written += n
	}
	return nil
}

// Receive returns the next frame line within timeout. Adapter acks are
// skipped; a NACK surfaces as a transient error.
func (t *Transport) Receive(timeout time.Duration) (armbus.Frame, error) {
	deadline := time.Now().Add(timeout)
	for {
		if t.closed.Load() {
			return armbus.Frame{}, armbus.Fatal("receive", armbus.ErrClosed)
		}
		line, term, ok := t.nextLine()
		if ok {
			switch {
			case term == '\a':
				return armbus.Frame{}, armbus.Transient("receive", ErrNack)
			case len(line) == 0, line[0] == 'z', line[0] == 'Z':
				continue
			}
			f, err := parseFrame(line)
			if err != nil {
				return armbus.Frame{}, armbus.Transient("receive", err)
			}
			f.Timestamp = uint64(time.Now().UnixMicro())
			return f, nil
		}
		if len(t.buf) > 2*maxLine {
			t.buf = t.buf[:0]
			return armbus.Frame{}, armbus.Transient("receive", errMalformed)
		}

		remaining := time.Until(deadline)
		if remaining <= 0 {
			return armbus.Frame{}, armbus.Timeout("receive", nil)
		}
		if err := t.port.SetReadTimeout(remaining); err != nil {
			return armbus.Frame{}, armbus.Fatal("receive", portErr(err))
		}
		n, err := t.port.Read(t.scratch[:])
		if err != nil {
			return armbus.Frame{}, armbus.Fatal("receive", portErr(err))
		}
		t.buf = append(t.buf, t.scratch[:n]...)
	}
}

// nextLine pops one '\r' or BEL terminated line from the receive buffer.
func (t *Transport) nextLine() ([]byte, byte, bool) {
	i := bytes.IndexAny(t.buf, "\r\a")
	if i < 0 {
		return nil, 0, false
	}
	term := t.buf[i]
	line := make([]byte, i)
	copy(line, t.buf[:i])
	n := copy(t.buf, t.buf[i+1:])
	t.buf = t.buf[:n]
	return line, term, true
}

// portErr maps a closed serial port onto armbus.ErrClosed.
func portErr(err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) && pe.Code() == serial.PortClosed {
		return fmt.Errorf("%w: %v", armbus.ErrClosed, err)
	}
	return err
}

package armbus

import (
	"errors"
	"fmt"
	"time"
)

// Transport is the narrow boundary between the driver pipelines and a physical
// CAN channel (SocketCAN device, USB bridge, in-memory bus).
//
// Receive is called from exactly one goroutine and Send from exactly one other
// goroutine; implementations must tolerate the two running concurrently.
type Transport interface {
	// Receive waits at most timeout for the next frame. When nothing arrives in
	// time it returns an error for which IsTimeout reports true.
	Receive(timeout time.Duration) (Frame, error)

	// Send transmits one frame.
	Send(frame Frame) error

	// Close releases resources. Further Send/Receive return a fatal error.
	Close() error
}

// ErrorKind classifies transport failures for the pipelines.
type ErrorKind uint8

const (
	// KindTransient failures are recorded and the pipeline keeps going.
	KindTransient ErrorKind = iota
	// KindTimeout means the operation's bound elapsed without work.
	KindTimeout
	// KindFatal failures (device gone, socket closed, bus-off) stop both pipelines.
	KindFatal
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindFatal:
		return "fatal"
	default:
		return "transient"
	}
}

var (
	// ErrClosed indicates the bus or endpoint has been closed.
	ErrClosed = errors.New("armbus: closed")
	// ErrTimeout is returned by Receive when the timeout elapses.
	ErrTimeout = errors.New("armbus: timeout")
	// ErrBusOff indicates the controller entered bus-off state.
	ErrBusOff = errors.New("armbus: bus off")
)

// TransportError carries the operation and classification of a failure.
type TransportError struct {
	Op   string
	Kind ErrorKind
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("armbus: %s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Timeout wraps err as a timeout failure of op.
func Timeout(op string, err error) error {
	if err == nil {
		err = ErrTimeout
	}
	return &TransportError{Op: op, Kind: KindTimeout, Err: err}
}

// Transient wraps err as a recoverable failure of op.
func Transient(op string, err error) error {
	return &TransportError{Op: op, Kind: KindTransient, Err: err}
}

// Fatal wraps err as an unrecoverable failure of op.
func Fatal(op string, err error) error {
	return &TransportError{Op: op, Kind: KindFatal, Err: err}
}

// Classify reports the ErrorKind of err. Unclassified errors are transient,
// except ErrClosed which is always fatal and ErrTimeout which is a timeout.
func Classify(err error) ErrorKind {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Kind
	}
	switch {
	case errors.Is(err, ErrClosed), errors.Is(err, ErrBusOff):
		return KindFatal
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	default:
		return KindTransient
	}
}

// IsTimeout reports whether err is a receive/send timeout.
func IsTimeout(err error) bool { return err != nil && Classify(err) == KindTimeout }

// IsFatal reports whether err must stop the pipelines.
func IsFatal(err error) bool { return err != nil && Classify(err) == KindFatal }

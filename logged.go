package armbus

import (
	"context"
	"log/slog"
	"time"
)

// LogOption is a bitmask for selecting which operations to log.
type LogOption uint8

const (
	LogNone LogOption = 0
	LogRead LogOption = 1 << iota
	LogWrite
	LogAll = LogRead | LogWrite
)

// NewLoggedTransport wraps the given Transport and logs selected operations at
// the given level. Receive timeouts are never logged; they are the normal idle
// state of a receive loop.
func NewLoggedTransport(inner Transport, logger *slog.Logger, level slog.Level, opts LogOption) Transport {
	return NewLoggedTransportWithFilter(inner, logger, level, opts, nil)
}

// NewLoggedTransportWithFilter wraps the given Transport and logs selected
// operations but only for frames that satisfy the provided filter. A nil filter
// logs every frame.
func NewLoggedTransportWithFilter(inner Transport, logger *slog.Logger, level slog.Level, opts LogOption, filter FrameFilter) Transport {
	if logger == nil {
		logger = slog.Default()
	}
	return &loggedTransport{
		inner:  inner,
		logger: logger,
		level:  level,
		opts:   opts,
		filter: filter,
	}
}

type loggedTransport struct {
	inner  Transport
	logger *slog.Logger
	level  slog.Level
	opts   LogOption
	filter FrameFilter
}

func (l *loggedTransport) Send(frame Frame) error {
	if l.opts&LogWrite != 0 && (l.filter == nil || l.filter(frame)) {
		l.logger.Log(context.Background(), l.level, "armbus send", frameAttrs(frame)...)
	}
	err := l.inner.Send(frame)
	if l.opts&LogWrite != 0 && err != nil {
		l.logger.Log(context.Background(), slog.LevelError, "armbus send error",
			"id", frame.ID,
			"kind", Classify(err).String(),
			"error", err,
		)
	}
	return err
}

func (l *loggedTransport) Receive(timeout time.Duration) (Frame, error) {
	f, err := l.inner.Receive(timeout)
	if l.opts&LogRead == 0 {
		return f, err
	}
	switch {
	case err == nil:
		if l.filter == nil || l.filter(f) {
			l.logger.Log(context.Background(), l.level, "armbus receive", frameAttrs(f)...)
		}
	case IsTimeout(err):
	default:
		l.logger.Log(context.Background(), slog.LevelError, "armbus receive error",
			"kind", Classify(err).String(),
			"error", err,
		)
	}
	return f, err
}

// Close forwards to the inner Transport without logging.
func (l *loggedTransport) Close() error {
	return l.inner.Close()
}

func frameAttrs(f Frame) []any {
	return []any{
		"id", f.ID,
		"extended", f.Extended,
		"rtr", f.RTR,
		"len", int(f.Len),
		"data", f.Payload(),
		"ts", f.Timestamp,
		"string", f.String(),
	}
}

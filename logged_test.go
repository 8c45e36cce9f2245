package armbus

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordSink struct {
	mu      sync.Mutex
	records []slog.Record
}

func (s *recordSink) Enabled(context.Context, slog.Level) bool { return true }
func (s *recordSink) Handle(_ context.Context, r slog.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, r.Clone())
	return nil
}
func (s *recordSink) WithAttrs(attrs []slog.Attr) slog.Handler { return s }
func (s *recordSink) WithGroup(name string) slog.Handler       { return s }

func (s *recordSink) has(level slog.Level, msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.records {
		if r.Level == level && r.Message == msg {
			return true
		}
	}
	return false
}

func (s *recordSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

func TestLoggedTransport_WriteAndReadLogging(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()

	sink := &recordSink{}
	logger := slog.New(sink)

	sender := NewLoggedTransport(lb.Open(), logger, slog.LevelInfo, LogWrite)
	receiver := NewLoggedTransport(lb.Open(), logger, slog.LevelInfo, LogRead)
	defer sender.Close()
	defer receiver.Close()

	require.NoError(t, sender.Send(MustFrame(0x123, []byte{1, 2, 3})))
	_, err := receiver.Receive(time.Second)
	require.NoError(t, err)

	assert.True(t, sink.has(slog.LevelInfo, "armbus send"))
	assert.True(t, sink.has(slog.LevelInfo, "armbus receive"))
}

func TestLoggedTransport_TimeoutsAreQuiet(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()
	sink := &recordSink{}
	rx := NewLoggedTransport(lb.Open(), slog.New(sink), slog.LevelDebug, LogAll)

	_, err := rx.Receive(time.Millisecond)
	require.True(t, IsTimeout(err))
	assert.Zero(t, sink.count())
}

func TestLoggedTransport_Filter(t *testing.T) {
	lb := NewLoopbackBus()
	defer lb.Close()
	sink := &recordSink{}
	tx := NewLoggedTransportWithFilter(lb.Open(), slog.New(sink), slog.LevelInfo, LogWrite, ByID(0x2A1))
	_ = lb.Open()

	require.NoError(t, tx.Send(MustFrame(0x2A5, nil)))
	assert.Zero(t, sink.count())
	require.NoError(t, tx.Send(MustFrame(0x2A1, nil)))
	assert.Equal(t, 1, sink.count())
}

func TestLoggedTransport_ErrorLogging(t *testing.T) {
	lb := NewLoopbackBus()
	rx := lb.Open()
	_ = rx.Close()

	sink := &recordSink{}
	wrapped := NewLoggedTransport(rx, slog.New(sink), slog.LevelInfo, LogAll)
	_, err := wrapped.Receive(time.Millisecond)
	require.True(t, IsFatal(err))
	require.Error(t, wrapped.Send(MustFrame(0x1, nil)))

	assert.True(t, sink.has(slog.LevelError, "armbus receive error"))
	assert.True(t, sink.has(slog.LevelError, "armbus send error"))
}

package slcan

import (
	"bytes"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notnil/armbus"
)

// fakePort feeds queued chunks to Read and records everything written.
type fakePort struct {
	mu      sync.Mutex
	written bytes.Buffer
	timeout time.Duration
	in      chan []byte
	closed  chan struct{}
	once    sync.Once
}

func newFakePort() *fakePort {
	return &fakePort{in: make(chan []byte, 16), closed: make(chan struct{})}
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	timeout := p.timeout
	p.mu.Unlock()
	select {
	case chunk := <-p.in:
		return copy(b, chunk), nil
	case <-p.closed:
		return 0, io.EOF
	case <-time.After(timeout):
		return 0, nil
	}
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	select {
	case <-p.closed:
		return 0, io.ErrClosedPipe
	default:
	}
	return p.written.Write(b)
}

func (p *fakePort) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

func (p *fakePort) SetReadTimeout(t time.Duration) error {
	p.mu.Lock()
	p.timeout = t
	p.mu.Unlock()
	return nil
}

func (p *fakePort) output() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.written.String()
}

func TestLineEncoding(t *testing.T) {
	cases := []struct {
		frame armbus.Frame
		line  string
	}{
		{armbus.MustFrame(0x155, []byte{0x00, 0x00, 0x03, 0xE8, 0xFF, 0xFF, 0xFC, 0x18}), "t1558000003E8FFFFFC18\r"},
		{armbus.MustFrame(0x471, []byte{0xFF, 0x02}), "t4712FF02\r"},
		{armbus.Frame{ID: 0x1ABCDEF0, Extended: true, Len: 1, Data: [8]byte{0xAA}}, "T1ABCDEF01AA\r"},
		{armbus.Frame{ID: 0x2A1, RTR: true, Len: 8}, "r2A18\r"},
		{armbus.Frame{ID: 0x10, Extended: true, RTR: true}, "R000000100\r"},
	}
	for _, tc := range cases {
		line, err := appendFrame(nil, tc.frame)
		require.NoError(t, err)
		assert.Equal(t, tc.line, string(line))

		got, err := parseFrame(line[:len(line)-1])
		require.NoError(t, err)
		assert.Equal(t, tc.frame, got)
	}

	_, err := appendFrame(nil, armbus.Frame{ID: 0x800})
	assert.Error(t, err)
}

func TestParseFrame(t *testing.T) {
	f, err := parseFrame([]byte("t2A5200ff1A2B"))
	require.NoError(t, err, "lowercase hex and adapter timestamp")
	assert.Equal(t, uint32(0x2A5), f.ID)
	assert.Equal(t, []byte{0x00, 0xFF}, f.Payload())

	for _, bad := range []string{"", "x123", "t12", "t1239", "t1232AB", "t12G1AA", "t8001AA", "t1231AA12"} {
		_, err := parseFrame([]byte(bad))
		assert.Error(t, err, "%q", bad)
	}
}

func TestBitrateCommand(t *testing.T) {
	cmd, err := bitrateCommand(1_000_000)
	require.NoError(t, err)
	assert.Equal(t, "S8\r", cmd)
	cmd, err = bitrateCommand(500_000)
	require.NoError(t, err)
	assert.Equal(t, "S6\r", cmd)
	_, err = bitrateCommand(333_333)
	assert.Error(t, err)
}

func TestTransport_SetupSendReceive(t *testing.T) {
	port := newFakePort()
	tr, err := New(port, Options{})
	require.NoError(t, err)
	assert.Equal(t, "C\rS8\rO\r", port.output())

	require.NoError(t, tr.Send(armbus.MustFrame(0x150, []byte{1})))
	assert.Equal(t, "C\rS8\rO\rt150101\r", port.output())

	// Split delivery with an ack in between.
	port.in <- []byte("z\rt2A")
	port.in <- []byte("1200FF\r")
	f, err := tr.Receive(time.Second)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x2A1), f.ID)
	assert.Equal(t, []byte{0x00, 0xFF}, f.Payload())
	assert.NotZero(t, f.Timestamp)

	port.in <- []byte("\a")
	_, err = tr.Receive(time.Second)
	assert.ErrorIs(t, err, ErrNack)
	assert.Equal(t, armbus.KindTransient, armbus.Classify(err))

	port.in <- []byte("tZZZ0\r")
	_, err = tr.Receive(time.Second)
	assert.Equal(t, armbus.KindTransient, armbus.Classify(err))

	_, err = tr.Receive(10 * time.Millisecond)
	assert.True(t, armbus.IsTimeout(err))

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close())
	assert.True(t, armbus.IsFatal(tr.Send(armbus.MustFrame(0x150, nil))))
	_, err = tr.Receive(time.Millisecond)
	assert.True(t, armbus.IsFatal(err))
}

func TestTransport_DeviceGoneIsFatal(t *testing.T) {
	port := newFakePort()
	tr, err := New(port, Options{Bitrate: 500_000})
	require.NoError(t, err)
	assert.Contains(t, port.output(), "S6\r")

	_ = port.Close()
	_, err = tr.Receive(time.Second)
	assert.True(t, armbus.IsFatal(err))
	assert.True(t, armbus.IsFatal(tr.Send(armbus.MustFrame(0x150, nil))))
}

func TestNew_RejectsUnknownBitrate(t *testing.T) {
	_, err := New(newFakePort(), Options{Bitrate: 42})
	assert.Error(t, err)
}

//go:build linux

package armbus

import (
	"encoding/binary"
	"errors"
	"fmt"
	"net"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// Error frame classes carried in the can_id of a CAN_ERR_FLAG frame
// (linux/can/error.h).
const (
	canErrCtrl       = 0x00000004
	canErrBusOff     = 0x00000040
	canErrCtrlRxOver = 0x01
	canErrCtrlTxOver = 0x02
)

var (
	// ErrInterfaceDown is returned by DialSocketCAN when RequireUp is set and
	// the interface does not have IFF_UP.
	ErrInterfaceDown = errors.New("armbus: interface is down")
	// ErrBufferOverflow reports a controller RX/TX buffer overflow.
	ErrBufferOverflow = errors.New("armbus: controller buffer overflow")
	errShortIO        = errors.New("armbus: short read/write")
)

// BusError is the payload of a non-fatal CAN error frame.
type BusError struct {
	Class uint32
	Data  [8]byte
}

func (e *BusError) Error() string {
	return fmt.Sprintf("armbus: bus error class 0x%08X", e.Class)
}

// SocketCANOptions tunes a SocketCAN transport. The zero value is usable.
type SocketCANOptions struct {
	// SendTimeout bounds a blocking write when the kernel TX queue is full.
	// Zero selects 10ms.
	SendTimeout time.Duration
	// ErrorFrames subscribes to controller error frames so bus-off and
	// overflows surface as transport errors.
	ErrorFrames bool
	// RequireUp fails the dial when the interface is not up.
	RequireUp bool
}

// socketCAN implements Transport over Linux SocketCAN. Receive and Send each
// own a private buffer, so one receiver and one sender may run concurrently.
type socketCAN struct {
	fd        int
	closed    atomic.Bool
	rxTimeout time.Duration

	rbuf [FrameSize]byte
	oob  [64]byte
	wbuf [FrameSize]byte
}

// DialSocketCAN opens a raw CAN socket bound to the given interface name
// (e.g., "can0") with kernel receive timestamps enabled.
func DialSocketCAN(iface string, opts SocketCANOptions) (Transport, error) {
	netIf, err := net.InterfaceByName(iface)
	if err != nil {
		return nil, err
	}
	if opts.RequireUp {
		up, err := IsInterfaceUp(iface)
		if err != nil {
			return nil, err
		}
		if !up {
			return nil, fmt.Errorf("%w: %s", ErrInterfaceDown, iface)
		}
	}

	fd, err := unix.Socket(unix.AF_CAN, unix.SOCK_RAW|unix.SOCK_CLOEXEC, unix.CAN_RAW)
	if err != nil {
		return nil, fmt.Errorf("armbus: socket: %w", err)
	}
	fail := func(step string, err error) (Transport, error) {
		unix.Close(fd)
		return nil, fmt.Errorf("armbus: %s: %w", step, err)
	}
	if err := unix.Bind(fd, &unix.SockaddrCAN{Ifindex: netIf.Index}); err != nil {
		return fail("bind", err)
	}
	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_TIMESTAMP, 1); err != nil {
		return fail("SO_TIMESTAMP", err)
	}
	if opts.ErrorFrames {
		if err := unix.SetsockoptInt(fd, unix.SOL_CAN_RAW, unix.CAN_RAW_ERR_FILTER, unix.CAN_ERR_MASK); err != nil {
			return fail("CAN_RAW_ERR_FILTER", err)
		}
	}
	sendTimeout := opts.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = 10 * time.Millisecond
	}
	tv := unix.NsecToTimeval(sendTimeout.Nanoseconds())
	if err := unix.SetsockoptTimeval(fd, unix.SOL_SOCKET, unix.SO_SNDTIMEO, &tv); err != nil {
		return fail("SO_SNDTIMEO", err)
	}
	return &socketCAN{fd: fd}, nil
}

func (s *socketCAN) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return unix.Close(s.fd)
}

// Send writes one frame using the Linux can_frame binary layout.
func (s *socketCAN) Send(frame Frame) error {
	if s.closed.Load() {
		return Fatal("send", ErrClosed)
	}
	if err := frame.encodeTo(s.wbuf[:]); err != nil {
		return Transient("send", err)
	}
	n, err := unix.Write(s.fd, s.wbuf[:])
	if err != nil {
		return classifyErrno("send", err)
	}
	if n != FrameSize {
		return Transient("send", errShortIO)
	}
	return nil
}

// Receive reads one frame, waiting at most timeout. The receive bound is
// applied through SO_RCVTIMEO and only re-armed when the timeout changes.
func (s *socketCAN) Receive(timeout time.Duration) (Frame, error) {
	if s.closed.Load() {
		return Frame{}, Fatal("receive", ErrClosed)
	}
	flags := 0
	if timeout <= 0 {
		flags = unix.MSG_DONTWAIT
	} else if timeout != s.rxTimeout {
		tv := rcvTimeval(timeout)
		if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
			return Frame{}, classifyErrno("receive", err)
		}
		s.rxTimeout = timeout
	}
	n, oobn, _, _, err := unix.Recvmsg(s.fd, s.rbuf[:], s.oob[:], flags)
	if err != nil {
		return Frame{}, classifyErrno("receive", err)
	}
	if n != FrameSize {
		return Frame{}, Transient("receive", errShortIO)
	}
	if id := binary.LittleEndian.Uint32(s.rbuf[0:4]); id&canErrFlag != 0 {
		return Frame{}, errorFrame(id, s.rbuf[8:16])
	}
	var f Frame
	if err := f.UnmarshalBinary(s.rbuf[:]); err != nil {
		return Frame{}, Transient("receive", err)
	}
	f.Timestamp = captureTime(s.oob[:oobn])
	return f, nil
}

// rcvTimeval converts a receive bound for SO_RCVTIMEO. A zero timeval
// disables the timeout, so sub-microsecond bounds round up.
func rcvTimeval(timeout time.Duration) unix.Timeval {
	return unix.NsecToTimeval(max(timeout, time.Microsecond).Nanoseconds())
}

func errorFrame(id uint32, data []byte) error {
	class := id & canEffMask
	switch {
	case class&canErrBusOff != 0:
		return Fatal("receive", ErrBusOff)
	case class&canErrCtrl != 0 && data[1]&(canErrCtrlRxOver|canErrCtrlTxOver) != 0:
		return Fatal("receive", ErrBufferOverflow)
	}
	be := &BusError{Class: class}
	copy(be.Data[:], data)
	return Transient("receive", be)
}

// captureTime extracts the SCM_TIMESTAMP control message, falling back to the
// current time.
func captureTime(oob []byte) uint64 {
	msgs, err := unix.ParseSocketControlMessage(oob)
	if err == nil {
		for _, m := range msgs {
			if m.Header.Level != unix.SOL_SOCKET || m.Header.Type != unix.SCM_TIMESTAMP {
				continue
			}
			if len(m.Data) < int(unsafe.Sizeof(unix.Timeval{})) {
				continue
			}
			tv := (*unix.Timeval)(unsafe.Pointer(&m.Data[0]))
			return uint64(tv.Sec)*1_000_000 + uint64(tv.Usec)
		}
	}
	return uint64(time.Now().UnixMicro())
}

func classifyErrno(op string, err error) error {
	switch {
	case errors.Is(err, unix.EAGAIN):
		if op == "receive" {
			return Timeout(op, ErrTimeout)
		}
		return Transient(op, fmt.Errorf("%w: %v", ErrTimeout, err))
	case errors.Is(err, unix.EINTR), errors.Is(err, unix.ENOBUFS):
		return Transient(op, err)
	case errors.Is(err, unix.ENETDOWN), errors.Is(err, unix.ENODEV),
		errors.Is(err, unix.ENXIO), errors.Is(err, unix.EBADF):
		return Fatal(op, err)
	default:
		return Transient(op, err)
	}
}

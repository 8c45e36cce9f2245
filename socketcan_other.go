//go:build !linux

package armbus

import (
	"errors"
	"time"
)

// ErrUnsupported is returned by SocketCAN helpers on non-Linux platforms.
var ErrUnsupported = errors.New("armbus: SocketCAN is only available on linux")

// SocketCANOptions tunes a SocketCAN transport. See the linux build.
type SocketCANOptions struct {
	SendTimeout time.Duration
	ErrorFrames bool
	RequireUp   bool
}

// LinuxCANInterfaceOptions mirrors the linux build so callers compile everywhere.
type LinuxCANInterfaceOptions struct {
	Bitrate    *uint32
	RestartMs  *uint32
	TxQueueLen *int
}

// DialSocketCAN always fails on non-Linux platforms.
func DialSocketCAN(iface string, opts SocketCANOptions) (Transport, error) {
	return nil, ErrUnsupported
}

// ConfigureLinuxCANInterface always fails on non-Linux platforms.
func ConfigureLinuxCANInterface(name string, opts LinuxCANInterfaceOptions) error {
	return ErrUnsupported
}

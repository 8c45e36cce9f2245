//go:build linux

package armbus

import (
	"errors"
	"fmt"
	"os/exec"
	"strconv"

	"golang.org/x/sys/unix"
)

// Linux network interface helpers. Flag changes go through SIOCGIFFLAGS /
// SIOCSIFFLAGS on a throwaway datagram socket.
//
// Bringing interfaces up/down requires CAP_NET_ADMIN. Without it the calls
// return EPERM; RequireRootOrCapNetAdmin turns that into a clearer message.

const ifNameSize = unix.IFNAMSIZ

func withIfreq(name string, fn func(fd int, ifr *unix.Ifreq) error) error {
	if len(name) == 0 || len(name) >= ifNameSize {
		return fmt.Errorf("armbus: invalid interface name %q", name)
	}
	ifr, err := unix.NewIfreq(name)
	if err != nil {
		return err
	}
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_DGRAM|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return err
	}
	defer unix.Close(fd)
	return fn(fd, ifr)
}

func interfaceFlags(name string) (uint16, error) {
	var flags uint16
	err := withIfreq(name, func(fd int, ifr *unix.Ifreq) error {
		if err := unix.IoctlIfreq(fd, unix.SIOCGIFFLAGS, ifr); err != nil {
			return err
		}
		flags = ifr.Uint16()
		return nil
	})
	return flags, err
}

func setInterfaceFlags(name string, flags uint16) error {
	return withIfreq(name, func(fd int, ifr *unix.Ifreq) error {
		ifr.SetUint16(flags)
		return unix.IoctlIfreq(fd, unix.SIOCSIFFLAGS, ifr)
	})
}

// IsInterfaceUp returns true if the Linux network interface has IFF_UP set.
func IsInterfaceUp(name string) (bool, error) {
	flags, err := interfaceFlags(name)
	if err != nil {
		return false, err
	}
	return flags&unix.IFF_UP != 0, nil
}

// SetInterfaceUp sets IFF_UP on the given interface. Requires CAP_NET_ADMIN.
func SetInterfaceUp(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return err
	}
	if flags&unix.IFF_UP != 0 {
		return nil
	}
	return RequireRootOrCapNetAdmin(setInterfaceFlags(name, flags|unix.IFF_UP))
}

// SetInterfaceDown clears IFF_UP on the given interface. Requires CAP_NET_ADMIN.
func SetInterfaceDown(name string) error {
	flags, err := interfaceFlags(name)
	if err != nil {
		return err
	}
	if flags&unix.IFF_UP == 0 {
		return nil
	}
	return RequireRootOrCapNetAdmin(setInterfaceFlags(name, flags&^unix.IFF_UP))
}

// RequireRootOrCapNetAdmin maps EPERM to an error advising to grant
// CAP_NET_ADMIN to the binary. Other errors pass through unchanged.
func RequireRootOrCapNetAdmin(err error) error {
	if errors.Is(err, unix.EPERM) {
		return fmt.Errorf("operation requires CAP_NET_ADMIN (or root): %w", err)
	}
	return err
}

// LinuxCANInterfaceOptions controls common CAN interface parameters through
// the system `ip` tool. Nil fields are left unchanged.
//
// Changing bitrate/restart-ms requires the interface to be DOWN;
// ConfigureLinuxCANInterface takes it down and back up around those changes.
type LinuxCANInterfaceOptions struct {
	// Bitrate is the arbitration bit-rate in bits per second (the arm uses 1000000).
	Bitrate *uint32
	// RestartMs is the automatic bus-off recovery delay. 0 disables auto-restart.
	RestartMs *uint32
	// TxQueueLen is the transmit queue length in frames.
	TxQueueLen *int
}

// ConfigureLinuxCANInterface applies opts to a Linux CAN network interface by
// invoking iproute2 and leaves the interface up. Requires CAP_NET_ADMIN.
func ConfigureLinuxCANInterface(name string, opts LinuxCANInterfaceOptions) error {
	if len(name) == 0 || len(name) >= ifNameSize {
		return fmt.Errorf("armbus: invalid interface name %q", name)
	}
	if opts.TxQueueLen != nil {
		if err := ipLink(name, "txqueuelen", strconv.Itoa(*opts.TxQueueLen)); err != nil {
			return err
		}
	}
	if opts.Bitrate != nil || opts.RestartMs != nil {
		if err := SetInterfaceDown(name); err != nil {
			return err
		}
		args := []string{"type", "can"}
		if opts.Bitrate != nil {
			args = append(args, "bitrate", strconv.FormatUint(uint64(*opts.Bitrate), 10))
		}
		if opts.RestartMs != nil {
			args = append(args, "restart-ms", strconv.FormatUint(uint64(*opts.RestartMs), 10))
		}
		if err := ipLink(name, args...); err != nil {
			return err
		}
	}
	return SetInterfaceUp(name)
}

func ipLink(name string, args ...string) error {
	full := append([]string{"link", "set", "dev", name}, args...)
	out, err := exec.Command("ip", full...).CombinedOutput()
	if err != nil {
		return RequireRootOrCapNetAdmin(fmt.Errorf("ip %v failed: %w; output: %s", full, err, string(out)))
	}
	return nil
}

package driver

import (
	"fmt"
	"log/slog"

	"github.com/notnil/armbus"
	"github.com/notnil/armbus/slcan"
)

// OpenTransport opens the backend selected by cfg.Transport. With
// ConfigureInterface set, a SocketCAN interface is first reconfigured to
// cfg.Bitrate and brought up, which needs CAP_NET_ADMIN. With LogFrames set,
// the transport is wrapped to log every frame at debug level.
//
// The loopback backend is a single endpoint on a private bus: sends go
// nowhere and receives always time out. It is meant for dry runs.
func OpenTransport(cfg Config, logger *slog.Logger) (armbus.Transport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var t armbus.Transport
	switch cfg.Transport {
	case TransportSocketCAN:
		if cfg.ConfigureInterface {
			bitrate := cfg.Bitrate
			err := armbus.ConfigureLinuxCANInterface(cfg.Interface, armbus.LinuxCANInterfaceOptions{Bitrate: &bitrate})
			if err != nil {
				return nil, fmt.Errorf("driver: configure %s: %w", cfg.Interface, err)
			}
		}
		sc, err := armbus.DialSocketCAN(cfg.Interface, armbus.SocketCANOptions{
			ErrorFrames: cfg.ErrorFrames,
			RequireUp:   true,
		})
		if err != nil {
			return nil, fmt.Errorf("driver: open %s: %w", cfg.Interface, err)
		}
		t = sc
	case TransportSLCAN:
		sl, err := slcan.Open(cfg.SerialPort, slcan.Options{Baud: cfg.SerialBaud, Bitrate: cfg.Bitrate})
		if err != nil {
			return nil, err
		}
		t = sl
	case TransportLoopback:
		t = armbus.NewLoopbackBus().Open()
	default:
		return nil, fmt.Errorf("driver: unknown transport %q", cfg.Transport)
	}

	if cfg.LogFrames {
		t = armbus.NewLoggedTransport(t, logger.With("component", "armbus.transport"), slog.LevelDebug, armbus.LogAll)
	}
	return t, nil
}

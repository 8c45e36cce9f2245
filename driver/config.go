package driver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// TransportKind selects the CAN backend opened by OpenTransport.
type TransportKind string

const (
	TransportSocketCAN TransportKind = "socketcan"
	TransportSLCAN     TransportKind = "slcan"
	TransportLoopback  TransportKind = "loopback"
)

// Config tunes the driver. The zero value is not usable; start from
// DefaultConfig.
type Config struct {
	Transport          TransportKind `yaml:"transport"`
	Interface          string        `yaml:"interface"`           // SocketCAN interface name
	SerialPort         string        `yaml:"serial_port"`         // SLCAN device path
	SerialBaud         int           `yaml:"serial_baud"`         // SLCAN serial baud rate
	Bitrate            uint32        `yaml:"bitrate"`             // CAN bitrate in bit/s
	ConfigureInterface bool          `yaml:"configure_interface"` // set the SocketCAN bitrate and bring it up
	ErrorFrames        bool          `yaml:"error_frames"`        // surface controller error frames
	LogFrames          bool          `yaml:"log_frames"`          // debug-log every frame

	RxTimeout        time.Duration `yaml:"rx_timeout"`         // bounded receive wait; also bounds shutdown latency
	IdleSleep        time.Duration `yaml:"idle_sleep"`         // TX back-off when both sources are empty
	BurstLimit       int           `yaml:"burst_limit"`        // consecutive mailbox deliveries before a queue turn
	MaxPackageFrames int           `yaml:"max_package_frames"` // largest realtime command
	QueueCapacity    int           `yaml:"queue_capacity"`     // reliable queue depth

	LockOSThread bool `yaml:"lock_os_thread"` // pin each pipeline to its own OS thread
	Nice         int  `yaml:"nice"`           // pipeline thread niceness with lock_os_thread, 0 leaves it alone
}

// DefaultConfig returns the configuration used for a Piper arm on can0.
func DefaultConfig() Config {
	return Config{
		Transport:        TransportSocketCAN,
		Interface:        "can0",
		SerialBaud:       2_000_000,
		Bitrate:          1_000_000,
		RxTimeout:        2 * time.Millisecond,
		IdleSleep:        50 * time.Microsecond,
		BurstLimit:       100,
		MaxPackageFrames: 8,
		QueueCapacity:    64,
		LockOSThread:     true,
	}
}

// ParseConfig decodes YAML on top of DefaultConfig and validates the result.
// Unknown keys are rejected.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("driver: parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadConfig reads a YAML config file.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("driver: read config: %w", err)
	}
	return ParseConfig(data)
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch c.Transport {
	case TransportSocketCAN:
		if c.Interface == "" {
			return errors.New("driver: config: socketcan transport needs an interface")
		}
	case TransportSLCAN:
		if c.SerialPort == "" {
			return errors.New("driver: config: slcan transport needs a serial_port")
		}
	case TransportLoopback:
	default:
		return fmt.Errorf("driver: config: unknown transport %q", c.Transport)
	}
	switch {
	case c.RxTimeout < time.Microsecond:
		// Socket receive timeouts have microsecond resolution; zero means wait forever.
		return fmt.Errorf("driver: config: rx_timeout must be at least 1µs, got %s", c.RxTimeout)
	case c.IdleSleep <= 0:
		return fmt.Errorf("driver: config: idle_sleep must be positive, got %s", c.IdleSleep)
	case c.BurstLimit < 1:
		return fmt.Errorf("driver: config: burst_limit must be at least 1, got %d", c.BurstLimit)
	case c.MaxPackageFrames < 1:
		return fmt.Errorf("driver: config: max_package_frames must be at least 1, got %d", c.MaxPackageFrames)
	case c.QueueCapacity < 1:
		return fmt.Errorf("driver: config: queue_capacity must be at least 1, got %d", c.QueueCapacity)
	case c.Nice < -20 || c.Nice > 19:
		return fmt.Errorf("driver: config: nice must be in [-20,19], got %d", c.Nice)
	}
	return nil
}

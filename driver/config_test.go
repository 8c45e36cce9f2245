package driver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/notnil/armbus"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.BurstLimit)
	assert.Equal(t, 8, cfg.MaxPackageFrames)
	assert.Equal(t, 64, cfg.QueueCapacity)
	assert.Equal(t, 50*time.Microsecond, cfg.IdleSleep)
}

func TestParseConfig(t *testing.T) {
	cfg, err := ParseConfig([]byte(`
transport: slcan
serial_port: /dev/ttyACM0
bitrate: 500000
rx_timeout: 5ms
idle_sleep: 100us
burst_limit: 20
queue_capacity: 16
lock_os_thread: false
nice: -5
`))
	require.NoError(t, err)
	assert.Equal(t, TransportSLCAN, cfg.Transport)
	assert.Equal(t, "/dev/ttyACM0", cfg.SerialPort)
	assert.Equal(t, uint32(500_000), cfg.Bitrate)
	assert.Equal(t, 5*time.Millisecond, cfg.RxTimeout)
	assert.Equal(t, 100*time.Microsecond, cfg.IdleSleep)
	assert.Equal(t, 20, cfg.BurstLimit)
	assert.Equal(t, 16, cfg.QueueCapacity)
	assert.False(t, cfg.LockOSThread)
	assert.Equal(t, -5, cfg.Nice)
	assert.Equal(t, 8, cfg.MaxPackageFrames, "unset keys keep defaults")

	empty, err := ParseConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), empty)

	_, err = ParseConfig([]byte("burst_limt: 3\n"))
	assert.Error(t, err, "unknown keys are rejected")
}

func TestConfigValidate(t *testing.T) {
	cases := map[string]func(*Config){
		"unknown transport": func(c *Config) { c.Transport = "pcan" },
		"no interface":      func(c *Config) { c.Interface = "" },
		"no serial port":    func(c *Config) { c.Transport = TransportSLCAN },
		"zero rx timeout":   func(c *Config) { c.RxTimeout = 0 },
		"sub-µs rx timeout": func(c *Config) { c.RxTimeout = 500 * time.Nanosecond },
		"zero idle sleep":   func(c *Config) { c.IdleSleep = 0 },
		"zero burst":        func(c *Config) { c.BurstLimit = 0 },
		"zero package":      func(c *Config) { c.MaxPackageFrames = 0 },
		"zero queue":        func(c *Config) { c.QueueCapacity = 0 },
		"nice out of range": func(c *Config) { c.Nice = 20 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			cfg := DefaultConfig()
			mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	cfg := DefaultConfig()
	cfg.RxTimeout = time.Microsecond
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "arm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("transport: loopback\nqueue_capacity: 4\n"), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, TransportLoopback, cfg.Transport)
	assert.Equal(t, 4, cfg.QueueCapacity)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestOpenTransport_Loopback(t *testing.T) {
	cfg := testConfig()
	cfg.LogFrames = true
	tr, err := OpenTransport(cfg, quietLogger())
	require.NoError(t, err)
	defer tr.Close()

	require.NoError(t, tr.Send(armbus.MustFrame(0x150, []byte{1})))
	_, err = tr.Receive(time.Millisecond)
	assert.True(t, armbus.IsTimeout(err))
}

func TestOpen_Loopback(t *testing.T) {
	d, err := Open(testConfig(), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.True(t, d.Running())
	require.NoError(t, d.SendRealtimeFrames(armbus.MustFrame(0x150, []byte{1})))
	require.Eventually(t, func() bool { return d.Metrics().TxFrames == 1 }, time.Second, time.Millisecond)
	require.NoError(t, d.Shutdown())
}

package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayers/internal/config"
)

func TestParseDefaults(t *testing.T) {
	opts, err := Parse([]string{"keylayers"})
	require.NoError(t, err)
	assert.Equal(t, Options{}, opts)
}

func TestParseValueForms(t *testing.T) {
	opts, err := Parse([]string{
		"keylayers",
		"--device", "/dev/input/event3",
		"--config=/etc/keylayers.toml",
		"--processor", "stats",
		"--log-level=debug",
		"--log-format", "json",
		"--no-grab",
		"--wait-device",
		"--daemon",
	})
	require.NoError(t, err)
	assert.Equal(t, "/dev/input/event3", opts.DevicePath)
	assert.Equal(t, "/etc/keylayers.toml", opts.ConfigPath)
	assert.Equal(t, "stats", opts.Processor)
	assert.Equal(t, "debug", opts.LogLevel)
	assert.Equal(t, "json", opts.LogFormat)
	assert.True(t, opts.NoGrab)
	assert.True(t, opts.WaitDevice)
	assert.True(t, opts.Daemonize)
}

func TestParseModes(t *testing.T) {
	opts, err := Parse([]string{"keylayers", "--replay", "hold.yaml", "--list-devices", "-h"})
	require.NoError(t, err)
	assert.Equal(t, "hold.yaml", opts.ReplayPath)
	assert.True(t, opts.ListDevices)
	assert.True(t, opts.ShowHelp)

	opts, err = Parse([]string{"keylayers", "--daemon", "--no-daemon", "--simulate"})
	require.NoError(t, err)
	assert.False(t, opts.Daemonize)
	assert.True(t, opts.Simulate)
}

func TestParseErrors(t *testing.T) {
	cases := [][]string{
		{"keylayers", "--device"},
		{"keylayers", "--bogus"},
		{"keylayers", "--devices=/dev/input/event0"},
		{"keylayers", "--simulate", "--replay", "a.yaml"},
	}
	for _, args := range cases {
		_, err := Parse(args)
		assert.Error(t, err, "%v", args)
	}
}

func TestApplyOverridesConfig(t *testing.T) {
	base := config.Default()
	base.Device.Wait = false

	unchanged := Options{}.Apply(base)
	assert.Equal(t, base, unchanged)

	cfg := Options{
		DevicePath: "/dev/input/event9",
		NoGrab:     true,
		WaitDevice: true,
		Processor:  "STATS",
		LogLevel:   "warn",
		LogFormat:  "json",
	}.Apply(base)
	assert.Equal(t, "/dev/input/event9", cfg.Device.Path)
	assert.False(t, cfg.Device.Grab)
	assert.True(t, cfg.Device.Wait)
	assert.Equal(t, config.ProcessorStats, cfg.Processor.Name)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestUsageMentionsEveryOption(t *testing.T) {
	usage := Usage()
	for _, flag := range []string{"--device", "--config", "--processor", "--log-level", "--log-format",
		"--no-grab", "--wait-device", "--list-devices", "--replay", "--simulate", "--daemon", "--no-daemon", "--help"} {
		assert.Contains(t, usage, flag)
	}
}

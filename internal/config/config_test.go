package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o600))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.True(t, cfg.Device.Grab)
	assert.False(t, cfg.Device.Wait)
	assert.Empty(t, cfg.Device.Path)
	assert.Equal(t, ProcessorLayer, cfg.Processor.Name)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestLoadEmptyPathYieldsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadINI(t *testing.T) {
	path := writeFile(t, "keylayers.ini", `
[device]
path = /dev/input/event4
grab = false
wait = true

[processor]
name = stats

[logging]
level = debug
format = json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/input/event4", cfg.Device.Path)
	assert.False(t, cfg.Device.Grab)
	assert.True(t, cfg.Device.Wait)
	assert.Equal(t, Default().Device.VirtualName, cfg.Device.VirtualName)
	assert.Equal(t, ProcessorStats, cfg.Processor.Name)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadTOML(t *testing.T) {
	path := writeFile(t, "keylayers.toml", `
[device]
path = "/dev/input/by-id/usb-kbd"
virtual_name = "layered"

[logging]
level = "warn"
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/dev/input/by-id/usb-kbd", cfg.Device.Path)
	assert.Equal(t, "layered", cfg.Device.VirtualName)
	assert.True(t, cfg.Device.Grab, "unset keys keep defaults")
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "keylayers.yaml", `
device:
  wait: true
processor:
  name: layer
logging:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.True(t, cfg.Device.Wait)
	assert.Equal(t, ProcessorLayer, cfg.Processor.Name)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"processor.ini": "[processor]\nname = chord\n",
		"level.ini":     "[logging]\nlevel = loud\n",
		"format.yml":    "logging:\n  format: xml\n",
	}
	for name, contents := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeFile(t, name, contents))
			var cfgErr ConfigError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestLoadReportsSyntaxErrors(t *testing.T) {
	_, err := Load(writeFile(t, "broken.toml", "[device\npath = 1"))
	assert.Error(t, err)

	_, err = Load(writeFile(t, "broken.yaml", "device: [unclosed"))
	assert.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.ini"))
	var cfgErr ConfigError
	assert.ErrorAs(t, err, &cfgErr)
}

func TestResolve(t *testing.T) {
	assert.Equal(t, "custom.toml", Resolve("custom.toml"))

	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	assert.Empty(t, Resolve(""))
	require.NoError(t, os.WriteFile(DefaultPath, nil, 0o600))
	assert.Equal(t, DefaultPath, Resolve(""))
}

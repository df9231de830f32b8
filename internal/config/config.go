// Package config loads keylayers settings from INI, TOML or YAML files.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	ini "github.com/go-ini/ini"
	"gopkg.in/yaml.v3"

	"keylayers/internal/emitter"
)

// DefaultPath is read when no --config is given and the file exists.
const DefaultPath = "keylayers.ini"

const (
	ProcessorLayer = "layer"
	ProcessorStats = "stats"
)

type Config struct {
	Device    DeviceConfig    `toml:"device" yaml:"device"`
	Processor ProcessorConfig `toml:"processor" yaml:"processor"`
	Logging   LoggingConfig   `toml:"logging" yaml:"logging"`
}

type DeviceConfig struct {
	// Path is empty when the keyboard should be auto-detected.
	Path        string `toml:"path" yaml:"path"`
	Grab        bool   `toml:"grab" yaml:"grab"`
	Wait        bool   `toml:"wait" yaml:"wait"`
	VirtualName string `toml:"virtual_name" yaml:"virtual_name"`
}

type ProcessorConfig struct {
	Name string `toml:"name" yaml:"name"`
}

type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`
	Format string `toml:"format" yaml:"format"`
}

type ConfigError struct {
	msg string
}

func (e ConfigError) Error() string { return e.msg }

func Default() Config {
	return Config{
		Device: DeviceConfig{
			Grab:        true,
			VirtualName: emitter.DefaultName,
		},
		Processor: ProcessorConfig{Name: ProcessorLayer},
		Logging:   LoggingConfig{Level: "info", Format: "text"},
	}
}

// Resolve returns the file to load: the explicit path if given, otherwise
// DefaultPath when it exists, otherwise "".
func Resolve(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if info, err := os.Stat(DefaultPath); err == nil && !info.IsDir() {
		return DefaultPath
	}
	return ""
}

// Load reads path over the defaults. An empty path yields the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, ConfigError{msg: fmt.Sprintf("config file %s does not exist", path)}
		}
		return cfg, fmt.Errorf("config: %w", err)
	}
	if info.IsDir() {
		return cfg, ConfigError{msg: fmt.Sprintf("config: %s is a directory", path)}
	}

	clean := filepath.Clean(path)
	switch strings.ToLower(filepath.Ext(clean)) {
	case ".toml":
		err = loadTOML(clean, &cfg)
	case ".yaml", ".yml":
		err = loadYAML(clean, &cfg)
	default:
		err = loadINI(clean, &cfg)
	}
	if err != nil {
		return Default(), err
	}
	if err := cfg.Validate(); err != nil {
		return Default(), err
	}
	return cfg, nil
}

func loadINI(path string, cfg *Config) error {
	file, err := ini.Load(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	device := file.Section("device")
	cfg.Device.Path = device.Key("path").MustString(cfg.Device.Path)
	cfg.Device.Grab = device.Key("grab").MustBool(cfg.Device.Grab)
	cfg.Device.Wait = device.Key("wait").MustBool(cfg.Device.Wait)
	cfg.Device.VirtualName = device.Key("virtual_name").MustString(cfg.Device.VirtualName)

	cfg.Processor.Name = file.Section("processor").Key("name").MustString(cfg.Processor.Name)

	logging := file.Section("logging")
	cfg.Logging.Level = logging.Key("level").MustString(cfg.Logging.Level)
	cfg.Logging.Format = logging.Key("format").MustString(cfg.Logging.Format)
	return nil
}

func loadTOML(path string, cfg *Config) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return fmt.Errorf("config: parse TOML: %w", err)
	}
	return nil
}

func loadYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config: parse YAML: %w", err)
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Processor.Name {
	case ProcessorLayer, ProcessorStats:
	default:
		return ConfigError{msg: fmt.Sprintf("unknown processor '%s' (want layer or stats)", c.Processor.Name)}
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return ConfigError{msg: fmt.Sprintf("invalid log level '%s'", c.Logging.Level)}
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return ConfigError{msg: fmt.Sprintf("invalid log format '%s'", c.Logging.Format)}
	}
	if strings.TrimSpace(c.Device.VirtualName) == "" {
		return ConfigError{msg: "virtual keyboard name must not be empty"}
	}
	return nil
}

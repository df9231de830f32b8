package cli

import (
	"fmt"
	"strings"

	"keylayers/internal/config"
)

type Options struct {
	ShowHelp    bool
	ListDevices bool
	Simulate    bool
	ReplayPath  string
	ConfigPath  string
	DevicePath  string
	Processor   string
	LogLevel    string
	LogFormat   string
	NoGrab      bool
	WaitDevice  bool
	Daemonize   bool
}

func Parse(args []string) (Options, error) {
	opts := Options{}
	for i := 1; i < len(args); i++ {
		arg := args[i]
		var target *string
		switch {
		case arg == "--help" || arg == "-h":
			opts.ShowHelp = true
		case arg == "--list-devices":
			opts.ListDevices = true
		case arg == "--simulate":
			opts.Simulate = true
		case arg == "--no-grab":
			opts.NoGrab = true
		case arg == "--wait-device":
			opts.WaitDevice = true
		case arg == "--daemon":
			opts.Daemonize = true
		case arg == "--no-daemon" || arg == "--foreground":
			opts.Daemonize = false
		case isOption(arg, "--replay"):
			target = &opts.ReplayPath
		case isOption(arg, "--config"):
			target = &opts.ConfigPath
		case isOption(arg, "--device"):
			target = &opts.DevicePath
		case isOption(arg, "--processor"):
			target = &opts.Processor
		case isOption(arg, "--log-level"):
			target = &opts.LogLevel
		case isOption(arg, "--log-format"):
			target = &opts.LogFormat
		default:
			return Options{}, fmt.Errorf("unknown option: %s", arg)
		}
		if target == nil {
			continue
		}
		value, next, err := extractValue(arg, i, args)
		if err != nil {
			return Options{}, err
		}
		*target = value
		i = next
	}
	if opts.Simulate && opts.ReplayPath != "" {
		return Options{}, fmt.Errorf("--simulate and --replay cannot be combined")
	}
	return opts, nil
}

func isOption(arg, name string) bool {
	return arg == name || strings.HasPrefix(arg, name+"=")
}

func extractValue(current string, index int, args []string) (string, int, error) {
	if eq := strings.IndexRune(current, '='); eq >= 0 {
		return current[eq+1:], index, nil
	}
	if index+1 >= len(args) {
		return "", index, fmt.Errorf("option %s requires a value", current)
	}
	return args[index+1], index + 1, nil
}

// Apply layers the command-line overrides on top of cfg.
func (o Options) Apply(cfg config.Config) config.Config {
	if o.DevicePath != "" {
		cfg.Device.Path = o.DevicePath
	}
	if o.NoGrab {
		cfg.Device.Grab = false
	}
	if o.WaitDevice {
		cfg.Device.Wait = true
	}
	if o.Processor != "" {
		cfg.Processor.Name = strings.ToLower(o.Processor)
	}
	if o.LogLevel != "" {
		cfg.Logging.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Logging.Format = o.LogFormat
	}
	return cfg
}

func Usage() string {
	return `keylayers - tap-hold keyboard layer remapper
Usage: keylayers [--device /dev/input/eventX] [options]

Holding J turns S, D, F and E into Left, Down, Right and Up.
A quick tap of J still types j.

Options:
  --device PATH           Path to the evdev keyboard device (auto-detected if omitted)
  --config PATH           Config file, .ini, .toml or .yaml (default: ./keylayers.ini if present)
  --processor NAME        Event processor: layer (default) or stats
  --log-level LEVEL       debug, info, warn or error (default: info)
  --log-format FORMAT     text or json (default: text)
  --no-grab               Do not take exclusive access to the device
  --wait-device           Wait for the device to appear, and again after it is unplugged
  --list-devices          List detected keyboards and exit
  --replay FILE           Run a YAML key trace through the processor and print the result
  --simulate              Drive the processor from this terminal instead of a device
  --daemon                Run in the background
  --no-daemon             Stay in the foreground (default)
  -h, --help              Show this help message`
}

// Package app wires configuration, logging, the input device, the processor
// and the virtual keyboard into a running remapper.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"

	"keylayers/internal/cli"
	"keylayers/internal/config"
	"keylayers/internal/console"
	"keylayers/internal/device"
	"keylayers/internal/emitter"
	"keylayers/internal/engine"
	"keylayers/internal/layer"
	"keylayers/internal/logging"
	"keylayers/internal/stats"
	"keylayers/internal/stream"
	"keylayers/internal/trace"
)

type Runtime struct {
	opts     cli.Options
	stdout   io.Writer
	cfg      config.Config
	logger   *slog.Logger
	output   emitter.Output
	deviceFD int
	cleanups []func()
}

func NewRuntime(opts cli.Options, stdout io.Writer) *Runtime {
	if stdout == nil {
		stdout = os.Stdout
	}
	return &Runtime{opts: opts, stdout: stdout, deviceFD: -1}
}

// Run executes the mode selected on the command line. ctx cancellation stops
// the remapper cleanly; SIGINT, SIGTERM and SIGQUIT do the same.
func (rt *Runtime) Run(ctx context.Context) error {
	defer rt.cleanup()

	if err := rt.prepareConfig(); err != nil {
		return err
	}
	if err := rt.prepareLogger(); err != nil {
		return err
	}

	switch {
	case rt.opts.ListDevices:
		return rt.listDevices()
	case rt.opts.ReplayPath != "":
		return rt.replay()
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	if rt.opts.Simulate {
		return rt.simulate(ctx)
	}
	if err := rt.buildEmitter(); err != nil {
		return err
	}
	rt.registerCleanup(rt.releaseDevice)
	return rt.runEventLoop(ctx)
}

func (rt *Runtime) prepareConfig() error {
	cfg, err := config.Load(config.Resolve(rt.opts.ConfigPath))
	if err != nil {
		return err
	}
	cfg = rt.opts.Apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	rt.cfg = cfg
	return nil
}

func (rt *Runtime) prepareLogger() error {
	logger, err := logging.New(logging.Options{Level: rt.cfg.Logging.Level, Format: rt.cfg.Logging.Format})
	if err != nil {
		return err
	}
	rt.logger = logger
	slog.SetDefault(logger)
	return nil
}

// NewProcessor builds the named processor. Every processor is wrapped so a
// single instance can be shared between goroutines.
func NewProcessor(name string, logger *slog.Logger) (stream.Processor, error) {
	switch name {
	case config.ProcessorLayer:
		return stream.Synchronized(layer.New(logger)), nil
	case config.ProcessorStats:
		return stream.Synchronized(stats.New(logger)), nil
	default:
		return nil, fmt.Errorf("unknown processor %q", name)
	}
}

func (rt *Runtime) newProcessor() (stream.Processor, error) {
	return NewProcessor(rt.cfg.Processor.Name, rt.logger)
}

func (rt *Runtime) listDevices() error {
	devices, err := device.ListKeyboardDevices()
	if err != nil {
		return err
	}
	for _, dev := range devices {
		fmt.Fprintf(rt.stdout, "%s\t%s\n", dev.Path, dev.Name)
	}
	return nil
}

func (rt *Runtime) replay() error {
	tr, err := trace.Load(rt.opts.ReplayPath)
	if err != nil {
		return err
	}
	p, err := rt.newProcessor()
	if err != nil {
		return err
	}
	outcomes, err := trace.Replay(p, tr)
	if err != nil {
		return err
	}
	return trace.Format(rt.stdout, tr.Name, outcomes)
}

func (rt *Runtime) simulate(ctx context.Context) error {
	p, err := rt.newProcessor()
	if err != nil {
		return err
	}
	return console.New(p, rt.stdout).Run(ctx)
}

func (rt *Runtime) buildEmitter() error {
	out, err := emitter.Open(rt.cfg.Device.VirtualName)
	if err != nil {
		return err
	}
	rt.output = out
	rt.registerCleanup(func() { _ = out.Close() })
	return nil
}

// runEventLoop runs the engine until ctx is cancelled. With device.wait set
// an unplugged keyboard is waited for and the engine restarted with a fresh
// processor, so no half-decided layer state survives a reconnect.
func (rt *Runtime) runEventLoop(ctx context.Context) error {
	for {
		path, err := rt.resolveDevicePath(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		p, err := rt.newProcessor()
		if err != nil {
			return err
		}
		if err := rt.openDevice(path); err != nil {
			return err
		}

		eng := engine.NewEngine(rt.deviceFD, p, rt.output, engine.Options{
			Grab:   rt.cfg.Device.Grab,
			Logger: rt.logger,
		})
		rt.logger.Info("remapping keyboard", "device", path, "processor", rt.cfg.Processor.Name, "grab", rt.cfg.Device.Grab)
		err = eng.Run(ctx)
		rt.releaseDevice()

		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil && !deviceGone(err):
			return err
		case !rt.cfg.Device.Wait:
			if err != nil {
				rt.logger.Warn("keyboard disconnected", "device", path, "error", err)
			}
			return nil
		}
		rt.logger.Info("keyboard disconnected, waiting for it to return", "device", path)
	}
}

func (rt *Runtime) resolveDevicePath(ctx context.Context) (string, error) {
	path := rt.cfg.Device.Path
	if path == "" {
		detected, err := device.DetectKeyboardDevice()
		if err != nil {
			return "", err
		}
		rt.logger.Info("using detected keyboard", "device", detected.Path, "name", detected.Name)
		return detected.Path, nil
	}
	if rt.cfg.Device.Wait {
		if err := device.WaitForDevice(ctx, path); err != nil {
			return "", err
		}
	}
	return path, nil
}

func (rt *Runtime) openDevice(path string) error {
	fd, err := device.Open(path)
	if err != nil {
		return err
	}
	rt.deviceFD = fd
	return nil
}

func deviceGone(err error) bool {
	return errors.Is(err, unix.ENODEV) || errors.Is(err, unix.EBADF)
}

func (rt *Runtime) releaseDevice() {
	if rt.deviceFD >= 0 {
		unix.Close(rt.deviceFD)
		rt.deviceFD = -1
	}
}

func (rt *Runtime) registerCleanup(fn func()) {
	if fn == nil {
		return
	}
	rt.cleanups = append([]func(){fn}, rt.cleanups...)
}

func (rt *Runtime) cleanup() {
	for _, fn := range rt.cleanups {
		fn()
	}
	rt.cleanups = nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"syscall"

	"keylayers/internal/app"
	"keylayers/internal/cli"
	"keylayers/internal/device"
)

const daemonEnv = "KEYLAYERS_DAEMONIZED"

func main() {
	opts, err := cli.Parse(os.Args)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keylayers: %v\n", err)
		fmt.Fprintln(os.Stderr, "Run 'keylayers --help' for usage.")
		os.Exit(2)
	}

	if opts.ShowHelp {
		fmt.Println(cli.Usage())
		return
	}

	interactive := opts.ListDevices || opts.Simulate || opts.ReplayPath != ""
	spawned, err := daemonizeIfNeeded(opts.Daemonize && !interactive)
	if err != nil {
		fmt.Fprintf(os.Stderr, "keylayers: failed to daemonize: %v\n", err)
		os.Exit(1)
	}
	if spawned {
		return
	}

	if err := app.NewRuntime(opts, os.Stdout).Run(context.Background()); err != nil {
		var detectionErr device.DetectionError
		if errors.As(err, &detectionErr) {
			fmt.Fprintf(os.Stderr, "keylayers: %s\n", detectionErr.Message)
		} else {
			fmt.Fprintf(os.Stderr, "keylayers: %v\n", err)
		}
		os.Exit(1)
	}
}

func daemonizeIfNeeded(enabled bool) (bool, error) {
	if !enabled {
		return false, nil
	}
	if os.Getenv(daemonEnv) == "1" {
		return false, nil
	}

	exe, err := os.Executable()
	if err != nil {
		return false, err
	}

	devNull, err := os.OpenFile("/dev/null", os.O_RDWR, 0)
	if err != nil {
		return false, err
	}
	defer devNull.Close()

	attrs := &os.ProcAttr{
		Files: []*os.File{devNull, devNull, devNull},
		Env:   append(os.Environ(), daemonEnv+"=1"),
		Sys:   &syscall.SysProcAttr{Setsid: true},
	}

	proc, err := os.StartProcess(exe, os.Args, attrs)
	if err != nil {
		return false, err
	}
	if err := proc.Release(); err != nil {
		return false, err
	}
	return true, nil
}

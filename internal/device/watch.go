package device

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// pollFallback is used when the device's directory cannot be watched, for
// example /dev/input/by-id before the first keyboard appears.
const pollFallback = time.Second

// WaitForDevice blocks until path exists or ctx is cancelled.
func WaitForDevice(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return pollForDevice(ctx, path)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return pollForDevice(ctx, path)
	}
	// The node may have appeared before the watch was in place.
	if exists(path) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-watcher.Events:
			if !ok {
				return pollForDevice(ctx, path)
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Has(fsnotify.Create) && exists(path) {
				return nil
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return pollForDevice(ctx, path)
			}
			return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
		}
	}
}

func pollForDevice(ctx context.Context, path string) error {
	ticker := time.NewTicker(pollFallback)
	defer ticker.Stop()
	for {
		if exists(path) {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil || !errors.Is(err, os.ErrNotExist)
}

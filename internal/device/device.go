// Package device finds evdev keyboards and opens them for the engine.
package device

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"golang.org/x/sys/unix"

	"keylayers/internal/linux"
)

const inputDir = "/dev/input"

type DetectedDevice struct {
	Path string
	Name string
}

type DetectionError struct {
	Message string
}

func (e DetectionError) Error() string { return e.Message }

// Open opens an evdev node for non-blocking reads, as the engine expects.
func Open(path string) (int, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return -1, fmt.Errorf("open %s: %w", path, err)
	}
	return fd, nil
}

// Name reports the kernel's name for an open evdev node.
func Name(fd int) string {
	buf := make([]byte, 256)
	if err := linux.IoctlRead(fd, linux.EVIOCGNAME(len(buf)), buf); err != nil {
		return ""
	}
	return cString(buf)
}

func cString(buf []byte) string {
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i])
		}
	}
	return string(buf)
}

func bitsToBytes(bits int) int {
	return (bits + 7) / 8
}

func isKeyboardFD(fd int) bool {
	evBits := make([]byte, bitsToBytes(linux.EvMax+1))
	if err := linux.IoctlRead(fd, linux.EVIOCGBIT(0, len(evBits)), evBits); err != nil {
		return false
	}
	if !testBit(evBits, linux.EvKey) {
		return false
	}

	keyBits := make([]byte, bitsToBytes(linux.KeyMax+1))
	if err := linux.IoctlRead(fd, linux.EVIOCGBIT(linux.EvKey, len(keyBits)), keyBits); err != nil {
		return false
	}
	return hasLayerKeys(keyBits)
}

// hasLayerKeys requires the typing keys plus every key the layer reads.
func hasLayerKeys(keyBits []byte) bool {
	required := []int{
		linux.KeyA, linux.KeyZ, linux.KeySpace, linux.KeyEnter, linux.KeyLeftShift,
		linux.KeyJ, linux.KeyS, linux.KeyD, linux.KeyF, linux.KeyE,
	}
	for _, code := range required {
		if !testBit(keyBits, code) {
			return false
		}
	}
	return true
}

func testBit(bits []byte, bit int) bool {
	idx := bit / 8
	off := bit % 8
	if idx < 0 || idx >= len(bits) {
		return false
	}
	return (bits[idx] & (1 << uint(off))) != 0
}

func collectKeyboardSymlinks(dir string) []string {
	entries := make([]string, 0)
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		lower := strings.ToLower(d.Name())
		if strings.Contains(lower, "kbd") || strings.Contains(lower, "keyboard") {
			entries = append(entries, path)
		}
		return nil
	})
	sort.Strings(entries)
	return unique(entries)
}

func collectEventNodes(dir string) []string {
	entries := make([]string, 0)
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return entries
	}
	for _, entry := range dirEntries {
		if entry.IsDir() {
			continue
		}
		if name := entry.Name(); strings.HasPrefix(name, "event") {
			entries = append(entries, filepath.Join(dir, name))
		}
	}
	sort.Strings(entries)
	return unique(entries)
}

// unique drops adjacent duplicates from a sorted slice.
func unique(items []string) []string {
	if len(items) == 0 {
		return items
	}
	out := make([]string, 0, len(items))
	var last string
	for i, item := range items {
		if i == 0 || item != last {
			out = append(out, item)
			last = item
		}
	}
	return out
}

func gatherCandidates(root string) []string {
	var all []string
	all = append(all, collectKeyboardSymlinks(filepath.Join(root, "by-id"))...)
	all = append(all, collectKeyboardSymlinks(filepath.Join(root, "by-path"))...)
	all = append(all, collectEventNodes(root)...)
	sort.Strings(all)
	return unique(all)
}

func ListKeyboardDevices() ([]DetectedDevice, error) {
	candidates := gatherCandidates(inputDir)
	devices := make([]DetectedDevice, 0)
	permissionDenied := false
	var lastErr error

	for _, path := range candidates {
		fd, err := Open(path)
		if err != nil {
			if errors.Is(err, os.ErrPermission) {
				permissionDenied = true
			}
			lastErr = err
			continue
		}
		if isKeyboardFD(fd) {
			devices = append(devices, DetectedDevice{Path: path, Name: Name(fd)})
		}
		unix.Close(fd)
	}

	if len(devices) == 0 {
		switch {
		case permissionDenied:
			return nil, DetectionError{Message: "Permission denied while probing input devices. Try running as root or adjusting udev permissions."}
		case len(candidates) == 0:
			return nil, DetectionError{Message: "No evdev devices found under /dev/input."}
		case lastErr != nil:
			return nil, DetectionError{Message: fmt.Sprintf("No keyboard-like device found. Last error: %v", lastErr)}
		default:
			return nil, DetectionError{Message: "No keyboard-like device found."}
		}
	}

	sort.SliceStable(devices, func(i, j int) bool { return devices[i].Path < devices[j].Path })
	return devices, nil
}

func DetectKeyboardDevice() (DetectedDevice, error) {
	devices, err := ListKeyboardDevices()
	if err != nil {
		return DetectedDevice{}, err
	}
	return devices[0], nil
}

package device

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayers/internal/linux"
)

func setBits(bits []byte, codes ...int) {
	for _, code := range codes {
		bits[code/8] |= 1 << uint(code%8)
	}
}

func TestTestBit(t *testing.T) {
	bits := make([]byte, 2)
	setBits(bits, 3, 9)

	assert.True(t, testBit(bits, 3))
	assert.True(t, testBit(bits, 9))
	assert.False(t, testBit(bits, 4))
	assert.False(t, testBit(bits, 100))
	assert.False(t, testBit(bits, -1))
}

func TestHasLayerKeys(t *testing.T) {
	bits := make([]byte, bitsToBytes(linux.KeyMax+1))
	setBits(bits, linux.KeyA, linux.KeyZ, linux.KeySpace, linux.KeyEnter, linux.KeyLeftShift)
	assert.False(t, hasLayerKeys(bits), "layer keys missing")

	setBits(bits, linux.KeyJ, linux.KeyS, linux.KeyD, linux.KeyF, linux.KeyE)
	assert.True(t, hasLayerKeys(bits))
}

func TestUnique(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, unique([]string{"a", "a", "b", "c", "c"}))
	assert.Empty(t, unique(nil))
}

func TestCString(t *testing.T) {
	assert.Equal(t, "AT Keyboard", cString([]byte("AT Keyboard\x00junk")))
	assert.Equal(t, "raw", cString([]byte("raw")))
}

func TestGatherCandidates(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "by-id"), 0o755))
	for _, name := range []string{"event3", "event0", "mouse0", "by-id/usb-Acme-event-kbd", "by-id/usb-Acme-event-mouse"} {
		require.NoError(t, os.WriteFile(filepath.Join(root, name), nil, 0o600))
	}

	got := gatherCandidates(root)

	assert.Equal(t, []string{
		filepath.Join(root, "by-id", "usb-Acme-event-kbd"),
		filepath.Join(root, "event0"),
		filepath.Join(root, "event3"),
	}, got)
}

func TestWaitForDeviceReturnsWhenNodeAppears(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "event7")

	go func() {
		time.Sleep(50 * time.Millisecond)
		_ = os.WriteFile(path, nil, 0o600)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, WaitForDevice(ctx, path))
}

func TestWaitForDeviceExistingNode(t *testing.T) {
	path := filepath.Join(t.TempDir(), "event1")
	require.NoError(t, os.WriteFile(path, nil, 0o600))

	require.NoError(t, WaitForDevice(context.Background(), path))
}

func TestWaitForDeviceHonoursCancellation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "event9")
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, WaitForDevice(ctx, path), context.DeadlineExceeded)
}

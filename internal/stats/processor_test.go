package stats

import (
	"bufio"
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"keylayers/internal/linux"
	"keylayers/internal/stream"
)

type key struct{ code uint16 }

func (k *key) Keycode() uint16        { return k.code }
func (k *key) SetKeycode(code uint16) { k.code = code }

type nopSink struct{}

func (nopSink) Post(stream.KeyEvent) error                { return nil }
func (nopSink) Detach(ev stream.KeyEvent) stream.KeyEvent { return ev }

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &rec))
		out = append(out, rec)
	}
	return out
}

func TestStatsReportsIntervalsAndPasses(t *testing.T) {
	var buf bytes.Buffer
	p := New(slog.New(slog.NewJSONHandler(&buf, nil)))
	start := time.Unix(500, 0)

	send := func(offset time.Duration, code int, kind stream.Kind) {
		ev := &key{code: uint16(code)}
		d := p.Process(start.Add(offset), kind, ev, stream.NewHandle(nopSink{}, ev))
		assert.Equal(t, stream.Pass, d.Action)
		assert.Equal(t, uint16(code), ev.Keycode())
	}

	send(0, linux.KeyA, stream.KeyDown)
	send(80*time.Millisecond, linux.KeyA, stream.KeyUp)
	send(150*time.Millisecond, linux.KeyB, stream.KeyDown)

	records := decodeLines(t, &buf)
	require.Len(t, records, 3)

	assert.Equal(t, "key pressed", records[0]["msg"])
	assert.Equal(t, "a", records[0]["key"])
	assert.NotContains(t, records[0], "interval")

	assert.Equal(t, "key released", records[1]["msg"])
	assert.EqualValues(t, 80*time.Millisecond, records[1]["held"])

	assert.Equal(t, "b", records[2]["key"])
	assert.EqualValues(t, 150*time.Millisecond, records[2]["interval"])
	assert.Equal(t, "stats", records[2]["processor"])

	assert.Equal(t, uint64(2), p.presses)
}

func TestStatsIgnoresReleaseBeforeAnyPress(t *testing.T) {
	var buf bytes.Buffer
	p := New(slog.New(slog.NewJSONHandler(&buf, nil)))
	ev := &key{code: linux.KeyQ}
	p.Process(time.Unix(1, 0), stream.KeyUp, ev, stream.NewHandle(nopSink{}, ev))
	assert.Zero(t, buf.Len())
}

// Package stats provides a pass-through processor that reports typing rhythm:
// the gap between consecutive key presses and how long each press lasted.
package stats

import (
	"log/slog"
	"time"

	"keylayers/internal/linux"
	"keylayers/internal/stream"
)

type Processor struct {
	logger   *slog.Logger
	lastDown time.Time
	presses  uint64
}

var _ stream.Processor = (*Processor)(nil)

func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger.With("processor", "stats")}
}

func (p *Processor) Process(timestamp time.Time, kind stream.Kind, ev stream.KeyEvent, s stream.Stream) stream.Decision {
	key := linux.KeyName(ev.Keycode())
	switch kind {
	case stream.KeyDown:
		p.presses++
		if p.lastDown.IsZero() {
			p.logger.Info("key pressed", "key", key)
		} else {
			p.logger.Info("key pressed", "key", key, "interval", timestamp.Sub(p.lastDown))
		}
		p.lastDown = timestamp
	case stream.KeyUp:
		if !p.lastDown.IsZero() {
			p.logger.Info("key released", "key", key, "held", timestamp.Sub(p.lastDown))
		}
	}
	return s.PassCurrentEvent()
}

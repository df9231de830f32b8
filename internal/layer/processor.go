// Package layer implements a tap-hold keyboard layer: holding J turns
// S, D, F and E into the arrow keys while a quick tap of J still types j.
//
// The decision is made from event timestamps alone. While the outcome is
// unknown the trigger press, and any layer key presses that follow it, are
// stolen from the output and kept on a stack. They are replayed unchanged
// once the sequence turns out to be ordinary typing, or remapped once it
// turns out to be a layer hold.
package layer

import (
	"fmt"
	"log/slog"
	"time"

	"keylayers/internal/linux"
	"keylayers/internal/stream"
)

// TappingTerm separates a tap of the trigger key from a hold.
const TappingTerm = 200 * time.Millisecond

const trigger = uint16(linux.KeyJ)

var arrows = map[uint16]uint16{
	uint16(linux.KeyS): uint16(linux.KeyLeft),
	uint16(linux.KeyD): uint16(linux.KeyDown),
	uint16(linux.KeyF): uint16(linux.KeyRight),
	uint16(linux.KeyE): uint16(linux.KeyUp),
}

// Processor is not safe for concurrent use; wrap it with
// stream.Synchronized when more than one goroutine delivers events.
type Processor struct {
	logger *slog.Logger

	// pressedAt is meaningful only while pending is set.
	pressedAt time.Time
	pending   bool

	// stolen[0] is the trigger press whenever the stack is non-empty.
	stolen []stream.KeyEvent
}

var _ stream.Processor = (*Processor)(nil)

func New(logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{logger: logger.With("processor", "layer")}
}

func (p *Processor) Process(timestamp time.Time, kind stream.Kind, ev stream.KeyEvent, s stream.Stream) stream.Decision {
	code := ev.Keycode()
	if code == trigger {
		return p.handleTrigger(timestamp, kind, s)
	}
	if !p.pending {
		return s.PassCurrentEvent()
	}
	if _, ok := arrows[code]; !ok {
		return s.PassCurrentEvent()
	}
	if timestamp.Sub(p.pressedAt) < TappingTerm {
		return p.handleUndecided(kind, ev, s)
	}
	return p.handleHold(ev, s)
}

func (p *Processor) handleTrigger(timestamp time.Time, kind stream.Kind, s stream.Stream) stream.Decision {
	switch kind {
	case stream.KeyDown:
		if p.pending {
			p.logger.Warn("layer key pressed again while pending")
			return s.PassCurrentEvent()
		}
		p.pending = true
		p.pressedAt = timestamp
		return s.StealCurrentEvent(p.push)
	case stream.KeyUp:
		if !p.pending {
			// The layer was cancelled earlier in this press.
			p.replayAll(s)
			return s.PassCurrentEvent()
		}
		held := timestamp.Sub(p.pressedAt)
		p.pending = false
		if held < TappingTerm {
			p.logger.Debug("layer key tapped", "held", held, "replayed", len(p.stolen))
			p.replayAll(s)
			return s.PassCurrentEvent()
		}
		p.logger.Debug("layer key released after hold", "held", held)
		p.stolen = p.stolen[:0]
		return s.DropCurrentEvent()
	default:
		p.logger.Warn("unexpected event kind for layer key", "kind", kind)
		return s.PassCurrentEvent()
	}
}

// handleUndecided covers layer keys seen inside the tapping term, where a
// release that matches the most recent stolen press resolves to a hold.
func (p *Processor) handleUndecided(kind stream.Kind, ev stream.KeyEvent, s stream.Stream) stream.Decision {
	if kind == stream.KeyDown {
		return s.StealCurrentEvent(p.push)
	}

	code := ev.Keycode()
	if top := len(p.stolen) - 1; top > 0 && p.stolen[top].Keycode() == code {
		down := p.stolen[top]
		p.stolen = p.stolen[:top]
		arrow := arrowFor(code)
		down.SetKeycode(arrow)
		s.Post(down)
		ev.SetKeycode(arrow)
		return s.PassCurrentEvent()
	}

	// Release order does not match the presses we hold: give up on the
	// layer and let everything through as typed.
	p.logger.Debug("layer cancelled by out-of-order release", "key", linux.KeyName(code))
	p.pending = false
	p.replayAll(s)
	return s.PassCurrentEvent()
}

func (p *Processor) handleHold(ev stream.KeyEvent, s stream.Stream) stream.Decision {
	if len(p.stolen) > 0 {
		for _, down := range p.stolen[1:] {
			stream.UpdateKeycode(down, arrowFor)
			s.Post(down)
		}
		p.stolen = p.stolen[:0]
	}
	stream.UpdateKeycode(ev, arrowFor)
	return s.PassCurrentEvent()
}

func (p *Processor) push(ev stream.KeyEvent) {
	p.stolen = append(p.stolen, ev)
}

func (p *Processor) replayAll(s stream.Stream) {
	for _, ev := range p.stolen {
		s.Post(ev)
	}
	p.stolen = p.stolen[:0]
}

func arrowFor(code uint16) uint16 {
	arrow, ok := arrows[code]
	if !ok {
		panic(fmt.Sprintf("layer: keycode %d is not a layer key", code))
	}
	return arrow
}

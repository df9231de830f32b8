// Package engine connects a grabbed evdev keyboard to a stream.Processor and
// writes the processor's decisions to a virtual keyboard.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sys/unix"

	"keylayers/internal/emitter"
	"keylayers/internal/linux"
	"keylayers/internal/stream"
	"keylayers/internal/util"
)

// ErrForeignEvent is returned by the sink when a processor posts a KeyEvent
// that did not originate from this engine.
var ErrForeignEvent = errors.New("engine: cannot emit key event from another source")

type Options struct {
	// Grab takes exclusive access to the device so that only the processed
	// stream reaches the rest of the system.
	Grab   bool
	Logger *slog.Logger
}

type Engine struct {
	deviceFD  int
	processor stream.Processor
	emitter   emitter.Output
	logger    *slog.Logger
	grab      bool

	// held maps each physical key whose press reached the virtual keyboard
	// to the code that press was emitted as.
	held map[uint16]uint16
}

// keyEvent is the stream.KeyEvent view of one evdev record. physical keeps the
// device keycode while a processor rewrites raw.Code.
type keyEvent struct {
	raw      util.InputEvent
	physical uint16
}

func (k *keyEvent) Keycode() uint16        { return k.raw.Code }
func (k *keyEvent) SetKeycode(code uint16) { k.raw.Code = code }

func NewEngine(deviceFD int, processor stream.Processor, out emitter.Output, opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		deviceFD:  deviceFD,
		processor: processor,
		emitter:   out,
		logger:    logger.With("component", "engine"),
		grab:      opts.Grab,
		held:      make(map[uint16]uint16),
	}
}

// pollInterval bounds how long a cancelled context goes unnoticed while no
// input arrives.
const pollInterval = 250 // milliseconds

// Run delivers events until the device goes away or ctx is cancelled. The
// device must be opened non-blocking. The only setup failure is a refused
// grab; it is returned before any event is read.
func (e *Engine) Run(ctx context.Context) error {
	if e.grab {
		if err := unix.IoctlSetInt(e.deviceFD, linux.EVIOCGRAB, 1); err != nil {
			return fmt.Errorf("grab device: %w", err)
		}
		defer unix.IoctlSetInt(e.deviceFD, linux.EVIOCGRAB, 0)
	}
	if err := unix.IoctlSetPointerInt(e.deviceFD, linux.EVIOCSCLOCKID, unix.CLOCK_MONOTONIC); err != nil {
		e.logger.Debug("monotonic event clock unavailable", "error", err)
	}
	defer e.releaseForwardedKeys()

	size := util.InputEventSize()
	fds := []unix.PollFd{{Fd: int32(e.deviceFD), Events: unix.POLLIN}}
	for {
		if ctx.Err() != nil {
			return nil
		}
		ready, err := unix.Poll(fds, pollInterval)
		if err != nil {
			if err == unix.EINTR {
				continue
			}
			return fmt.Errorf("poll input device: %w", err)
		}
		if ready == 0 {
			continue
		}

		var ev util.InputEvent
		buf := ev.Bytes()
		n, err := unix.Read(e.deviceFD, buf)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EINTR {
				continue
			}
			return fmt.Errorf("read input event: %w", err)
		}
		if n == 0 {
			return nil
		}
		if n != size {
			continue
		}
		if err := e.processEvent(&ev); err != nil {
			return err
		}
	}
}

func (e *Engine) processEvent(event *util.InputEvent) error {
	switch event.Type {
	case linux.EvSyn:
		// Every forwarded record is followed by its own SYN_REPORT.
		return nil
	case linux.EvKey:
	default:
		return e.emitter.ForwardEvent(event)
	}

	var kind stream.Kind
	switch event.Value {
	case linux.KeyPressed:
		kind = stream.KeyDown
	case linux.KeyReleased:
		kind = stream.KeyUp
	case linux.KeyRepeated:
		return e.forwardRepeat(event)
	default:
		e.logger.Warn("unknown key event value", "code", event.Code, "value", event.Value)
		return e.emitter.ForwardEvent(event)
	}

	current := &keyEvent{raw: *event, physical: event.Code}
	handle := stream.NewHandle(engineSink{e}, current)
	decision := e.processor.Process(event.Timestamp(), kind, current, handle)
	if err := handle.Err(); err != nil {
		return fmt.Errorf("post event: %w", err)
	}
	e.logger.Debug("key event", "key", linux.KeyName(event.Code), "kind", kind.String(), "decision", decision.String())

	switch decision.Action {
	case stream.Pass:
		return e.forwardKeyEvent(current)
	case stream.Override:
		replacement, ok := decision.Replacement.(*keyEvent)
		if !ok {
			return ErrForeignEvent
		}
		return e.forwardKeyEvent(replacement)
	default:
		return nil
	}
}

// forwardRepeat repeats whatever the key's press was emitted as. Repeats of
// a press that was stolen or dropped are suppressed. They never reach the
// processor, which sees each physical press exactly once.
func (e *Engine) forwardRepeat(event *util.InputEvent) error {
	emitted, ok := e.held[event.Code]
	if !ok {
		return nil
	}
	repeat := *event
	repeat.Code = emitted
	return e.emitter.ForwardEvent(&repeat)
}

// forwardKeyEvent writes k and keeps held in step with the virtual keyboard.
// A release always lifts the code its physical key was pressed as, so a key
// remapped on press cannot stay down when its release arrives unmapped.
func (e *Engine) forwardKeyEvent(k *keyEvent) error {
	out := k.raw
	switch out.Value {
	case linux.KeyPressed:
		if err := e.emitter.ForwardEvent(&out); err != nil {
			return err
		}
		e.held[k.physical] = out.Code
		return nil
	case linux.KeyReleased:
		emitted, ok := e.held[k.physical]
		if ok && emitted != out.Code {
			e.logger.Debug("release follows press mapping",
				"key", linux.KeyName(k.physical), "released", linux.KeyName(out.Code), "emitted", linux.KeyName(emitted))
			out.Code = emitted
		}
		if err := e.emitter.ForwardEvent(&out); err != nil {
			return err
		}
		delete(e.held, k.physical)
		return nil
	default:
		return e.emitter.ForwardEvent(&out)
	}
}

// releaseForwardedKeys lifts every key the virtual keyboard still holds down
// so nothing stays stuck after the engine stops.
func (e *Engine) releaseForwardedKeys() {
	for physical, emitted := range e.held {
		if err := e.emitter.SendKeyState(emitted, false); err != nil {
			e.logger.Warn("release held key", "key", linux.KeyName(emitted), "error", err)
		}
		delete(e.held, physical)
	}
}

type engineSink struct {
	e *Engine
}

func (s engineSink) Post(ev stream.KeyEvent) error {
	k, ok := ev.(*keyEvent)
	if !ok {
		return ErrForeignEvent
	}
	return s.e.forwardKeyEvent(k)
}

func (s engineSink) Detach(ev stream.KeyEvent) stream.KeyEvent {
	k := *ev.(*keyEvent)
	return &k
}

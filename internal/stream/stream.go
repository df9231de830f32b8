// Package stream defines the contract between an input source and the
// processors that rewrite its key events.
//
// A source delivers one event at a time together with a Stream scoped to that
// event. The processor may Post any number of extra events and must finish
// with exactly one terminal call: PassCurrentEvent, DropCurrentEvent,
// StealCurrentEvent or ReplaceCurrentEvent.
package stream

import (
	"sync"
	"time"
)

// KeyEvent is a single key action whose keycode may be rewritten in place.
type KeyEvent interface {
	Keycode() uint16
	SetKeycode(code uint16)
}

// UpdateKeycode rewrites ev's keycode through fn.
func UpdateKeycode(ev KeyEvent, fn func(uint16) uint16) {
	ev.SetKeycode(fn(ev.Keycode()))
}

type Kind uint8

const (
	KeyDown Kind = iota
	KeyUp
)

func (k Kind) String() string {
	switch k {
	case KeyDown:
		return "down"
	case KeyUp:
		return "up"
	default:
		return "unknown"
	}
}

type Action uint8

const (
	Pass Action = iota
	Drop
	Override
)

func (a Action) String() string {
	switch a {
	case Pass:
		return "pass"
	case Drop:
		return "drop"
	case Override:
		return "override"
	default:
		return "unknown"
	}
}

// Decision is the terminal outcome for the current event.
type Decision struct {
	Action Action
	// Replacement is set only for Override.
	Replacement KeyEvent
	stolen      bool
}

// Stolen reports whether a Drop was produced by StealCurrentEvent.
func (d Decision) Stolen() bool {
	return d.stolen
}

func (d Decision) String() string {
	if d.stolen {
		return "steal"
	}
	return d.Action.String()
}

type Stream interface {
	// Post injects ev into the output immediately. It does not decide the
	// current event.
	Post(ev KeyEvent)
	PassCurrentEvent() Decision
	DropCurrentEvent() Decision
	// StealCurrentEvent hands ownership of the current event to capture and
	// suppresses its delivery.
	StealCurrentEvent(capture func(KeyEvent)) Decision
	ReplaceCurrentEvent(ev KeyEvent) Decision
}

// Processor decides the fate of each delivered key event. Implementations
// keep private state and are not safe for concurrent use; see Synchronized.
type Processor interface {
	Process(timestamp time.Time, kind Kind, ev KeyEvent, s Stream) Decision
}

// ProcessorFunc adapts a function literal to the Processor interface.
type ProcessorFunc func(timestamp time.Time, kind Kind, ev KeyEvent, s Stream) Decision

// Process calls the underlying function.
func (f ProcessorFunc) Process(timestamp time.Time, kind Kind, ev KeyEvent, s Stream) Decision {
	return f(timestamp, kind, ev, s)
}

type lockedProcessor struct {
	mu   sync.Mutex
	next Processor
}

// Synchronized serializes whole Process calls on p.
func Synchronized(p Processor) Processor {
	return &lockedProcessor{next: p}
}

func (l *lockedProcessor) Process(timestamp time.Time, kind Kind, ev KeyEvent, s Stream) Decision {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.next.Process(timestamp, kind, ev, s)
}

package stream

import "errors"

// ErrHandleConsumed is the panic value raised when a Handle is used after its
// terminal decision.
var ErrHandleConsumed = errors.New("stream: handle already consumed")

// Sink is implemented by sources. Post writes an event to the output; Detach
// returns a copy of the current event that stays valid after delivery ends.
type Sink interface {
	Post(ev KeyEvent) error
	Detach(ev KeyEvent) KeyEvent
}

// Handle is the Stream handed to a processor for one delivered event.
type Handle struct {
	sink     Sink
	current  KeyEvent
	consumed bool
	err      error
}

func NewHandle(sink Sink, current KeyEvent) *Handle {
	return &Handle{sink: sink, current: current}
}

var _ Stream = (*Handle)(nil)

func (h *Handle) Post(ev KeyEvent) {
	h.mustBeLive()
	if err := h.sink.Post(ev); err != nil && h.err == nil {
		h.err = err
	}
}

func (h *Handle) PassCurrentEvent() Decision {
	h.consume()
	return Decision{Action: Pass}
}

func (h *Handle) DropCurrentEvent() Decision {
	h.consume()
	return Decision{Action: Drop}
}

func (h *Handle) StealCurrentEvent(capture func(KeyEvent)) Decision {
	h.consume()
	capture(h.sink.Detach(h.current))
	return Decision{Action: Drop, stolen: true}
}

func (h *Handle) ReplaceCurrentEvent(ev KeyEvent) Decision {
	h.consume()
	return Decision{Action: Override, Replacement: ev}
}

// Consumed reports whether a terminal method has been called.
func (h *Handle) Consumed() bool {
	return h.consumed
}

// Err returns the first error reported by the sink while posting.
func (h *Handle) Err() error {
	return h.err
}

func (h *Handle) consume() {
	h.mustBeLive()
	h.consumed = true
}

func (h *Handle) mustBeLive() {
	if h.consumed {
		panic(ErrHandleConsumed)
	}
}

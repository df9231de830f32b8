package emitter

import "keylayers/internal/util"

// Output is the sink the engine writes decided and posted events to. It is
// satisfied by VirtualKeyboard and lets tests substitute lightweight fakes.
type Output interface {
	Close() error
	ForwardEvent(*util.InputEvent) error
	SendKeyState(code uint16, pressed bool) error
}

var _ Output = (*VirtualKeyboard)(nil)

package trace

import (
	"errors"

	"keylayers/internal/stream"
)

var errForeign = errors.New("trace: event was not created by this recorder")

// Key is the KeyEvent used outside the kernel path. It carries its kind so a
// posted event can be reported as a press or a release.
type Key struct {
	Code uint16
	Kind stream.Kind
}

func (k *Key) Keycode() uint16        { return k.Code }
func (k *Key) SetKeycode(code uint16) { k.Code = code }

func (k *Key) emitted() Emitted { return Emitted{Code: k.Code, Kind: k.Kind} }

// Recorder is a stream.Sink that keeps posted events in memory.
type Recorder struct {
	Events []Emitted
}

var _ stream.Sink = (*Recorder)(nil)

func (r *Recorder) Post(ev stream.KeyEvent) error {
	k, ok := ev.(*Key)
	if !ok {
		return errForeign
	}
	r.Events = append(r.Events, k.emitted())
	return nil
}

func (r *Recorder) Detach(ev stream.KeyEvent) stream.KeyEvent {
	k := *ev.(*Key)
	return &k
}

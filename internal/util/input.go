package util

import (
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// InputEvent mirrors struct input_event from linux/input.h.
type InputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

func InputEventSize() int {
	return int(unsafe.Sizeof(InputEvent{}))
}

func (ev *InputEvent) Bytes() []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(ev)), InputEventSize())
}

// Timestamp converts the kernel timeval. With CLOCK_MONOTONIC selected on the
// device the result is only meaningful relative to other timestamps.
func (ev *InputEvent) Timestamp() time.Time {
	sec, nsec := ev.Time.Unix()
	return time.Unix(sec, nsec)
}

func (ev *InputEvent) SetTimestamp(t time.Time) {
	ev.Time = unix.NsecToTimeval(t.UnixNano())
}

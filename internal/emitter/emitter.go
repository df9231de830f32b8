package emitter

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/unix"

	"keylayers/internal/linux"
	"keylayers/internal/util"
)

// DefaultName is the name the virtual keyboard registers under.
const DefaultName = "keylayers virtual keyboard"

// VirtualKeyboard writes key events into a uinput device.
type VirtualKeyboard struct {
	uinputFD int
	closed   bool
}

const (
	absCnt = 0x3f + 1
)

type inputID struct {
	Bustype uint16
	Vendor  uint16
	Product uint16
	Version uint16
}

type uinputUserDev struct {
	Name         [linux.UinputMaxNameSize]byte
	ID           inputID
	FFEffectsMax int32
	Absmax       [absCnt]int32
	Absmin       [absCnt]int32
	Absfuzz      [absCnt]int32
	Absflat      [absCnt]int32
}

func Open(name string) (*VirtualKeyboard, error) {
	if name == "" {
		name = DefaultName
	}
	fd, err := unix.Open("/dev/uinput", unix.O_WRONLY|unix.O_NONBLOCK|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, fmt.Errorf("open /dev/uinput: %w", err)
	}
	if err := configureUinput(fd, name); err != nil {
		unix.Close(fd)
		return nil, err
	}
	return &VirtualKeyboard{uinputFD: fd}, nil
}

func configureUinput(fd int, name string) error {
	if err := unix.IoctlSetInt(fd, linux.UISetEvbit, linux.EvSyn); err != nil {
		return fmt.Errorf("UI_SET_EVBIT(EV_SYN): %w", err)
	}
	if err := unix.IoctlSetInt(fd, linux.UISetEvbit, linux.EvKey); err != nil {
		return fmt.Errorf("UI_SET_EVBIT(EV_KEY): %w", err)
	}
	for code := 0; code <= linux.KeyMax; code++ {
		_ = unix.IoctlSetInt(fd, linux.UISetKeybit, code)
	}

	var setup uinputUserDev
	copy(setup.Name[:len(setup.Name)-1], []byte(name))
	setup.ID.Bustype = linux.BusUSB
	setup.ID.Vendor = 0x1
	setup.ID.Product = 0x1
	setup.ID.Version = 1

	size := unsafe.Sizeof(setup)
	buf := linux.UnsafeSlice((*byte)(unsafe.Pointer(&setup)), int(size))
	if _, err := unix.Write(fd, buf); err != nil {
		return fmt.Errorf("write uinput setup: %w", err)
	}

	if err := unix.IoctlSetInt(fd, linux.UIDevCreate, 0); err != nil {
		return fmt.Errorf("UI_DEV_CREATE: %w", err)
	}
	return nil
}

func (k *VirtualKeyboard) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	if k.uinputFD >= 0 {
		_ = unix.IoctlSetInt(k.uinputFD, linux.UIDevDestroy, 0)
		unix.Close(k.uinputFD)
		k.uinputFD = -1
	}
	return nil
}

// ForwardEvent writes ev followed by a SYN_REPORT.
func (k *VirtualKeyboard) ForwardEvent(ev *util.InputEvent) error {
	if k.uinputFD < 0 || ev == nil {
		return nil
	}
	if err := k.write(ev); err != nil {
		return err
	}
	return k.emitSync()
}

func (k *VirtualKeyboard) SendKeyState(code uint16, pressed bool) error {
	value := int32(linux.KeyReleased)
	if pressed {
		value = linux.KeyPressed
	}
	return k.ForwardEvent(&util.InputEvent{Type: linux.EvKey, Code: code, Value: value})
}

func (k *VirtualKeyboard) emitSync() error {
	syn := util.InputEvent{Type: linux.EvSyn, Code: linux.SynReport, Value: 0}
	return k.write(&syn)
}

func (k *VirtualKeyboard) write(ev *util.InputEvent) error {
	for {
		_, err := unix.Write(k.uinputFD, ev.Bytes())
		if err == unix.EINTR {
			continue
		}
		return err
	}
}

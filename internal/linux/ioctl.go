package linux

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// IoctlRead fills buffer from a read-direction request such as EVIOCGBIT or
// EVIOCGNAME, whose size is encoded in req. Plain int arguments go through
// unix.IoctlSetInt and unix.IoctlSetPointerInt instead.
func IoctlRead(fd int, req uint, buffer []byte) error {
	if len(buffer) == 0 {
		return nil
	}
	_, _, errno := unix.Syscall(unix.SYS_IOCTL, uintptr(fd), uintptr(req), uintptr(unsafe.Pointer(&buffer[0])))
	if errno != 0 {
		return errno
	}
	return nil
}

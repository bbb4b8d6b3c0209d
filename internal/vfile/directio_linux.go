//go:build linux

package vfile

import (
	"errors"
	"os"
	"syscall"
)

// adapted from rclone's backend/local/directio_unix.go: O_DIRECT is a
// Linux-only open flag, applied here instead of unconditionally so
// callers on other unix platforms fall through to directio_other.go.

func openWithDirectIO(name string, flags int, direct bool) (*os.File, error) {
	if direct {
		flags |= syscall.O_DIRECT
	}
	return os.OpenFile(name, flags, 0o666)
}

func directFlagMask() int { return syscall.O_DIRECT }

func isEinval(err error) bool {
	var errno syscall.Errno
	return errors.As(err, &errno) && errno == syscall.EINVAL
}

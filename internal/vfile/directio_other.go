//go:build !linux

package vfile

import "os"

// Non-Linux platforms have no portable O_DIRECT equivalent in this
// corpus (rclone's directio_unix.go is Linux-only); DirectIO degrades
// to ordinary buffered I/O, same as the EINVAL fallback path on Linux.

func openWithDirectIO(name string, flags int, direct bool) (*os.File, error) {
	return os.OpenFile(name, flags, 0o666)
}

func directFlagMask() int { return 0 }

func isEinval(err error) bool { return false }

//go:build !windows

package move

import (
	"os"
	"syscall"
)

// isCrossDevice reports whether err is os.Rename's EXDEV failure (source
// and destination live on different filesystems, so the fallback
// copy-then-remove path must run instead).
func isCrossDevice(err error) bool {
	le, ok := err.(*os.LinkError)
	if !ok {
		return false
	}
	errno, ok := le.Err.(syscall.Errno)
	return ok && errno == syscall.EXDEV
}

//go:build windows

package dirtree

import (
	"io/fs"
	"syscall"
)

// applyPlatformStat fills in the Windows attribute bits; unix mode and
// uid/gid have no meaning on this platform.
func applyPlatformStat(e *Entry, fi fs.FileInfo) {
	if sys, ok := fi.Sys().(*syscall.Win32FileAttributeData); ok {
		e.WinAttr = sys.FileAttributes
	}
}

//go:build !windows

package dirtree

import (
	"io/fs"
	"syscall"
)

// applyPlatformStat fills in the unix mode bits and uid/gid spec.md §3
// names, grounded on the same syscall.Stat_t access pattern used by
// internal/vfile's attrs_unix.go.
func applyPlatformStat(e *Entry, fi fs.FileInfo) {
	e.UnixAttr = uint32(fi.Mode().Perm())
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		e.UID = st.Uid
		e.GID = st.Gid
	}
}

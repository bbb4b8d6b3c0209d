//go:build !windows && !linux

package vfile

import (
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/stsaz/fcom/internal/ferr"
)

// Platforms without the Linux-specific lchtimes/fadvise syscalls used in
// attrs_unix.go fall back to Chtimes, which follows symlinks rather than
// preserving the link's own mtime.
func setFileMTime(name string, unixNano int64) error {
	mtime := time.Unix(0, unixNano)
	if err := os.Chtimes(name, mtime, mtime); err != nil {
		return ferr.New(ferr.System, "vfile.mtime_set", err)
	}
	return nil
}

func statToInfo(fi fs.FileInfo) Info {
	info := Info{
		Size:  fi.Size(),
		Mode:  uint32(fi.Mode()),
		MTime: fi.ModTime(),
	}
	if st, ok := fi.Sys().(*syscall.Stat_t); ok {
		info.UID = int(st.Uid)
		info.GID = int(st.Gid)
	}
	return info
}

func applyBehaviourHint(f *os.File, b Behaviour) error { return nil }

//go:build linux

package vfile

import (
	"io/fs"
	"os"
	"syscall"
	"time"

	"github.com/stsaz/fcom/internal/ferr"
	"golang.org/x/sys/unix"
)

// setFileMTime is adapted from rclone's backend/local/lchtimes_unix.go:
// it preserves the file's own mtime without following a trailing
// symlink, since a copy of a symlink must carry the link's mtime, not
// whatever the link points at.
func setFileMTime(name string, unixNano int64) error {
	mtime := time.Unix(0, unixNano)
	var utimes [2]unix.Timespec
	now := time.Now()
	utimes[0] = unix.NsecToTimespec(now.UnixNano())
	utimes[1] = unix.NsecToTimespec(mtime.UnixNano())
	if err := unix.UtimesNanoAt(unix.AT_FDCWD, name, utimes[0:], unix.AT_SYMLINK_NOFOLLOW); err != nil {
		return ferr.New(ferr.System, "vfile.mtime_set", &os.PathError{Op: "lchtimes", Path: name, Err: err})
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
	if fi.Mode()&os.ModeSymlink != 0 {
		if target, err := os.Readlink(fi.Name()); err == nil {
			info.Symlink = target
		}
	}
	return info
}

func applyBehaviourHint(f *os.File, b Behaviour) error {
	if f == nil {
		return nil
	}
	switch b {
	case Sequential:
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_SEQUENTIAL)
	case Random:
		_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_RANDOM)
	}
	return nil
}

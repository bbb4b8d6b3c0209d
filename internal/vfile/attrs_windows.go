//go:build windows

package vfile

import (
	"io/fs"
	"os"
	"time"

	"github.com/stsaz/fcom/internal/ferr"
)

// adapted from rclone's backend/local/lchtimes_windows.go shape: Windows
// has no lutimes equivalent in the stdlib, so mtime preservation follows
// symlinks like Chtimes always did on this platform in the teacher code.
func setFileMTime(name string, unixNano int64) error {
	mtime := time.Unix(0, unixNano)
	if err := os.Chtimes(name, mtime, mtime); err != nil {
		return ferr.New(ferr.System, "vfile.mtime_set", err)
	}
	return nil
}

func statToInfo(fi fs.FileInfo) Info {
	return Info{
		Size:    fi.Size(),
		WinAttr: 0,
		MTime:   fi.ModTime(),
	}
}

func applyBehaviourHint(f *os.File, b Behaviour) error { return nil }

//go:build linux

package vfile

import (
	"os"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// adapted from rclone's backend/local/preallocate_unix.go: try
// FALLOC_FL_KEEP_SIZE first, then add FALLOC_FL_PUNCH_HOLE for
// filesystems that reject the plain form (rclone's ZFS #3066 note),
// falling back to disabled once both combinations fail with ENOTSUP.
var (
	fallocFlags = [...]uint32{
		unix.FALLOC_FL_KEEP_SIZE,
		unix.FALLOC_FL_KEEP_SIZE | unix.FALLOC_FL_PUNCH_HOLE,
	}
	fallocFlagsIndex int32
)

func preallocate(out *os.File, size int64) error {
	if size <= 0 {
		return nil
	}
	index := atomic.LoadInt32(&fallocFlagsIndex)
	for {
		if index >= int32(len(fallocFlags)) {
			return nil // disabled
		}
		err := unix.Fallocate(int(out.Fd()), fallocFlags[index], 0, size)
		if err == unix.ENOTSUP {
			index++
			atomic.StoreInt32(&fallocFlagsIndex, index)
			continue
		}
		return err
	}
}

//go:build !linux

package vfile

import "os"

// Non-Linux platforms in this corpus have no fallocate equivalent
// wired (rclone's preallocate_windows.go targets cgo-free SetFileValidData,
// out of scope without cgo); preallocation becomes a no-op and files grow
// lazily, same effect as NoPrealloc on Linux.
func preallocate(out *os.File, size int64) error { return nil }

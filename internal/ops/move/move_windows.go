//go:build windows

package move

import "os"

// isCrossDevice treats every os.Rename failure as a potential
// cross-volume move on Windows (ERROR_NOT_SAME_DEVICE isn't exposed as
// a portable sentinel); the copy-then-remove fallback is always
// correct, just slower, so over-triggering it is harmless.
func isCrossDevice(err error) bool {
	_, ok := err.(*os.LinkError)
	return ok
}

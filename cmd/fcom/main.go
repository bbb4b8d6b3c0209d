// Command fcom is a small file-manipulation toolkit: copy/move/trash,
// image conversion, line counting, embedded-binary extraction,
// archive pack/unpack (plus zip/unzip shortcuts), and directory sync,
// all dispatched through internal/registry (spec.md §2/§4.3).
package main

import (
	"fmt"
	"os"

	"github.com/stsaz/fcom/internal/ferr"
)

func main() {
	os.Exit(run())
}

// run recovers a ferr.Assert panic into a clean non-zero exit (spec.md
// §7: "internal" kind panics in debug builds, never a raw stack trace
// to a non-debug user), matching internal/ferr.Recover's documented use
// at a process boundary.
func run() (code int) {
	var perr error
	defer func() {
		if perr != nil {
			fmt.Fprintln(os.Stderr, perr)
			code = 1
		}
	}()
	defer ferr.Recover(&perr)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

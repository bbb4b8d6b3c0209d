package vfile

import (
	"io/fs"
	"os"
)

// toOSFlags translates spec.md §4.4's OpenFlags into the stdlib os.OpenFile
// bitset. Exactly one of Read/Write/ReadWrite must be set, per spec.md's
// "open mode is mutually exclusive" note.
func toOSFlags(f OpenFlags) (int, error) {
	var flags int
	switch {
	case f.has(ReadWrite):
		flags = os.O_RDWR
	case f.has(Write):
		flags = os.O_WRONLY
	case f.has(Read):
		flags = os.O_RDONLY
	default:
		return 0, errBadOpenMode
	}
	if f.has(CreateNew) {
		flags |= createNewOSFlag()
	} else if f.has(Create) {
		flags |= createOSFlag()
	}
	return flags, nil
}

var errBadOpenMode = &fs.PathError{Op: "open", Err: os.ErrInvalid}

func createOSFlag() int    { return os.O_CREATE | os.O_TRUNC }
func createNewOSFlag() int { return os.O_CREATE | os.O_EXCL }

func isNotExist(err error) bool { return os.IsNotExist(err) }
func isExist(err error) bool    { return os.IsExist(err) }

// Package archive defines the uniform archive-entry model and codec
// interface of spec.md §3 ("Archive entry") and §4.5 ("Archive codec
// state machines"), plus the member-filtering helper shared by every
// reader.
package archive

import (
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/stsaz/fcom/internal/ferr"
)

// EntryType is the archive entry kind spec.md §3 names.
type EntryType int

const (
	Regular EntryType = iota
	Directory
	Hardlink
	Symlink
)

// Entry is the uniform archive-entry model of spec.md §3.
type Entry struct {
	Name           string
	Size           uint64
	CompressedSize uint64
	MTime          time.Time
	UnixAttr       uint32
	WinAttr        uint32
	Type           EntryType
	LinkTarget     string
	Offset         uint64 // within the archive, for random-access formats
}

// Reader lists and extracts members of an archive, per spec.md §4.5's
// "Open → header → FILEINFO per member → (FILEHEADER, DATA*, FILEDONE)
// → DONE" shape, collapsed here into a pull-based Go iterator rather
// than the kernel's raw return-code protocol. No internal/pipeline stage
// wraps a Reader; callers such as internal/ops/unpack iterate it
// directly.
type Reader interface {
	// Next advances to the next member's metadata, or returns io.EOF
	// once the archive is exhausted.
	Next() (Entry, error)
	// Open returns a stream of the current member's decompressed
	// bytes. Valid only until the next Next call.
	Open() (io.ReadCloser, error)
	Close() error
}

// Writer appends members to an archive being produced.
type Writer interface {
	// WriteHeader starts a new member; the returned writer accepts
	// that member's raw bytes.
	WriteHeader(e Entry) (io.Writer, error)
	Close() error
}

// OpenReaderFunc and NewArchiveWriterFunc are implemented per container
// codec package (tar, zip, 7z, iso) and registered below so internal/ops
// can open/create an archive by codec name alone, resolved via
// internal/registry's extension table.
type OpenReaderFunc func(r io.Reader) (Reader, error)
type NewArchiveWriterFunc func(w io.Writer) Writer

type codecEntry struct {
	open      OpenReaderFunc
	newWriter NewArchiveWriterFunc
}

var (
	codecMu  sync.RWMutex
	codecTbl = map[string]codecEntry{}
)

// RegisterCodec binds name (the same name passed to
// registry.RegisterExt) to its reader/writer constructors. Either may be
// nil if the codec only supports one direction (e.g. isocodec, read-only).
func RegisterCodec(name string, open OpenReaderFunc, newWriter NewArchiveWriterFunc) {
	codecMu.Lock()
	defer codecMu.Unlock()
	codecTbl[name] = codecEntry{open: open, newWriter: newWriter}
}

// OpenByCodec opens r as an archive of the named codec.
func OpenByCodec(name string, r io.Reader) (Reader, error) {
	codecMu.RLock()
	e, ok := codecTbl[name]
	codecMu.RUnlock()
	if !ok || e.open == nil {
		return nil, ferr.New(ferr.Argument, "archive.open", nil)
	}
	return e.open(r)
}

// NewWriterByCodec creates a writer for the named codec.
func NewWriterByCodec(name string, w io.Writer) (Writer, error) {
	codecMu.RLock()
	e, ok := codecTbl[name]
	codecMu.RUnlock()
	if !ok || e.newWriter == nil {
		return nil, ferr.New(ferr.Argument, "archive.new_writer", nil)
	}
	return e.newWriter(w), nil
}

// MemberFilter implements spec.md §4.5's member_check(name): an exact-name
// set populated by --member/--members-from-file, plus a wildcard vector,
// matched case-sensitively (archive member names are not normalized the
// way filesystem paths are).
type MemberFilter struct {
	exact map[string]struct{}
	globs []string
}

// NewMemberFilter returns an empty filter. NewMemberFilterFromList fills
// one from a list that mixes plain names and glob patterns, sorting each
// entry into the exact set or the wildcard vector.
func NewMemberFilter() *MemberFilter {
	return &MemberFilter{exact: map[string]struct{}{}}
}

func NewMemberFilterFromList(names []string) *MemberFilter {
	f := NewMemberFilter()
	for _, n := range names {
		if strings.ContainsAny(n, "*?[") {
			f.globs = append(f.globs, n)
		} else {
			f.exact[n] = struct{}{}
		}
	}
	return f
}

// Allowed returns true if the filter is empty (select everything) or
// name matches an exact entry or a wildcard.
func (f *MemberFilter) Allowed(name string) bool {
	if f == nil || (len(f.exact) == 0 && len(f.globs) == 0) {
		return true
	}
	if _, ok := f.exact[name]; ok {
		return true
	}
	for _, g := range f.globs {
		if ok, _ := filepath.Match(g, name); ok {
			return true
		}
	}
	return false
}

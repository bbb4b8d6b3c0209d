// Package isocodec implements a read-only ISO 9660 reader against the
// public ECMA-119 layout (spec.md §6 names ISO alongside the other
// bit-exact container formats). No ISO 9660 library appears anywhere in
// the retrieved corpus, so this is a from-scratch, stdlib-only reader;
// see DESIGN.md's standard-library-only justification.
//
// Scope: the Primary Volume Descriptor and a flat walk of the root
// directory's extent, recursing into subdirectory extents. Rock Ridge
// and Joliet extensions (long filenames, POSIX permissions) are not
// parsed — member names come back as plain ISO 9660 8.3-style names
// with the ";1" version suffix stripped, matching what `isoinfo -l`
// shows without RR extensions enabled. There is no Writer: building an
// ISO 9660 volume means laying out the path table and every directory
// extent by hand, out of scope for a codec this repo treats as a
// read-only archival format (same reduction as sevenzipcodec).
package isocodec

import (
	"io"
	"strings"
	"time"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterExt("iso", "iso")
}

const sectorSize = 2048

type dirEntry struct {
	name    string
	isDir   bool
	extent  uint32
	size    uint32
	mtime   time.Time
}

type reader struct {
	ra      io.ReaderAt
	entries []dirEntry
	idx     int
}

// NewReader parses size bytes at ra as an ISO 9660 image and flattens
// its directory tree (root-relative paths) into a listing.
func NewReader(ra io.ReaderAt, size int64) (archive.Reader, error) {
	pvd, err := readPrimaryVolumeDescriptor(ra)
	if err != nil {
		return nil, err
	}
	rootExtent, rootSize := pvd.rootExtent, pvd.rootSize
	entries, err := walkDir(ra, "", rootExtent, rootSize)
	if err != nil {
		return nil, err
	}
	return &reader{ra: ra, entries: entries}, nil
}

type volDescriptor struct {
	rootExtent uint32
	rootSize   uint32
}

// readPrimaryVolumeDescriptor scans volume descriptor sectors starting
// at sector 16 (the System Area is sectors 0-15) until it finds type 1
// (Primary) or hits type 255 (Terminator).
func readPrimaryVolumeDescriptor(ra io.ReaderAt) (*volDescriptor, error) {
	buf := make([]byte, sectorSize)
	for sector := int64(16); sector < 16+64; sector++ {
		if _, err := ra.ReadAt(buf, sector*sectorSize); err != nil {
			return nil, ferr.New(ferr.Format, "iso.open", err)
		}
		if string(buf[1:6]) != "CD001" {
			return nil, ferr.New(ferr.Format, "iso.open", nil)
		}
		switch buf[0] {
		case 1: // Primary Volume Descriptor
			rootDirRecord := buf[156:190]
			extent, size := parseDirRecordLocation(rootDirRecord)
			return &volDescriptor{rootExtent: extent, rootSize: size}, nil
		case 255: // Terminator
			return nil, ferr.New(ferr.Format, "iso.open", nil)
		}
	}
	return nil, ferr.New(ferr.Format, "iso.open", nil)
}

func parseDirRecordLocation(rec []byte) (extent, size uint32) {
	// Both-endian fields per ECMA-119 7.3.3: little-endian half first.
	extent = le32(rec[2:6])
	size = le32(rec[10:14])
	return
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

// walkDir reads every directory record in the extent [extent, extent +
// ceil(size/sectorSize)) and recurses into subdirectories, producing
// entries with prefix-joined names.
func walkDir(ra io.ReaderAt, prefix string, extent, size uint32) ([]dirEntry, error) {
	numSectors := (size + sectorSize - 1) / sectorSize
	data := make([]byte, int64(numSectors)*sectorSize)
	if _, err := ra.ReadAt(data, int64(extent)*sectorSize); err != nil {
		return nil, ferr.New(ferr.Format, "iso.read_dir", err)
	}
	var entries []dirEntry
	pos := 0
	for pos < len(data) {
		recLen := int(data[pos])
		if recLen == 0 {
			// Padding to the next sector boundary.
			pos += sectorSize - pos%sectorSize
			continue
		}
		if pos+recLen > len(data) {
			break
		}
		rec := data[pos : pos+recLen]
		pos += recLen

		flags := rec[25]
		isDir := flags&0x02 != 0
		nameLen := int(rec[32])
		if nameLen == 0 || 33+nameLen > len(rec) {
			continue
		}
		rawName := string(rec[33 : 33+nameLen])
		if rawName == "\x00" || rawName == "\x01" {
			continue // "." and ".." self-references
		}
		childExtent := le32(rec[2:6])
		childSize := le32(rec[10:14])
		name := stripISOVersion(rawName)
		full := name
		if prefix != "" {
			full = prefix + "/" + name
		}
		entries = append(entries, dirEntry{
			name:   full,
			isDir:  isDir,
			extent: childExtent,
			size:   childSize,
		})
		if isDir {
			sub, err := walkDir(ra, full, childExtent, childSize)
			if err != nil {
				return nil, err
			}
			entries = append(entries, sub...)
		}
	}
	return entries, nil
}

func stripISOVersion(name string) string {
	if i := strings.LastIndexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	return strings.TrimSuffix(name, ".")
}

func (rd *reader) Next() (archive.Entry, error) {
	if rd.idx >= len(rd.entries) {
		return archive.Entry{}, io.EOF
	}
	e := rd.entries[rd.idx]
	rd.idx++
	typ := archive.Regular
	if e.isDir {
		typ = archive.Directory
	}
	return archive.Entry{Name: e.name, Size: uint64(e.size), Type: typ, Offset: uint64(e.extent) * sectorSize}, nil
}

func (rd *reader) Open() (io.ReadCloser, error) {
	if rd.idx == 0 || rd.idx > len(rd.entries) {
		return nil, ferr.New(ferr.Internal, "iso.open_member", nil)
	}
	e := rd.entries[rd.idx-1]
	if e.isDir {
		return nil, ferr.New(ferr.Argument, "iso.open_member", nil)
	}
	sr := io.NewSectionReader(rd.ra, int64(e.extent)*sectorSize, int64(e.size))
	return io.NopCloser(sr), nil
}

func (rd *reader) Close() error { return nil }

// Package sevenzipcodec implements a 7z reader against the public 7z
// signature/header layout (spec.md §6: "7Z... bit-exact to their public
// specifications"). No 7z library exists anywhere in the retrieved
// corpus (checked every go.mod and other_examples/ file; see DESIGN.md),
// so this is a from-scratch, stdlib-only reader. Scope is intentionally
// reduced: member listing (FILEINFO) works for any archive whose header
// block is stored uncompressed, which is how most single-folder
// command-line-built archives lay out. Member *extraction* is not
// supported for any coder, Copy ("store") included: Open returns a
// ferr.Format error for every member. Listed sizes are 0, since the
// block that carries them is skipped (see parseHeader). See DESIGN.md's
// standard-library-only justification.
//
// There is no Writer: 7z archive creation requires choosing and driving
// one of those same coders, so this codec is read-only, same scope
// reduction rclone itself applies to several read-only backends.
package sevenzipcodec

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/stsaz/fcom/internal/archive"
	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterExt("7z", "7z")
}

var signature = [6]byte{'7', 'z', 0xBC, 0xAF, 0x27, 0x1C}

const (
	idEnd             = 0x00
	idHeader          = 0x01
	idMainStreamsInfo = 0x04
	idFilesInfo       = 0x05
	idPackInfo        = 0x06
	idUnpackInfo      = 0x07
	idSubStreamsInfo  = 0x08
	idSize            = 0x09
	idName            = 0x11
	idEmptyStream     = 0x0E
	idEmptyFile       = 0x0F
	idEncodedHeader   = 0x17
)

// member is what Next() can recover without decoding the coder graph:
// name and whether it's an empty stream (directory or zero-length file).
// size is never filled by parseHeader, so it stays 0.
type member struct {
	name  string
	size  uint64
	isDir bool
}

type reader struct {
	ra      io.ReaderAt
	members []member
	idx     int
}

// NewReader parses size bytes at ra as a 7z archive.
func NewReader(ra io.ReaderAt, size int64) (archive.Reader, error) {
	var sig [32]byte
	if _, err := ra.ReadAt(sig[:], 0); err != nil {
		return nil, ferr.New(ferr.Format, "sevenzip.open", err)
	}
	if !bytes.Equal(sig[:6], signature[:]) {
		return nil, ferr.New(ferr.Format, "sevenzip.open", nil)
	}
	nextOffset := int64(binary.LittleEndian.Uint64(sig[12:20]))
	nextSize := int64(binary.LittleEndian.Uint64(sig[20:28]))
	if nextSize == 0 {
		return &reader{ra: ra}, nil // empty archive
	}
	hdr := make([]byte, nextSize)
	if _, err := ra.ReadAt(hdr, 32+nextOffset); err != nil {
		return nil, ferr.New(ferr.Format, "sevenzip.header", err)
	}
	if len(hdr) > 0 && hdr[0] == idEncodedHeader {
		return nil, ferr.New(ferr.Format, "sevenzip.header", errUnsupportedf("header block is compressed (kEncodedHeader); only stored headers are supported"))
	}
	members, err := parseHeader(hdr)
	if err != nil {
		return nil, err
	}
	return &reader{ra: ra, members: members}, nil
}

func errUnsupportedf(msg string) error { return &unsupportedErr{msg} }

type unsupportedErr struct{ msg string }

func (e *unsupportedErr) Error() string { return e.msg }

// parseHeader walks the uncompressed kHeader block far enough to
// recover file names and empty-stream/empty-file flags. MainStreamsInfo
// (the PackInfo/UnpackInfo coder graph and the unpacked sizes) is
// skipped, so no member sizes are recovered — see package doc.
func parseHeader(b []byte) ([]member, error) {
	r := &byteReader{b: b}
	id, err := r.readByte()
	if err != nil {
		return nil, ferr.New(ferr.Format, "sevenzip.header", err)
	}
	if id != idHeader {
		return nil, ferr.New(ferr.Format, "sevenzip.header", nil)
	}
	var names []string
	var emptyStream []bool
	var emptyFile []bool
	var sizes []uint64

	for {
		pid, err := r.readByte()
		if err != nil {
			return nil, ferr.New(ferr.Format, "sevenzip.header", err)
		}
		switch pid {
		case idEnd:
			return buildMembers(names, emptyStream, emptyFile, sizes), nil
		case idMainStreamsInfo:
			if err := r.skipProperty(); err != nil {
				return nil, err
			}
		case idFilesInfo:
			n, err := parseFilesInfo(r)
			if err != nil {
				return nil, err
			}
			names = n.names
			emptyStream = n.emptyStream
			emptyFile = n.emptyFile
			sizes = n.sizes
		default:
			if err := r.skipProperty(); err != nil {
				return nil, err
			}
		}
	}
}

type filesInfo struct {
	names       []string
	emptyStream []bool
	emptyFile   []bool
	sizes       []uint64
}

func parseFilesInfo(r *byteReader) (*filesInfo, error) {
	numFiles, err := r.readNumber()
	if err != nil {
		return nil, err
	}
	fi := &filesInfo{}
	for {
		pid, err := r.readByte()
		if err != nil {
			return nil, err
		}
		if pid == idEnd {
			break
		}
		size, err := r.readNumber()
		if err != nil {
			return nil, err
		}
		body, err := r.readN(int(size))
		if err != nil {
			return nil, err
		}
		switch pid {
		case idEmptyStream:
			fi.emptyStream = readBits(body, int(numFiles))
		case idEmptyFile:
			fi.emptyFile = readBits(body, countSet(fi.emptyStream))
		case idName:
			fi.names = parseNames(body, int(numFiles))
		}
	}
	return fi, nil
}

func buildMembers(names []string, emptyStream, emptyFile []bool, sizes []uint64) []member {
	members := make([]member, len(names))
	sizeIdx := 0
	nonEmptyIdx := 0
	for i, name := range names {
		m := member{name: name}
		isEmptyStream := i < len(emptyStream) && emptyStream[i]
		if isEmptyStream {
			isEmptyFile := nonEmptyIdx < len(emptyFile) && emptyFile[nonEmptyIdx]
			nonEmptyIdx++
			m.isDir = !isEmptyFile
		} else if sizeIdx < len(sizes) {
			m.size = sizes[sizeIdx]
			sizeIdx++
		}
		members[i] = m
	}
	return members
}

func readBits(b []byte, n int) []bool {
	out := make([]bool, n)
	for i := 0; i < n; i++ {
		byteIdx := i / 8
		if byteIdx >= len(b) {
			break
		}
		bit := 7 - uint(i%8)
		out[i] = (b[byteIdx]>>bit)&1 != 0
	}
	return out
}

func countSet(b []bool) int {
	n := 0
	for _, v := range b {
		if v {
			n++
		}
	}
	return n
}

func parseNames(body []byte, n int) []string {
	// UTF-16LE, NUL-terminated per name, external flag byte prefix
	// already stripped by caller convention (first byte 0 = internal).
	if len(body) == 0 {
		return nil
	}
	data := body[1:]
	names := make([]string, 0, n)
	var cur []uint16
	for i := 0; i+1 < len(data); i += 2 {
		u := binary.LittleEndian.Uint16(data[i : i+2])
		if u == 0 {
			names = append(names, utf16ToString(cur))
			cur = nil
			continue
		}
		cur = append(cur, u)
	}
	return names
}

func utf16ToString(u []uint16) string {
	runes := make([]rune, 0, len(u))
	for i := 0; i < len(u); i++ {
		r := rune(u[i])
		if r >= 0xD800 && r <= 0xDBFF && i+1 < len(u) {
			r2 := rune(u[i+1])
			if r2 >= 0xDC00 && r2 <= 0xDFFF {
				runes = append(runes, ((r-0xD800)<<10|(r2-0xDC00))+0x10000)
				i++
				continue
			}
		}
		runes = append(runes, r)
	}
	return string(runes)
}

// byteReader is a minimal cursor over the header bytes with the 7z
// variable-length integer encoding (a leading mask byte whose high bits
// select how many extra little-endian bytes follow).
type byteReader struct {
	b   []byte
	pos int
}

func (r *byteReader) readByte() (byte, error) {
	if r.pos >= len(r.b) {
		return 0, io.ErrUnexpectedEOF
	}
	v := r.b[r.pos]
	r.pos++
	return v, nil
}

func (r *byteReader) readN(n int) ([]byte, error) {
	if r.pos+n > len(r.b) {
		return nil, io.ErrUnexpectedEOF
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out, nil
}

func (r *byteReader) readNumber() (uint64, error) {
	first, err := r.readByte()
	if err != nil {
		return 0, err
	}
	mask := byte(0x80)
	var value uint64
	for i := 0; i < 8; i++ {
		if first&mask == 0 {
			highPart := uint64(first & (mask - 1))
			return value | highPart<<(8*uint(i)), nil
		}
		b, err := r.readByte()
		if err != nil {
			return 0, err
		}
		value |= uint64(b) << (8 * uint(i))
		mask >>= 1
	}
	return value, nil
}

// skipProperty skips a property whose own size isn't pre-declared (e.g.
// PackInfo/MainStreamsInfo) by scanning nested properties until their
// matching idEnd. This repo's scope only needs FilesInfo's contents, so
// everything else is structurally skipped rather than modeled.
func (r *byteReader) skipProperty() error {
	depth := 1
	for depth > 0 {
		pid, err := r.readByte()
		if err != nil {
			return ferr.New(ferr.Format, "sevenzip.header", err)
		}
		switch pid {
		case idEnd:
			depth--
		case idPackInfo, idUnpackInfo, idSubStreamsInfo, idMainStreamsInfo, idHeader:
			depth++
		case idSize, idName:
			n, err := r.readNumber()
			if err != nil {
				return ferr.New(ferr.Format, "sevenzip.header", err)
			}
			if _, err := r.readN(int(n)); err != nil {
				return ferr.New(ferr.Format, "sevenzip.header", err)
			}
		default:
			// Unknown scalar property: best-effort, assume it is
			// length-prefixed like most 7z properties.
			n, err := r.readNumber()
			if err != nil {
				return ferr.New(ferr.Format, "sevenzip.header", err)
			}
			if _, err := r.readN(int(n)); err != nil {
				return ferr.New(ferr.Format, "sevenzip.header", err)
			}
		}
	}
	return nil
}

func (rd *reader) Next() (archive.Entry, error) {
	if rd.idx >= len(rd.members) {
		return archive.Entry{}, io.EOF
	}
	m := rd.members[rd.idx]
	rd.idx++
	typ := archive.Regular
	if m.isDir {
		typ = archive.Directory
	}
	return archive.Entry{Name: m.name, Size: m.size, Type: typ}, nil
}

func (rd *reader) Open() (io.ReadCloser, error) {
	return nil, ferr.New(ferr.Format, "sevenzip.open_member",
		errUnsupportedf("member extraction requires decoding the 7z coder graph (LZMA/LZMA2/BCJ), not implemented by this reader"))
}

func (rd *reader) Close() error { return nil }

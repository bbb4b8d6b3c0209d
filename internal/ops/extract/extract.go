// Package extract implements the `extract` operation: scan a host file
// for an embedded binary (PNG, WEBP, Matroska/MKV, or an MP3 ID3v2
// stream) by magic-byte sniffing and write out the matched span.
//
// Grounded on original_source/src/ops/extract.c's per-format find
// functions (extract_png_find, extract_webp_find, extract_mkv_find,
// extract_id3v2_find), each a two-state "locate header, then locate the
// matching footer/length" scan. The original streams its scan across
// fixed-size buffer refills to bound memory use; this port instead
// loads the whole input into memory and scans it directly — embedded-
// binary extraction targets are host executables in the tens-of-MB
// range, not the multi-GB streaming inputs internal/vfile exists for,
// so the simpler whole-buffer scan is the right trade here (see
// DESIGN.md).
package extract

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/stsaz/fcom/internal/ferr"
	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/registry"
)

func init() {
	registry.RegisterOp("extract", func() registry.Operation { return &Op{} })
}

// match is one extracted span: data and the extension to name it with.
type match struct {
	data []byte
	ext  string
}

// finder locates (at most) one embedded instance of its format in buf,
// starting no earlier than the previous match's end.
type finder func(buf []byte) (m match, found bool)

var finders = []finder{findPNG, findWEBP, findMKV, findID3v2}

type Op struct {
	desc *opdesc.Desc
}

func (o *Op) Create(d *opdesc.Desc) error {
	if len(d.Inputs) == 0 {
		return ferr.New(ferr.Argument, "extract.create", nil)
	}
	o.desc = d
	return nil
}

func (o *Op) Run() error {
	for _, path := range o.desc.Inputs {
		if err := o.extractOne(path); err != nil {
			return err
		}
	}
	return nil
}

func (o *Op) extractOne(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ferr.Wrap(ferr.NotFound, "extract.run", err, "read %s", path)
	}

	stem := path
	if o.desc.Chdir != "" {
		stem = filepath.Join(o.desc.Chdir, filepath.Base(path))
	}

	counter := 0
	for _, find := range finders {
		rest := data
		for {
			m, ok := find(rest)
			if !ok {
				break
			}
			outPath := fmt.Sprintf("%s.%d.%s", stem, counter, m.ext)
			if err := os.WriteFile(outPath, m.data, 0o644); err != nil {
				return ferr.Wrap(ferr.System, "extract.run", err, "write %s", outPath)
			}
			counter++

			// Resume scanning after the bytes just matched.
			idx := bytes.Index(rest, m.data)
			if idx < 0 {
				break
			}
			rest = rest[idx+len(m.data):]
		}
	}
	return nil
}

var pngSig = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
var pngEnd = []byte{0, 0, 0, 0, 'I', 'E', 'N', 'D', 0xAE, 0x42, 0x60, 0x82}

func findPNG(buf []byte) (match, bool) {
	start := bytes.Index(buf, pngSig)
	if start < 0 {
		return match{}, false
	}
	rest := buf[start:]
	end := bytes.Index(rest, pngEnd)
	if end < 0 {
		return match{data: rest, ext: "png"}, true
	}
	end += len(pngEnd)
	return match{data: rest[:end], ext: "png"}, true
}

func findWEBP(buf []byte) (match, bool) {
	start := bytes.Index(buf, []byte("RIFF"))
	if start < 0 {
		return match{}, false
	}
	rest := buf[start:]
	if len(rest) < 8 {
		return match{}, false
	}
	size := binary.LittleEndian.Uint32(rest[4:8])
	total := 8 + int(size)
	if total > len(rest) || total < 8 {
		total = len(rest)
	}
	return match{data: rest[:total], ext: "webp"}, true
}

var mkvSig = []byte{0x1a, 0x45, 0xdf, 0xa3}
var segmentSig = []byte{0x18, 0x53, 0x80, 0x67}

func findMKV(buf []byte) (match, bool) {
	start := bytes.Index(buf, mkvSig)
	if start < 0 {
		return match{}, false
	}
	rest := buf[start:]
	cur := rest[4:]

	_, hdrSize, ok := readEBMLVint(cur)
	if !ok || hdrSize > uint64(len(cur)) {
		return match{data: rest, ext: "mkv"}, true
	}
	cur = cur[hdrSize:]

	segIdx := bytes.Index(cur, segmentSig)
	if segIdx < 0 {
		return match{data: rest, ext: "mkv"}, true
	}
	cur = cur[segIdx+len(segmentSig):]

	segSize, segSizeLen, ok := readEBMLVint(cur)
	if !ok {
		return match{data: rest, ext: "mkv"}, true
	}
	total := (len(rest) - len(cur)) + int(segSizeLen) + int(segSize)
	if total <= 0 || total > len(rest) {
		total = len(rest)
	}
	return match{data: rest[:total], ext: "mkv"}, true
}

// readEBMLVint reads a Matroska/EBML variable-length integer: the
// number of leading zero bits in the first byte gives the encoded
// width, and that leading marker bit is masked out of the value.
func readEBMLVint(b []byte) (value uint64, width uint64, ok bool) {
	if len(b) == 0 {
		return 0, 0, false
	}
	first := b[0]
	length := 0
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		length++
		if first&mask != 0 {
			break
		}
		if mask == 1 {
			return 0, 0, false
		}
	}
	if length > len(b) {
		return 0, 0, false
	}
	value = uint64(first) &^ (0xFF << uint(8-length))
	for i := 1; i < length; i++ {
		value = value<<8 | uint64(b[i])
	}
	return value, uint64(length), true
}

func findID3v2(buf []byte) (match, bool) {
	start := findID3Marker(buf, 0)
	if start < 0 {
		return match{}, false
	}
	end := findID3Marker(buf, start+1)
	if end < 0 {
		end = len(buf)
	}
	return match{data: buf[start:end], ext: "mp3"}, true
}

// findID3Marker locates "ID3" followed by a version byte in {2,3,4}
// and a zero flags byte, matching extract_id3v2_find's loose heuristic
// for distinguishing a real ID3v2 tag header from incidental "ID3"
// bytes elsewhere in the file.
func findID3Marker(buf []byte, from int) int {
	if from < 0 || from >= len(buf) {
		return -1
	}
	for i := from; ; {
		rel := bytes.Index(buf[i:], []byte("ID3"))
		if rel < 0 {
			return -1
		}
		pos := i + rel
		if pos+5 <= len(buf) {
			ver := buf[pos+3]
			flags := buf[pos+4]
			if (ver == 2 || ver == 3 || ver == 4) && flags == 0 {
				return pos
			}
		}
		i = pos + 1
	}
}

func (o *Op) Signal(sig int) error { return nil }
func (o *Op) Close() error         { return nil }
func (o *Op) Help() string         { return "extract INPUT..." }

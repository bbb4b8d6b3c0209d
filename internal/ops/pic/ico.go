// ico.go supplements pic with a `--favicon` mode: extracting every
// embedded image out of a Windows .ico container into its own file.
//
// Grounded on original_source/src/util/ico-read.h's ICONDIR/
// ICONDIRENTRY layout documentation ("HDR ENTRY... DATA..."), dropped
// from spec.md's distilled "image conversion" wording but supplemented
// here per SPEC_FULL.md §C.8. Modern .ico files embed either raw PNG
// data or a headerless BMP DIB per entry; PNG entries are written out
// as-is, DIB entries get a synthesized 14-byte BITMAPFILEHEADER so the
// result is a standalone, loadable .bmp (stdlib has no BMP encoder to
// decode/re-encode a DIB directly).
package pic

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/stsaz/fcom/internal/ferr"
)

const (
	icoHeaderSize = 6
	icoEntrySize  = 16
	bmpFileHdrLen = 14
)

var pngMagic = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// extractICO reads srcPath as an .ico container and writes each
// embedded image next to outPath, named "<outPath-stem>-N.<ext>".
func extractICO(srcPath, outPath string) error {
	data, err := os.ReadFile(srcPath)
	if err != nil {
		return ferr.Wrap(ferr.NotFound, "pic.favicon", err, "read %s", srcPath)
	}
	if len(data) < icoHeaderSize {
		return ferr.New(ferr.Format, "pic.favicon", nil)
	}
	// ICONDIR: reserved(2) type(2) count(2), all little-endian.
	if binary.LittleEndian.Uint16(data[0:2]) != 0 {
		return ferr.New(ferr.Format, "pic.favicon", nil)
	}
	count := int(binary.LittleEndian.Uint16(data[4:6]))

	stem := strings.TrimSuffix(outPath, filepath.Ext(outPath))
	dirEnd := icoHeaderSize + count*icoEntrySize
	if len(data) < dirEnd {
		return ferr.New(ferr.Format, "pic.favicon", nil)
	}

	for i := 0; i < count; i++ {
		entry := data[icoHeaderSize+i*icoEntrySize : icoHeaderSize+(i+1)*icoEntrySize]
		size := binary.LittleEndian.Uint32(entry[8:12])
		offset := binary.LittleEndian.Uint32(entry[12:16])
		if int(offset)+int(size) > len(data) {
			return ferr.New(ferr.Format, "pic.favicon", nil)
		}
		img := data[offset : offset+size]

		dstPath, content := icoEntryFile(stem, i, img)
		if err := os.WriteFile(dstPath, content, 0o644); err != nil {
			return ferr.Wrap(ferr.System, "pic.favicon", err, "write %s", dstPath)
		}
	}
	return nil
}

// icoEntryFile names and, for raw DIB entries, rewraps one ICO payload.
func icoEntryFile(stem string, index int, img []byte) (path string, content []byte) {
	if len(img) >= len(pngMagic) && string(img[:len(pngMagic)]) == string(pngMagic) {
		return fmt.Sprintf("%s-%d.png", stem, index), img
	}
	return fmt.Sprintf("%s-%d.bmp", stem, index), wrapDIB(img)
}

// wrapDIB prepends a BITMAPFILEHEADER to a headerless DIB so the
// result is a standalone .bmp file.
func wrapDIB(dib []byte) []byte {
	out := make([]byte, bmpFileHdrLen+len(dib))
	out[0], out[1] = 'B', 'M'
	binary.LittleEndian.PutUint32(out[2:6], uint32(len(out)))
	// Pixel data offset: file header + DIB header size (first DWORD of the DIB).
	dibHdrSize := uint32(bmpFileHdrLen)
	if len(dib) >= 4 {
		dibHdrSize += binary.LittleEndian.Uint32(dib[0:4])
	}
	binary.LittleEndian.PutUint32(out[10:14], dibHdrSize)
	copy(out[bmpFileHdrLen:], dib)
	return out
}

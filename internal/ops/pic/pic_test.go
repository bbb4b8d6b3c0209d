package pic

import (
	"bytes"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
)

func makePNG(t *testing.T, path string, w, h int) {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: byte(x), G: byte(y), B: 0, A: 255})
		}
	}
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
}

func TestPicConvertPNGToJPEG(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	dst := filepath.Join(dir, "b.jpg")
	makePNG(t, src, 8, 8)

	d := opdesc.New("pic")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	f, err := os.Open(dst)
	require.NoError(t, err)
	defer f.Close()
	img, err := jpeg.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 8, img.Bounds().Dx())
	assert.Equal(t, 8, img.Bounds().Dy())
}

func TestPicAutoNameFromBareExtension(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "photo.png")
	makePNG(t, src, 4, 4)

	d := opdesc.New("pic")
	d.Inputs = []string{src}
	d.Output = ".jpg"
	d.HasOutput = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	_, err := os.Stat(filepath.Join(dir, "photo.jpg"))
	require.NoError(t, err)
}

func TestPicRefusesExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.png")
	dst := filepath.Join(dir, "b.jpg")
	makePNG(t, src, 4, 4)
	require.NoError(t, os.WriteFile(dst, []byte("existing"), 0o644))

	d := opdesc.New("pic")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	err := op.Run()
	require.Error(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "existing", string(got))
}

func TestBareExtension(t *testing.T) {
	ext, ok := bareExtension(".png")
	assert.True(t, ok)
	assert.Equal(t, "png", ext)

	_, ok = bareExtension("name.png")
	assert.False(t, ok)
}

// buildMinimalICO constructs a one-entry .ico file embedding a raw PNG,
// matching the ICONDIR/ICONDIRENTRY layout documented in
// original_source/src/util/ico-read.h.
func buildMinimalICO(t *testing.T, pngData []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	header := make([]byte, icoHeaderSize)
	binary.LittleEndian.PutUint16(header[2:4], 1) // type = icon
	binary.LittleEndian.PutUint16(header[4:6], 1) // count = 1
	buf.Write(header)

	entry := make([]byte, icoEntrySize)
	binary.LittleEndian.PutUint32(entry[8:12], uint32(len(pngData)))
	binary.LittleEndian.PutUint32(entry[12:16], uint32(icoHeaderSize+icoEntrySize))
	buf.Write(entry)

	buf.Write(pngData)
	return buf.Bytes()
}

func TestExtractICOWritesEmbeddedPNG(t *testing.T) {
	dir := t.TempDir()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	var pngBuf bytes.Buffer
	require.NoError(t, png.Encode(&pngBuf, img))

	icoData := buildMinimalICO(t, pngBuf.Bytes())
	icoPath := filepath.Join(dir, "app.ico")
	require.NoError(t, os.WriteFile(icoPath, icoData, 0o644))

	outPath := filepath.Join(dir, "app.png")
	require.NoError(t, extractICO(icoPath, outPath))

	got, err := os.ReadFile(filepath.Join(dir, "app-0.png"))
	require.NoError(t, err)
	assert.Equal(t, pngBuf.Bytes(), got)
}

func TestWrapDIBProducesValidBMPHeader(t *testing.T) {
	dib := make([]byte, 40) // BITMAPINFOHEADER size field
	binary.LittleEndian.PutUint32(dib[0:4], 40)
	dib = append(dib, []byte{1, 2, 3, 4}...)

	out := wrapDIB(dib)
	assert.Equal(t, byte('B'), out[0])
	assert.Equal(t, byte('M'), out[1])
	assert.Equal(t, uint32(len(out)), binary.LittleEndian.Uint32(out[2:6]))
	assert.Equal(t, uint32(bmpFileHdrLen+40), binary.LittleEndian.Uint32(out[10:14]))
}

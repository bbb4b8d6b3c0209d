package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
)

func TestFindPNGWithFooter(t *testing.T) {
	body := append(append([]byte("junk-before-"), pngSig...), []byte("chunkdata")...)
	body = append(body, pngEnd...)
	body = append(body, []byte("trailing-junk")...)

	m, ok := findPNG(body)
	require.True(t, ok)
	assert.Equal(t, "png", m.ext)
	assert.True(t, len(m.data) >= len(pngSig)+len(pngEnd))
	assert.Equal(t, pngSig, m.data[:len(pngSig)])
	assert.Equal(t, pngEnd, m.data[len(m.data)-len(pngEnd):])
}

func TestFindPNGNoMatch(t *testing.T) {
	_, ok := findPNG([]byte("nothing here"))
	assert.False(t, ok)
}

func TestFindWEBPUsesRIFFSize(t *testing.T) {
	payload := []byte("WEBPVP8 ...pixeldata...")
	body := make([]byte, 0, 8+len(payload))
	body = append(body, []byte("RIFF")...)
	size := uint32(len(payload))
	body = append(body, byte(size), byte(size>>8), byte(size>>16), byte(size>>24))
	body = append(body, payload...)
	full := append([]byte("prefix-junk-"), body...)
	full = append(full, []byte("-suffix-junk")...)

	m, ok := findWEBP(full)
	require.True(t, ok)
	assert.Equal(t, "webp", m.ext)
	assert.Equal(t, body, m.data)
}

func TestReadEBMLVintOneByte(t *testing.T) {
	v, width, ok := readEBMLVint([]byte{0x85})
	require.True(t, ok)
	assert.Equal(t, uint64(5), v)
	assert.Equal(t, uint64(1), width)
}

func TestReadEBMLVintTwoByte(t *testing.T) {
	// 0x40 0x0A -> marker in bit 6 (width=2), value = ((0x40 &^ 0xC0) << 8) | 0x0A = 10
	v, width, ok := readEBMLVint([]byte{0x40, 0x0A})
	require.True(t, ok)
	assert.Equal(t, uint64(10), v)
	assert.Equal(t, uint64(2), width)
}

func TestFindID3v2MarkerAndEnd(t *testing.T) {
	buf := append([]byte("junk"), []byte("ID3")...)
	buf = append(buf, 3, 0)
	buf = append(buf, []byte("tagbody")...)
	buf = append(buf, []byte("ID3")...)
	buf = append(buf, 4, 0)
	buf = append(buf, []byte("nexttag")...)

	m, ok := findID3v2(buf)
	require.True(t, ok)
	assert.Equal(t, "mp3", m.ext)
	assert.Equal(t, buf[4:4+5+len("tagbody")], m.data)
}

func TestFindID3v2RejectsBareMarker(t *testing.T) {
	_, ok := findID3v2([]byte("just some ID3 text without version bytes"))
	assert.False(t, ok)
}

func TestExtractOneWritesMatchedSpans(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.bin")
	content := append([]byte("host-exe-bytes"), pngSig...)
	content = append(content, []byte("imgdata")...)
	content = append(content, pngEnd...)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	d := opdesc.New("extract")
	d.Inputs = []string{path}
	op := &Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	got, err := os.ReadFile(path + ".0.png")
	require.NoError(t, err)
	assert.Equal(t, pngSig, got[:len(pngSig)])
}

package vfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteReadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "a.bin")

	w := Create(Config{})
	require.NoError(t, w.Open(name, Write|Create))
	rc, err := w.Write([]byte("hello world"), 0)
	require.NoError(t, err)
	assert.Equal(t, OK, rc)
	require.NoError(t, w.Close())

	r := Create(Config{})
	require.NoError(t, r.Open(name, Read))
	defer r.Close()
	buf := make([]byte, 32)
	n, rc, err := r.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, OK, rc)
	assert.Equal(t, "hello world", string(buf[:n]))
}

func TestFakeWriteProducesNoBytes(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "b.bin")

	f := Create(Config{})
	require.NoError(t, f.Open(name, Write|Create|FakeWrite))
	_, err := f.Write([]byte("should not land on disk"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fi, err := os.Stat(name)
	require.NoError(t, err)
	assert.EqualValues(t, 0, fi.Size())
}

func TestCloseTruncatesPastPreallocationWatermark(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "c.bin")

	f := Create(Config{})
	require.NoError(t, f.Open(name, Write|Create))
	_, err := f.Write([]byte("x"), 0)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	fi, err := os.Stat(name)
	require.NoError(t, err)
	assert.EqualValues(t, 1, fi.Size())
}

func TestMissingParentDirIsCreatedOnWriteOpen(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "nested", "deep", "d.bin")

	f := Create(Config{})
	require.NoError(t, f.Open(name, Write|Create))
	require.NoError(t, f.Close())

	_, err := os.Stat(name)
	require.NoError(t, err)
}

func TestReadPastEOFReturnsEOF(t *testing.T) {
	dir := t.TempDir()
	name := filepath.Join(dir, "e.bin")
	require.NoError(t, os.WriteFile(name, []byte("ab"), 0o644))

	f := Create(Config{})
	require.NoError(t, f.Open(name, Read))
	defer f.Close()

	buf := make([]byte, 4)
	n, rc, err := f.Read(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, OK, rc)
	assert.Equal(t, "ab", string(buf[:n]))

	n, rc, err = f.Read(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, EOF, rc)
	assert.Equal(t, 0, n)
}

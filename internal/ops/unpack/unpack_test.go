package unpack_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/ops/pack"
	"github.com/stsaz/fcom/internal/ops/unpack"
)

func TestUnpackZipListPrintsMemberTable(t *testing.T) {
	src := t.TempDir()
	mtime := time.Date(2024, 3, 4, 5, 6, 0, 0, time.UTC)
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello"), 0o644))
	require.NoError(t, os.Chtimes(filepath.Join(src, "a.txt"), mtime, mtime))

	archivePath := filepath.Join(t.TempDir(), "out.zip")
	d := opdesc.New("pack")
	d.Inputs = []string{filepath.Join(src, "a.txt")}
	d.Output = archivePath
	d.HasOutput = true
	require.NoError(t, pack.Run(d, ""))

	ud := opdesc.New("unpack")
	ud.Inputs = []string{archivePath}
	var buf bytes.Buffer
	require.NoError(t, unpack.Run(ud, &buf, "", true))

	assert.Contains(t, buf.String(), "           5  2024-03-04 05:06:00  a.txt")
}

func TestUnpackMemberFilterSkipsUnlistedEntries(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "keep.txt"), []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "drop.txt"), []byte("d"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "out.tar")
	d := opdesc.New("pack")
	d.Inputs = []string{filepath.Join(src, "keep.txt"), filepath.Join(src, "drop.txt")}
	d.Output = archivePath
	d.HasOutput = true
	require.NoError(t, pack.Run(d, ""))

	restored := t.TempDir()
	ud := opdesc.New("unpack")
	ud.Inputs = []string{archivePath}
	ud.Output = restored
	ud.HasOutput = true
	ud.Members = []string{"keep.txt"}
	require.NoError(t, unpack.Run(ud, os.Stdout, "", false))

	_, err := os.Stat(filepath.Join(restored, "keep.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(restored, "drop.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestClassifyBareCompressorHasNoContainer(t *testing.T) {
	container, compressor, stem, ok := unpack.Classify("notes.txt.gz", "")
	require.True(t, ok)
	assert.Equal(t, "", container)
	assert.Equal(t, "gzip", compressor)
	assert.Equal(t, "notes.txt", stem)
}

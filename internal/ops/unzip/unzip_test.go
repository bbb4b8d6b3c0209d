package unzip_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/ops/unpack"
	"github.com/stsaz/fcom/internal/ops/unzip"
	zipop "github.com/stsaz/fcom/internal/ops/zip"
)

// TestUnzipListIgnoresExtension packs into a file with a non-.zip name
// (forceContainer bypasses extension sniffing the same way at unzip
// time), then lists it with unzip --list.
func TestUnzipListIgnoresExtension(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "note.txt"), []byte("abc"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "a.bin")
	zd := opdesc.New("zip")
	zd.Inputs = []string{filepath.Join(src, "note.txt")}
	zd.Output = archivePath
	zd.HasOutput = true
	zop := &zipop.Op{}
	require.NoError(t, zop.Create(zd))
	require.NoError(t, zop.Run())

	ud := opdesc.New("unzip")
	ud.Inputs = []string{archivePath}
	ud.List = true
	uop := &unzip.Op{}
	require.NoError(t, uop.Create(ud))

	r, w, err := os.Pipe()
	require.NoError(t, err)
	stdout := os.Stdout
	os.Stdout = w
	runErr := uop.Run()
	os.Stdout = stdout
	w.Close()
	require.NoError(t, runErr)

	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "note.txt")
}

// TestUnzipMemberFilter exercises unpack.Run directly with a forced
// "zip" container and a member filter, the same path unzip.Op.Run
// drives, to avoid redirecting os.Stdout.
func TestUnzipMemberFilter(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "keep.txt"), []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(src, "drop.txt"), []byte("d"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "a.zip")
	zd := opdesc.New("zip")
	zd.Inputs = []string{filepath.Join(src, "keep.txt"), filepath.Join(src, "drop.txt")}
	zd.Output = archivePath
	zd.HasOutput = true
	zop := &zipop.Op{}
	require.NoError(t, zop.Create(zd))
	require.NoError(t, zop.Run())

	restored := t.TempDir()
	ud := opdesc.New("unzip")
	ud.Inputs = []string{archivePath}
	ud.Output = restored
	ud.HasOutput = true
	ud.Members = []string{"keep.txt"}
	require.NoError(t, unpack.Run(ud, io.Discard, "zip", false))

	_, err := os.Stat(filepath.Join(restored, "keep.txt"))
	assert.NoError(t, err)
	_, err = os.Stat(filepath.Join(restored, "drop.txt"))
	assert.True(t, os.IsNotExist(err))
}

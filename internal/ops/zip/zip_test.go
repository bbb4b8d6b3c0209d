package zip_test

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
	"github.com/stsaz/fcom/internal/ops/unpack"
	zipop "github.com/stsaz/fcom/internal/ops/zip"
)

// TestZipMethodZstdRoundTrip mirrors spec.md §8 scenario 3:
// `fcom zip dir1 dir2 -o a.zip --method zstd --level 10`, followed by
// an unzip that recovers the original bytes.
func TestZipMethodZstdRoundTrip(t *testing.T) {
	dir1 := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir1, "one.txt"), []byte("zstd-in-zip-payload"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "a.notanextension")
	d := opdesc.New("zip")
	d.Inputs = []string{dir1}
	d.Output = archivePath
	d.HasOutput = true
	d.Method = "zstd"
	d.Level = 10

	op := &zipop.Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	restored := t.TempDir()
	ud := opdesc.New("unpack")
	ud.Inputs = []string{archivePath}
	ud.Output = restored
	ud.HasOutput = true
	require.NoError(t, unpack.Run(ud, &bytes.Buffer{}, "zip", false))

	got, err := os.ReadFile(filepath.Join(restored, filepath.Base(dir1), "one.txt"))
	require.NoError(t, err)
	assert.Equal(t, "zstd-in-zip-payload", string(got))
}

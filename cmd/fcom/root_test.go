package main

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// captureStdout redirects os.Stdout for the duration of fn, the same
// os.Pipe approach internal/ops/unzip's test uses for operations that
// always write to os.Stdout directly rather than through cobra's own
// output buffer.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	r, w, err := os.Pipe()
	require.NoError(t, err)
	saved := os.Stdout
	os.Stdout = w
	fn()
	os.Stdout = saved
	require.NoError(t, w.Close())
	var buf bytes.Buffer
	_, err = io.Copy(&buf, r)
	require.NoError(t, err)
	return buf.String()
}

func TestCLIPackThenUnpackRoundTrip(t *testing.T) {
	src := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(src, "a.txt"), []byte("hello-cli"), 0o644))

	archivePath := filepath.Join(t.TempDir(), "out.tar.gz")
	rootCmd.SetArgs([]string{"pack", src, "-o", archivePath, "-f"})
	require.NoError(t, rootCmd.Execute())

	restored := t.TempDir()
	rootCmd.SetArgs([]string{"unpack", archivePath, "-o", restored, "-f"})
	require.NoError(t, rootCmd.Execute())

	got, err := os.ReadFile(filepath.Join(restored, filepath.Base(src), "a.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello-cli", string(got))
}

func TestCLITextcountReportsLineCount(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lines.txt")
	require.NoError(t, os.WriteFile(path, []byte("foo\nbar\n"), 0o644))

	out := captureStdout(t, func() {
		rootCmd.SetArgs([]string{"textcount", path})
		require.NoError(t, rootCmd.Execute())
	})
	// "foo\nbar\n": size=8, lines=2, non-empty=2 (100%), max-line-width=3.
	assert.Contains(t, out, "         8          2          2(100%)          3 "+path)
}

func TestCLIUnknownOperationErrors(t *testing.T) {
	rootCmd.SetArgs([]string{"no-such-operation"})
	assert.Error(t, rootCmd.Execute())
}

package move

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
)

func TestMoveSameFilesystemRename(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("hello"), 0o644))

	d := opdesc.New("move")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestMoveRefusesExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	d := opdesc.New("move")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	err := op.Run()
	require.Error(t, err)

	_, err = os.Stat(src)
	require.NoError(t, err, "source must survive a rejected move")

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

func TestMoveOverwriteReplacesDestination(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.txt")
	dst := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	d := opdesc.New("move")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true
	d.Overwrite = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	_, err := os.Stat(src)
	assert.True(t, os.IsNotExist(err))

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "new", string(got))
}

func TestMoveCreateRequiresSingleInputAndOutput(t *testing.T) {
	op := &Op{}
	assert.Error(t, op.Create(opdesc.New("move")))

	d := opdesc.New("move")
	d.Inputs = []string{"a", "b"}
	d.HasOutput = true
	d.Output = "c"
	assert.Error(t, op.Create(d))
}

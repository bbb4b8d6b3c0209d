package trash

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
)

func TestRemovePermanentlyFile(t *testing.T) {
	dir := t.TempDir()
	f := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(f, []byte("x"), 0o644))

	require.NoError(t, removePermanently(f))

	_, err := os.Stat(f)
	assert.True(t, os.IsNotExist(err))
}

func TestRemovePermanentlyDir(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "d")
	require.NoError(t, os.MkdirAll(filepath.Join(sub, "nested"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(sub, "nested", "f.txt"), []byte("x"), 0o644))

	require.NoError(t, removePermanently(sub))

	_, err := os.Stat(sub)
	assert.True(t, os.IsNotExist(err))
}

func TestRemovePermanentlyMissingPathErrors(t *testing.T) {
	dir := t.TempDir()
	err := removePermanently(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestCreateRequiresAtLeastOneInput(t *testing.T) {
	op := &Op{}
	assert.Error(t, op.Create(opdesc.New("trash")))
}

func TestRemovePermanentlyRemovesEveryInput(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.txt")
	b := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(a, []byte("1"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("2"), 0o644))

	d := opdesc.New("trash")
	d.Inputs = []string{a, b}
	op := &Op{}
	require.NoError(t, op.Create(d))

	for _, p := range d.Inputs {
		require.NoError(t, removePermanently(p))
	}

	_, err := os.Stat(a)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(b)
	assert.True(t, os.IsNotExist(err))
}

func TestRunErrorsOnMissingInput(t *testing.T) {
	dir := t.TempDir()
	d := opdesc.New("trash")
	d.Inputs = []string{filepath.Join(dir, "missing")}
	op := &Op{}
	require.NoError(t, op.Create(d))
	assert.Error(t, op.Run())
}

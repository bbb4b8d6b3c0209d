package opmgr

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
)

func makeTree(t *testing.T) string {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("b"), 0o644))
	return dir
}

func drain(t *testing.T, it *Iterator) []string {
	var got []string
	for {
		name, isDir, rc, err := it.Next()
		require.NoError(t, err)
		if rc == IterNoMore {
			break
		}
		got = append(got, name)
		if isDir {
			require.NoError(t, it.AttachDir(name))
		}
	}
	return got
}

func TestDepthFirstRecursion(t *testing.T) {
	dir := makeTree(t)
	d := opdesc.New("test")
	d.Inputs = []string{dir}
	it := NewIterator(d)

	got := drain(t, it)
	require.Len(t, got, 4)
	assert.Equal(t, dir, got[0])
	assert.Contains(t, got, filepath.Join(dir, "a.txt"))
	assert.Contains(t, got, filepath.Join(dir, "sub"))
	assert.Contains(t, got, filepath.Join(dir, "sub", "b.txt"))
}

func TestDirFirstOrdersSiblingsBeforeDescending(t *testing.T) {
	dir := makeTree(t)
	d := opdesc.New("test")
	d.Inputs = []string{dir}
	d.DirFirst = true
	it := NewIterator(d)

	got := drain(t, it)
	require.Len(t, got, 4)
	// a.txt (a file sibling of sub) must be yielded before sub's own
	// contents are entered, though sub itself may appear before or
	// after a.txt depending on scan order.
	idxA := indexOf(got, filepath.Join(dir, "a.txt"))
	idxB := indexOf(got, filepath.Join(dir, "sub", "b.txt"))
	assert.Greater(t, idxB, idxA)
}

func indexOf(ss []string, s string) int {
	for i, v := range ss {
		if v == s {
			return i
		}
	}
	return -1
}

func TestAtFileExpansion(t *testing.T) {
	dir := t.TempDir()
	f1 := filepath.Join(dir, "f1.txt")
	f2 := filepath.Join(dir, "f2.txt")
	require.NoError(t, os.WriteFile(f1, nil, 0o644))
	require.NoError(t, os.WriteFile(f2, nil, 0o644))
	listFile := filepath.Join(dir, "list.txt")
	require.NoError(t, os.WriteFile(listFile, []byte(f1+"\n"+f2+"\n"), 0o644))

	d := opdesc.New("test")
	d.Inputs = []string{"@" + listFile}
	it := NewIterator(d)
	got := drain(t, it)
	assert.ElementsMatch(t, []string{f1, f2}, got)
}

func TestInputAllowedExcludeTakesPriority(t *testing.T) {
	d := opdesc.New("test")
	d.Include = []string{"*.txt"}
	d.Exclude = []string{"secret*"}
	assert.Equal(t, Allowed, InputAllowed(d, "a.txt", false))
	assert.Equal(t, Denied, InputAllowed(d, "secret.txt", false))
	assert.Equal(t, Denied, InputAllowed(d, "a.bin", false))
	assert.Equal(t, AllowedAsDir, InputAllowed(d, "somedir", true))
}

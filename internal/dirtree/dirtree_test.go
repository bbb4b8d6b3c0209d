package dirtree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	dt := New()
	assert.Equal(t, "", dt.String())
}

func TestParentDir(t *testing.T) {
	assert.Equal(t, "root/parent", parentDir("root/parent/file"))
	assert.Equal(t, "parent", parentDir("parent/file"))
	assert.Equal(t, "", parentDir("parent"))
	assert.Equal(t, "", parentDir(""))
}

func TestDirTreeAdd(t *testing.T) {
	dt := New()
	dt.Add("potato", Entry{Name: "potato"})
	assert.Equal(t, "/\n  potato\n", dt.String())

	dt.Add("dir/subdir/sausage", Entry{Name: "sausage"})
	assert.Equal(t, "/\n  potato\ndir/subdir/\n  sausage\n", dt.String())
}

func TestDirTreeAddDir(t *testing.T) {
	dt := New()
	dt.AddDir("dir/subdir", Entry{Name: "subdir"})
	assert.Equal(t, "dir/\n  subdir/\n", dt.String())
}

func TestDirTreeFind(t *testing.T) {
	dt := New()
	parent, e := dt.Find("dir/subdir/sausage")
	assert.Equal(t, "dir/subdir", parent)
	assert.Nil(t, e)

	dt.Add("dir/subdir/sausage", Entry{Name: "sausage", Size: 5})
	parent, e = dt.Find("dir/subdir/sausage")
	assert.Equal(t, "dir/subdir", parent)
	require.NotNil(t, e)
	assert.Equal(t, int64(5), e.Size)
}

func TestDirTreeCheckParents(t *testing.T) {
	dt := New()
	dt.Add("dir/subdir/sausage", Entry{Name: "sausage"})
	dt.Add("dir/subdir2/sausage2", Entry{Name: "sausage2"})

	dt.CheckParents("")
	dt.Sort()

	assert.Equal(t, `/
  dir/
dir/
  subdir/
  subdir2/
dir/subdir/
  sausage
dir/subdir2/
  sausage2
`, dt.String())
}

func TestDirTreeSort(t *testing.T) {
	dt := New()
	dt.Add("dir/subdir/B", Entry{Name: "B"})
	dt.Add("dir/subdir/A", Entry{Name: "A"})
	assert.Equal(t, "dir/subdir/\n  B\n  A\n", dt.String())

	dt.Sort()
	assert.Equal(t, "dir/subdir/\n  A\n  B\n", dt.String())
}

func TestDirTreeDirs(t *testing.T) {
	dt := New()
	dt.Add("dir/subdir/sausage", Entry{Name: "sausage"})
	dt.Add("dir/subdir2/sausage2", Entry{Name: "sausage2"})
	dt.CheckParents("")

	assert.Equal(t, []string{"", "dir", "dir/subdir", "dir/subdir2"}, dt.Dirs())
}

func TestDirTreePrune(t *testing.T) {
	dt := New()
	dt.Add("file", Entry{Name: "file"})
	dt.Add("dir/subdir/sausage", Entry{Name: "sausage"})
	dt.Add("dir2/file", Entry{Name: "file"})
	dt.CheckParents("")

	err := dt.Prune(map[string]bool{"": true, "dir2": true})
	require.NoError(t, err)

	dirs := dt.Dirs()
	assert.Contains(t, dirs, "dir2")
	assert.NotContains(t, dirs, "dir")
	assert.NotContains(t, dirs, "dir/subdir")
}

func TestScan(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("hi"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.txt"), []byte("bye"), 0o644))

	tr, err := Scan(dir, ScanOptions{})
	require.NoError(t, err)

	_, e := tr.Find("a.txt")
	require.NotNil(t, e)
	assert.Equal(t, int64(2), e.Size)

	_, e = tr.Find("sub/b.txt")
	require.NotNil(t, e)
	assert.Equal(t, int64(3), e.Size)

	assert.Contains(t, tr.Dirs(), "sub")
}

package fstest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeTreeAndSelfCompare(t *testing.T) {
	dir := t.TempDir()
	tr := MakeTree(t, dir, []Item{
		{Path: "a.txt", Content: "hello"},
		{Path: "sub/b.txt", Content: "world"},
	})

	_, e := tr.Find("a.txt")
	require.NotNil(t, e)
	assert.EqualValues(t, 5, e.Size)

	_, e = tr.Find("sub/b.txt")
	require.NotNil(t, e)
	assert.EqualValues(t, 5, e.Size)

	other := MakeTree(t, filepath.Join(t.TempDir(), "copy"), []Item{
		{Path: "a.txt", Content: "hello"},
		{Path: "sub/b.txt", Content: "world"},
	})
	AssertTreesEqual(t, tr, other)
}

func TestTimeParses(t *testing.T) {
	ts := Time("2026-01-02T03:04:05Z")
	assert.Equal(t, 2026, ts.Year())
}

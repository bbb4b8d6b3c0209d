package sync

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/fstest"
	"github.com/stsaz/fcom/internal/opdesc"
	dsync "github.com/stsaz/fcom/internal/sync"
)

func writeFileAt(t *testing.T, path, content string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}

func TestSyncFourWayScenario(t *testing.T) {
	left := t.TempDir()
	right := t.TempDir()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	// Renamed: same content+size+mtime, different path on each side.
	writeFileAt(t, filepath.Join(left, "renamed-new.txt"), "same-bytes", base)
	writeFileAt(t, filepath.Join(right, "renamed-old.txt"), "same-bytes", base)

	// Modified: same path, different content/mtime.
	writeFileAt(t, filepath.Join(left, "modified.txt"), "left-version-longer", base.Add(time.Hour))
	writeFileAt(t, filepath.Join(right, "modified.txt"), "right-ver", base)

	// Left-only (ADD).
	writeFileAt(t, filepath.Join(left, "only-left.txt"), "l", base)

	// Right-only (DEL). Its size differs from only-left.txt's, so the
	// default metadata-only rename matching does not pair the two.
	writeFileAt(t, filepath.Join(right, "only-right.txt"), "rr", base)

	d := opdesc.New("sync")
	d.Inputs = []string{left}
	d.Output = right
	d.HasOutput = true

	var buf bytes.Buffer
	op := &Op{}
	require.NoError(t, op.Create(d))
	op.out = &buf

	require.NoError(t, op.Run())

	lines := splitNonEmptyLines(buf.String())
	require.Len(t, lines, 4)

	labels := map[string]int{}
	for _, l := range lines {
		labels[l[:3]]++
	}
	assert.Equal(t, 1, labels["MOV"])
	assert.Equal(t, 1, labels["UPD"])
	assert.Equal(t, 1, labels["ADD"])
	assert.Equal(t, 1, labels["DEL"])

	// Verify the sync actions actually ran.
	_, err := os.Stat(filepath.Join(right, "renamed-new.txt"))
	assert.NoError(t, err, "moved file should exist at the new (left) path")
	_, err = os.Stat(filepath.Join(right, "renamed-old.txt"))
	assert.True(t, os.IsNotExist(err), "old path should be gone after rename")

	got, err := os.ReadFile(filepath.Join(right, "modified.txt"))
	require.NoError(t, err)
	assert.Equal(t, "left-version-longer", string(got))

	_, err = os.Stat(filepath.Join(right, "only-left.txt"))
	assert.NoError(t, err, "ADD should have copied the left-only file to the right")

	_, err = os.Stat(filepath.Join(right, "only-right.txt"))
	assert.True(t, os.IsNotExist(err), "DEL should have removed the right-only file")
}

func TestParseDiffMaskEmptyExcludesEqual(t *testing.T) {
	mask := parseDiffMask("")
	assert.NotZero(t, mask)
	assert.Zero(t, mask&dsync.Equal)
}

func TestParseDiffMaskExplicitList(t *testing.T) {
	mask := parseDiffMask("add,del")
	assert.True(t, mask&parseDiffMask("ADD") != 0)
	assert.True(t, mask&parseDiffMask("DEL") != 0)
}

// TestScanSelfIsAllEqual exercises the fstest helpers against a real
// on-disk tree (spec.md §8: "diff of scan L vs scan L yields exactly
// |L| EQ entries and zero of any other kind"), complementing
// internal/sync's own in-memory buildTree-based version of the same
// property.
func TestScanSelfIsAllEqual(t *testing.T) {
	dir := t.TempDir()
	items := []fstest.Item{
		{Path: "a.txt", Content: "aaa", MTime: fstest.Time("2024-01-01T00:00:00Z")},
		{Path: "sub/b.txt", Content: "bbb", MTime: fstest.Time("2024-01-02T00:00:00Z")},
	}
	left := fstest.MakeTree(t, dir, items)
	right := fstest.MakeTree(t, dir, items)
	fstest.AssertTreesEqual(t, left, right)
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if line := s[start:i]; line != "" {
				out = append(out, line)
			}
			start = i + 1
		}
	}
	return out
}

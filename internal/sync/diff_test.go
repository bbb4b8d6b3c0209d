package sync

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/dirtree"
)

func buildTree(entries map[string]dirtree.Entry) *dirtree.Tree {
	t := dirtree.New()
	for path, e := range entries {
		if e.IsDir {
			t.AddDir(path, e)
		} else {
			t.Add(path, e)
		}
	}
	t.CheckParents("")
	t.Sort()
	return t
}

func TestDiffSelfIsAllEqual(t *testing.T) {
	mt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	left := buildTree(map[string]dirtree.Entry{
		"a.txt":     {Name: "a.txt", Size: 3, MTime: mt},
		"sub/b.txt": {Name: "b.txt", Size: 4, MTime: mt},
	})
	right := buildTree(map[string]dirtree.Entry{
		"a.txt":     {Name: "a.txt", Size: 3, MTime: mt},
		"sub/b.txt": {Name: "b.txt", Size: 4, MTime: mt},
	})

	diff := Diff(left, right, Options{})
	eqCount := 0
	for _, e := range diff {
		require.Equal(t, Equal, e.Status&Kind)
		eqCount++
	}
	assert.Equal(t, 3, eqCount) // a.txt, sub (dir entry), sub/b.txt
}

func TestDiffFourWayScenario(t *testing.T) {
	mt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	mt2 := mt.Add(time.Hour)

	// moved.txt in L becomes renamed.txt in R (same metadata): MOVED.
	// changed.txt differs in size between L and R: NEQ (UPD).
	// onlyleft.txt exists only in L: ADD.
	// onlyright.txt exists only in R: DEL.
	left := buildTree(map[string]dirtree.Entry{
		"moved.txt":    {Name: "moved.txt", Size: 10, MTime: mt},
		"changed.txt":  {Name: "changed.txt", Size: 5, MTime: mt},
		"onlyleft.txt": {Name: "onlyleft.txt", Size: 1, MTime: mt},
	})
	right := buildTree(map[string]dirtree.Entry{
		"renamed.txt":   {Name: "renamed.txt", Size: 10, MTime: mt},
		"changed.txt":   {Name: "changed.txt", Size: 6, MTime: mt2},
		"onlyright.txt": {Name: "onlyright.txt", Size: 2, MTime: mt2},
	})

	diff := Diff(left, right, Options{}) // default RenameMode (MatchMetadataOnly) detects the basename change

	var mov, upd, add, del int
	for _, e := range diff {
		if e.IsDir || e.Status&Skipped != 0 {
			continue
		}
		switch e.Label() {
		case "MOV":
			mov++
			assert.Equal(t, "moved.txt", e.LeftPath)
			assert.Equal(t, "renamed.txt", e.RightPath)
		case "UPD":
			upd++
		case "ADD":
			add++
		case "DEL":
			del++
		}
	}
	assert.Equal(t, 1, mov)
	assert.Equal(t, 1, upd)
	assert.Equal(t, 1, add)
	assert.Equal(t, 1, del)
}

func TestSnapshotRoundTrip(t *testing.T) {
	mt := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	tr := buildTree(map[string]dirtree.Entry{
		"a.txt":     {Name: "a.txt", Size: 3, MTime: mt, UnixAttr: 0o644, CRC32: 0xDEADBEEF, HasCRC32: true},
		"sub/b.txt": {Name: "b.txt", Size: 4, MTime: mt, UnixAttr: 0o755},
	})

	var buf bytes.Buffer
	require.NoError(t, WriteSnapshot(&buf, tr))

	got, err := ReadSnapshot(&buf)
	require.NoError(t, err)

	_, e := got.Find("a.txt")
	require.NotNil(t, e)
	assert.Equal(t, int64(3), e.Size)
	assert.Equal(t, uint32(0xDEADBEEF), e.CRC32)
	assert.True(t, e.MTime.Equal(mt))

	_, e = got.Find("sub/b.txt")
	require.NotNil(t, e)
	assert.Equal(t, int64(4), e.Size)

	// Round-trip diff against the original tree must be an EQ-only scan.
	diff := Diff(tr, got, Options{})
	for _, e := range diff {
		assert.Equal(t, Equal, e.Status&Kind)
	}
}

func TestSnapshotRejectsBadVersion(t *testing.T) {
	bad := `b "" {
  v 2
}
`
	_, err := ReadSnapshot(bytes.NewBufferString(bad))
	require.Error(t, err)
}

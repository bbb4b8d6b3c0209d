package stats

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBytesAndErrors(t *testing.T) {
	s := New()
	s.Bytes(100)
	s.Bytes(50)
	s.Error()
	out := s.String()
	assert.Contains(t, out, "Transferred:          150 Bytes")
	assert.Contains(t, out, "Errors:                 1")
}

func TestCheckingLifecycle(t *testing.T) {
	s := New()
	s.Checking("a.txt")
	s.Checking("b.txt")
	assert.Contains(t, s.String(), "Checking:")
	s.DoneChecking("a.txt")
	out := s.String()
	assert.Contains(t, out, "Checks:                 1")
	assert.Contains(t, out, "b.txt")
	assert.False(t, strings.Contains(extractCheckingLine(out), "a.txt"))
}

func extractCheckingLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, "Checking:") {
			return line
		}
	}
	return ""
}

func TestTransferringLifecycle(t *testing.T) {
	s := New()
	s.Transferring("x.bin")
	s.DoneTransferring("x.bin")
	out := s.String()
	assert.Contains(t, out, "Transfers:              1")
	assert.NotContains(t, out, "Transferring:")
}

func TestSyncCounts(t *testing.T) {
	s := New()
	const leftOnly = uint32(1)
	const moved = uint32(16)
	s.SetSyncCount(leftOnly, 3)
	assert.EqualValues(t, 3, s.SyncCount(leftOnly))

	// a rename match folds one LeftOnly row into Moved.
	s.AdjustSyncCount(leftOnly, -1)
	s.AdjustSyncCount(moved, 1)
	assert.EqualValues(t, 2, s.SyncCount(leftOnly))
	assert.EqualValues(t, 1, s.SyncCount(moved))
}

func TestAccountTalliesBytes(t *testing.T) {
	s := New()
	rc := io.NopCloser(strings.NewReader("hello world"))
	acc := NewAccount(s, rc)
	buf := make([]byte, 5)
	n, err := acc.Read(buf)
	require.NoError(t, err)
	require.Equal(t, 5, n)
	assert.Contains(t, s.String(), "Transferred:            5 Bytes")
	require.NoError(t, acc.Close())
}

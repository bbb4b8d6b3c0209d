package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
)

type fakeOp struct{ created bool }

func (f *fakeOp) Create(d *opdesc.Desc) error { f.created = true; return nil }
func (f *fakeOp) Run() error                  { return nil }
func (f *fakeOp) Signal(sig int) error        { return nil }
func (f *fakeOp) Close() error                { return nil }
func (f *fakeOp) Help() string                { return "fake" }

func TestRegisterAndLookup(t *testing.T) {
	RegisterOp("fake-test-op", func() Operation { return &fakeOp{} })
	f, ok := Lookup("fake-test-op")
	require.True(t, ok)
	op := f()
	require.NoError(t, op.Create(opdesc.New("fake-test-op")))
	assert.True(t, op.(*fakeOp).created)
}

func TestResolveExtLongestSuffixWins(t *testing.T) {
	RegisterExt("gz", "gzip")
	RegisterExt("tar.gz", "tar+gzip")

	codec, stem, ok := ResolveExt("archive.tar.gz")
	require.True(t, ok)
	assert.Equal(t, "tar+gzip", codec)
	assert.Equal(t, "archive", stem)

	codec, stem, ok = ResolveExt("file.gz")
	require.True(t, ok)
	assert.Equal(t, "gzip", codec)
	assert.Equal(t, "file", stem)

	_, _, ok = ResolveExt("file.unknown")
	assert.False(t, ok)
}

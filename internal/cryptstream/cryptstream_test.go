package cryptstream

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/pipeline"
)

func TestDeriveKeyIVDeterministic(t *testing.T) {
	k1, iv1 := DeriveKeyIV("hunter2")
	k2, iv2 := DeriveKeyIV("hunter2")
	assert.Equal(t, k1, k2)
	assert.Equal(t, iv1, iv2)

	k3, _ := DeriveKeyIV("different")
	assert.NotEqual(t, k1, k3)
}

func TestEncryptDecryptRoundTrip(t *testing.T) {
	plain := []byte("the quick brown fox jumps over the lazy dog, 1234567890")

	encState, err := NewEncrypt("hunter2").Open(nil)
	require.NoError(t, err)
	in := &pipeline.Slice{Data: append([]byte(nil), plain...)}
	out := &pipeline.Slice{}
	rc := encState.Process(in, out, pipeline.Forward)
	require.Equal(t, pipeline.RCData, rc)
	require.True(t, in.Empty())
	cipherText := append([]byte(nil), out.Data...)
	assert.NotEqual(t, plain, cipherText)
	require.NoError(t, encState.Close())

	decState, err := NewDecrypt("hunter2").Open(nil)
	require.NoError(t, err)
	in2 := &pipeline.Slice{Data: cipherText}
	out2 := &pipeline.Slice{}
	rc = decState.Process(in2, out2, pipeline.Forward)
	require.Equal(t, pipeline.RCData, rc)
	assert.Equal(t, plain, out2.Data)
	require.NoError(t, decState.Close())
}

func TestEncryptStateSignalsDoneOnEmptyFirst(t *testing.T) {
	state, err := NewEncrypt("pw").Open(nil)
	require.NoError(t, err)
	in := &pipeline.Slice{}
	out := &pipeline.Slice{}
	rc := state.Process(in, out, pipeline.First)
	assert.Equal(t, pipeline.RCDone, rc)
}

func TestEncryptStateAsksForMoreWhenEmptyNotFirst(t *testing.T) {
	state, err := NewEncrypt("pw").Open(nil)
	require.NoError(t, err)
	in := &pipeline.Slice{}
	out := &pipeline.Slice{}
	rc := state.Process(in, out, pipeline.Forward)
	assert.Equal(t, pipeline.RCMore, rc)
}

func TestMD5StagePassesThroughAndHashes(t *testing.T) {
	stage, result := NewMD5()
	state, err := stage.Open(nil)
	require.NoError(t, err)

	chunks := [][]byte{[]byte("hello, "), []byte("world")}
	for _, c := range chunks {
		in := &pipeline.Slice{Data: append([]byte(nil), c...)}
		out := &pipeline.Slice{}
		rc := state.Process(in, out, pipeline.Forward)
		require.Equal(t, pipeline.RCData, rc)
		assert.Equal(t, c, out.Data)
	}

	assert.False(t, result.Valid)
	in := &pipeline.Slice{}
	out := &pipeline.Slice{}
	rc := state.Process(in, out, pipeline.First)
	require.Equal(t, pipeline.RCDone, rc)
	require.True(t, result.Valid)

	// md5("hello, world")
	want := [16]byte{
		0xe4, 0xd7, 0xf1, 0xb4, 0xed, 0x2e, 0x42, 0xd1,
		0x58, 0x98, 0xf4, 0xb2, 0x7b, 0x01, 0x9d, 0xa4,
	}
	assert.Equal(t, want, result.Sum)
	require.NoError(t, state.Close())
}

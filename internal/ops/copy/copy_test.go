package copy

import (
	"crypto/md5"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stsaz/fcom/internal/opdesc"
)

func TestCopyPlainRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.bin")
	dst := filepath.Join(dir, "b.bin")
	content := make([]byte, 200*1024)
	for i := range content {
		content[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(src, content, 0o644))

	d := opdesc.New("copy")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = os.Stat(dst + shadowSuffix)
	assert.True(t, os.IsNotExist(err))
}

func TestCopyEncryptDecryptRoundTrip(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.bin")
	enc := filepath.Join(dir, "b.bin")
	dec := filepath.Join(dir, "c.bin")
	content := []byte("the quick brown fox jumps over the lazy dog")
	require.NoError(t, os.WriteFile(src, content, 0o644))

	d1 := opdesc.New("copy")
	d1.Inputs = []string{src}
	d1.Output = enc
	d1.HasOutput = true
	d1.Encrypt = true
	d1.Password = "pw"
	op1 := &Op{}
	require.NoError(t, op1.Create(d1))
	require.NoError(t, op1.Run())

	encBytes, err := os.ReadFile(enc)
	require.NoError(t, err)
	assert.NotEqual(t, content, encBytes)

	d2 := opdesc.New("copy")
	d2.Inputs = []string{enc}
	d2.Output = dec
	d2.HasOutput = true
	d2.Decrypt = true
	d2.Password = "pw"
	op2 := &Op{}
	require.NoError(t, op2.Create(d2))
	require.NoError(t, op2.Run())

	decBytes, err := os.ReadFile(dec)
	require.NoError(t, err)
	assert.Equal(t, content, decBytes)
}

func TestCopyVerifySucceeds(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.bin")
	dst := filepath.Join(dir, "b.bin")
	content := make([]byte, 10*1024*1024)
	for i := range content {
		content[i] = byte(i * 7)
	}
	require.NoError(t, os.WriteFile(src, content, 0o644))

	d := opdesc.New("copy")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true
	d.Verify = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	require.NoError(t, op.Run())

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, md5.Sum(content), md5.Sum(got))
}

func TestCopyRefusesExistingWithoutOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.bin")
	dst := filepath.Join(dir, "b.bin")
	require.NoError(t, os.WriteFile(src, []byte("new"), 0o644))
	require.NoError(t, os.WriteFile(dst, []byte("old"), 0o644))

	d := opdesc.New("copy")
	d.Inputs = []string{src}
	d.Output = dst
	d.HasOutput = true

	op := &Op{}
	require.NoError(t, op.Create(d))
	err := op.Run()
	require.Error(t, err)

	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "old", string(got))
}

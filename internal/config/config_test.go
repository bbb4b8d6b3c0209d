package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BurntSushi/toml"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	assert.Equal(t, 1, c.Workers)
	assert.Empty(t, c.Codepage)
	assert.NotNil(t, c.Defaults)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	c := DefaultConfig()
	c.Codepage = "utf-8"
	c.Workers = 4
	c.SetOperationDefaults("copy", Default{Overwrite: true, BufferSize: 131072})

	dir := t.TempDir()
	path := filepath.Join(dir, "fcom.toml")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, toml.NewEncoder(f).Encode(c))
	require.NoError(t, f.Close())

	var got Config
	_, err = toml.DecodeFile(path, &got)
	require.NoError(t, err)

	assert.Equal(t, "utf-8", got.Codepage)
	assert.Equal(t, 4, got.Workers)
	d := got.OperationDefaults("copy")
	assert.True(t, d.Overwrite)
	assert.EqualValues(t, 131072, d.BufferSize)
}

func TestOperationDefaultsMissingIsZeroValue(t *testing.T) {
	c := DefaultConfig()
	d := c.OperationDefaults("nonexistent")
	assert.Equal(t, Default{}, d)
}

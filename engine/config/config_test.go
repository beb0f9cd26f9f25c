package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geopool.toml")
	content := `
[log]
level = "warn"

[pool]
enabled = false
vertex_page_elements = 1024
index_page_bytes = 8192
cache_purge_interval = 16

[jobs]
workers = 2
queue_size = 32
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.False(t, cfg.Pool.Enabled)
	assert.Equal(t, 1024, cfg.Pool.VertexPageElements)
	assert.Equal(t, 8192, cfg.Pool.IndexPageBytes)
	assert.Equal(t, 16, cfg.Pool.CachePurgeInterval)
	assert.Equal(t, 2, cfg.Jobs.Workers)
	assert.Equal(t, 32, cfg.Jobs.QueueSize)
}

func TestLoadPartialFileKeepsRemainingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geopool.toml")
	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"error\"\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Log.Level)
	assert.Equal(t, Default().Pool, cfg.Pool)
	assert.Equal(t, Default().Jobs, cfg.Jobs)
}

func TestLoadMalformedFileFails(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geopool.toml")
	require.NoError(t, os.WriteFile(path, []byte("[pool\nenabled ="), 0o644))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestSanitizeClampsBadValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geopool.toml")
	content := `
[pool]
vertex_page_elements = -1
index_page_bytes = 0
cache_purge_interval = -5

[jobs]
workers = 0
queue_size = -1
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1<<16, cfg.Pool.VertexPageElements)
	assert.Equal(t, 1<<20, cfg.Pool.IndexPageBytes)
	assert.Equal(t, 128, cfg.Pool.CachePurgeInterval)
	assert.Equal(t, 1, cfg.Jobs.Workers)
	assert.Equal(t, 0, cfg.Jobs.QueueSize)
}

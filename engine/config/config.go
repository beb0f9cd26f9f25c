package config

import (
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/spaghettifunk/geopool/engine/core"
	"github.com/spaghettifunk/geopool/engine/math"
)

// Config is the TOML-backed configuration for the geometry pool and the
// surrounding frame driver.
type Config struct {
	Log  LogConfig  `toml:"log"`
	Pool PoolConfig `toml:"pool"`
	Jobs JobsConfig `toml:"jobs"`
}

type LogConfig struct {
	Level string `toml:"level"`
}

type PoolConfig struct {
	// Enabled toggles suballocation into shared pooled buffers. When false
	// every record gets standalone buffers.
	Enabled bool `toml:"enabled"`
	// VertexPageElements is the per-page element capacity of pooled vertex buffers.
	VertexPageElements int `toml:"vertex_page_elements"`
	// IndexPageBytes is the byte capacity of pooled index buffers.
	IndexPageBytes int `toml:"index_page_bytes"`
	// CachePurgeInterval is the number of cache lookups between purge scans.
	CachePurgeInterval int `toml:"cache_purge_interval"`
}

type JobsConfig struct {
	Workers   int `toml:"workers"`
	QueueSize int `toml:"queue_size"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Log: LogConfig{Level: "debug"},
		Pool: PoolConfig{
			Enabled:            true,
			VertexPageElements: 1 << 16,
			IndexPageBytes:     1 << 20,
			CachePurgeInterval: 128,
		},
		Jobs: JobsConfig{Workers: 4, QueueSize: 128},
	}
}

// Load reads a TOML config file, falling back to defaults when the file
// does not exist. A malformed file is an error; a missing one is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			core.LogDebug("config file %s not found, using defaults", path)
			return cfg, nil
		}
		return nil, err
	}

	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	cfg.sanitize()
	return cfg, nil
}

func (c *Config) sanitize() {
	if c.Pool.VertexPageElements <= 0 {
		core.LogWarn("vertex_page_elements must be positive, using default")
		c.Pool.VertexPageElements = 1 << 16
	}
	if c.Pool.IndexPageBytes <= 0 {
		core.LogWarn("index_page_bytes must be positive, using default")
		c.Pool.IndexPageBytes = 1 << 20
	}
	if c.Pool.CachePurgeInterval <= 0 {
		c.Pool.CachePurgeInterval = 128
	}
	c.Jobs.Workers = math.Max(c.Jobs.Workers, 1)
	c.Jobs.QueueSize = math.Max(c.Jobs.QueueSize, 0)
}

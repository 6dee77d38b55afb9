// Package config loads engine configuration (storage, buffer pool, and a
// retained-but-unused server stanza) via viper, the way the rest of this
// codebase's ambient stack is wired.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/arlobytes/pagedb/internal/bufferpool"
)

// StorageConfig controls the on-disk page file.
type StorageConfig struct {
	DataDir  string `mapstructure:"data_dir"`
	PageSize int    `mapstructure:"page_size"`
}

// BufferPoolConfig controls the cache sitting on top of the page file.
type BufferPoolConfig struct {
	Capacity int    `mapstructure:"capacity"`
	Strategy string `mapstructure:"strategy"`
}

// ServerConfig is retained from the ambient stack this config layer was
// adapted from; the CLI in cmd/pagedb does not run a network server, but
// the stanza is kept so configuration files can carry it forward without
// a parse error.
type ServerConfig struct {
	Port  int  `mapstructure:"port"`
	Debug bool `mapstructure:"debug"`
}

// Config is the top-level configuration document.
type Config struct {
	Storage    StorageConfig    `mapstructure:"storage"`
	BufferPool BufferPoolConfig `mapstructure:"bufferpool"`
	Server     ServerConfig     `mapstructure:"server"`
}

func defaults() Config {
	return Config{
		Storage: StorageConfig{
			DataDir:  ".",
			PageSize: 4096,
		},
		BufferPool: BufferPoolConfig{
			Capacity: bufferpool.DefaultCapacity,
			Strategy: "fifo",
		},
	}
}

// Load reads configuration from path (YAML) into a Config pre-populated
// with defaults. Replacement-strategy names are not validated here; they
// are checked later, when BufferPoolConfig.ParsedStrategy converts the name
// via bufferpool.ParseStrategy.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	cfg := defaults()
	v.SetDefault("storage.data_dir", cfg.Storage.DataDir)
	v.SetDefault("storage.page_size", cfg.Storage.PageSize)
	v.SetDefault("bufferpool.capacity", cfg.BufferPool.Capacity)
	v.SetDefault("bufferpool.strategy", cfg.BufferPool.Strategy)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal %s: %w", path, err)
	}
	return &cfg, nil
}

// ParsedStrategy parses the configured replacement-policy name into a
// bufferpool.Strategy, surfacing bufferpool.ErrInvalidArgs on an unknown
// name.
func (c BufferPoolConfig) ParsedStrategy() (bufferpool.Strategy, error) {
	return bufferpool.ParseStrategy(c.Strategy)
}

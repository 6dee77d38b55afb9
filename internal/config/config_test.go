package config

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arlobytes/pagedb/internal/bufferpool"
)

func TestLoad_FromYAML(t *testing.T) {
	cfg, err := Load("testdata/config.yaml")
	require.NoError(t, err)

	require.Equal(t, 4096, cfg.Storage.PageSize)
	require.Equal(t, 8, cfg.BufferPool.Capacity)
	require.Equal(t, "lru", cfg.BufferPool.Strategy)

	strategy, err := cfg.BufferPool.ParsedStrategy()
	require.NoError(t, err)
	require.Equal(t, bufferpool.LRU, strategy)
}

func TestLoad_UnknownStrategyRejectedByParsedStrategy(t *testing.T) {
	cfg := defaults()
	cfg.BufferPool.Strategy = "clock"

	_, err := cfg.BufferPool.ParsedStrategy()
	require.ErrorIs(t, err, bufferpool.ErrInvalidArgs)
}

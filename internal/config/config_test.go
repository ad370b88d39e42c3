// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/paper-radar/pkg/types"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New())
	require.NoError(t, err)

	assert.Equal(t, time.Second, cfg.Queue.MinDelay)
	assert.Equal(t, time.Second, cfg.Queue.JitterMax)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.PreDelay)
	assert.Equal(t, 3, cfg.Retry.MaxRetries)
	assert.Equal(t, 24*time.Hour, cfg.Cache.PersistentTTL)
	assert.Equal(t, types.CacheBackendFile, cfg.Cache.Backend)
	assert.Equal(t, "search_cache_", cfg.Cache.KeyPrefix)
	assert.Equal(t, 2, cfg.Sources.Slots)
	assert.True(t, cfg.Sources.EnableSemanticScholar)
	assert.True(t, cfg.Enrichment.Enabled)
	assert.Equal(t, 2*time.Second, cfg.Enrichment.InterTaskDelay)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.InDelta(t, 0.3, cfg.AI.Temperature, 1e-6)
}

func TestLoadFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "paper-radar.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
queue:
  min_delay: 250ms
sources:
  slots: 3
  enable_papers_with_code: false
cache:
  backend: memory
server:
  allowed_origins: ["https://radar.example"]
`), 0o644))
	t.Setenv("PAPER_RADAR_RETRY_MAX_RETRIES", "5")
	t.Setenv("PAPER_RADAR_AI_API_KEY", "sk-env")

	v := viper.New()
	v.SetConfigFile(path)
	require.NoError(t, v.ReadInConfig())

	cfg, err := Load(v)
	require.NoError(t, err)
	assert.Equal(t, 250*time.Millisecond, cfg.Queue.MinDelay)
	assert.Equal(t, 3, cfg.Sources.Slots)
	assert.False(t, cfg.Sources.EnablePapersWithCode)
	assert.Equal(t, types.CacheBackendMemory, cfg.Cache.Backend)
	assert.Equal(t, []string{"https://radar.example"}, cfg.Server.AllowedOrigins)
	assert.Equal(t, 5, cfg.Retry.MaxRetries)
	assert.Equal(t, "sk-env", cfg.AI.APIKey)
}

func TestValidate(t *testing.T) {
	base, err := Load(viper.New())
	require.NoError(t, err)

	tests := []struct {
		name   string
		mutate func(*types.Config)
		errMsg string
	}{
		{"unknown backend", func(c *types.Config) { c.Cache.Backend = "redis" }, "cache.backend"},
		{"minio without endpoint", func(c *types.Config) { c.Cache.Backend = types.CacheBackendMinio }, "cache.minio.endpoint"},
		{"unknown driver", func(c *types.Config) { c.Store.Driver = "mysql" }, "store.driver"},
		{"zero slots", func(c *types.Config) { c.Sources.Slots = 0 }, "sources.slots"},
		{"negative retries", func(c *types.Config) { c.Retry.MaxRetries = -1 }, "retry.max_retries"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base
			tt.mutate(&cfg)
			err := Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
	assert.NoError(t, Validate(base))
}

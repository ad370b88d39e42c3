// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config builds types.Config from viper: defaults first, then the
// YAML config file and PAPER_RADAR_* environment variables.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/pdiddy/paper-radar/pkg/types"
)

// EnvPrefix namespaces environment overrides, e.g. PAPER_RADAR_QUEUE_MIN_DELAY.
const EnvPrefix = "PAPER_RADAR"

// Name is the config file base name searched for by the CLI.
const Name = "paper-radar"

// SetDefaults registers the default value of every key so environment
// variables can override keys absent from the config file.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("http.timeout", 30*time.Second)
	v.SetDefault("http.user_agent", "paper-radar/0.1")

	v.SetDefault("queue.min_delay", time.Second)
	v.SetDefault("queue.jitter_max", time.Second)

	v.SetDefault("retry.pre_delay", 500*time.Millisecond)
	v.SetDefault("retry.base_delay", time.Second)
	v.SetDefault("retry.max_retries", 3)

	v.SetDefault("cache.search_ttl", 5*time.Minute)
	v.SetDefault("cache.detail_ttl", time.Hour)
	v.SetDefault("cache.analysis_ttl", time.Hour)
	v.SetDefault("cache.persistent_ttl", 24*time.Hour)
	v.SetDefault("cache.backend", string(types.CacheBackendFile))
	v.SetDefault("cache.path", ".paper-radar/search-cache.json")
	v.SetDefault("cache.key_prefix", "search_cache_")
	v.SetDefault("cache.minio.endpoint", "")
	v.SetDefault("cache.minio.access_key", "")
	v.SetDefault("cache.minio.secret_key", "")
	v.SetDefault("cache.minio.bucket", "paper-radar")
	v.SetDefault("cache.minio.use_ssl", false)

	v.SetDefault("sources.enable_semantic_scholar", true)
	v.SetDefault("sources.enable_papers_with_code", true)
	v.SetDefault("sources.enable_local", true)
	v.SetDefault("sources.semantic_scholar_api_key", "")
	v.SetDefault("sources.semantic_scholar_base_url", "")
	v.SetDefault("sources.papers_with_code_base_url", "")
	v.SetDefault("sources.slots", 2)
	v.SetDefault("sources.default_limit", 20)
	v.SetDefault("sources.rate_limit_cooldown", time.Minute)

	v.SetDefault("ai.base_url", "https://api.openai.com/v1")
	v.SetDefault("ai.model", "gpt-4o-mini")
	v.SetDefault("ai.api_key", "")
	v.SetDefault("ai.temperature", 0.3)
	v.SetDefault("ai.max_tokens", 1500)

	v.SetDefault("enrichment.enabled", true)
	v.SetDefault("enrichment.inter_task_delay", 2*time.Second)
	v.SetDefault("enrichment.job_timeout", 5*time.Minute)
	v.SetDefault("enrichment.persist_attempts", 3)

	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", ".paper-radar/papers.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allowed_origins", []string{})

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// BindEnv enables PAPER_RADAR_SECTION_KEY overrides for every key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load applies defaults and environment bindings to v, unmarshals it and
// validates the result. Reading a config file is left to the caller.
func Load(v *viper.Viper) (types.Config, error) {
	SetDefaults(v)
	BindEnv(v)

	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return types.Config{}, err
	}
	return cfg, nil
}

// Validate rejects configurations the components cannot start with.
func Validate(cfg types.Config) error {
	switch cfg.Cache.Backend {
	case types.CacheBackendFile, types.CacheBackendMinio, types.CacheBackendMemory:
	default:
		return fmt.Errorf("cache.backend: unknown backend %q (want file, minio or memory)", cfg.Cache.Backend)
	}
	if cfg.Cache.Backend == types.CacheBackendMinio && cfg.Cache.Minio.Endpoint == "" {
		return fmt.Errorf("cache.minio.endpoint is required for the minio backend")
	}
	switch cfg.Store.Driver {
	case "sqlite3", "postgres":
	default:
		return fmt.Errorf("store.driver: unknown driver %q (want sqlite3 or postgres)", cfg.Store.Driver)
	}
	if cfg.Sources.Slots < 1 {
		return fmt.Errorf("sources.slots must be at least 1, got %d", cfg.Sources.Slots)
	}
	if cfg.Retry.MaxRetries < 0 {
		return fmt.Errorf("retry.max_retries must not be negative, got %d", cfg.Retry.MaxRetries)
	}
	return nil
}

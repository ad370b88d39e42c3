// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// Config is the root configuration for paper-radar. The CLI builds it from
// defaults, the YAML config file, PAPER_RADAR_* environment variables and the
// .secrets/ directory, in that order of increasing precedence.
type Config struct {
	HTTP       HTTPConfig       `json:"http" yaml:"http" mapstructure:"http"`
	Queue      QueueConfig      `json:"queue" yaml:"queue" mapstructure:"queue"`
	Retry      RetryConfig      `json:"retry" yaml:"retry" mapstructure:"retry"`
	Cache      CacheConfig      `json:"cache" yaml:"cache" mapstructure:"cache"`
	Sources    SourcesConfig    `json:"sources" yaml:"sources" mapstructure:"sources"`
	AI         AIConfig         `json:"ai" yaml:"ai" mapstructure:"ai"`
	Enrichment EnrichmentConfig `json:"enrichment" yaml:"enrichment" mapstructure:"enrichment"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
	Log        LogConfig        `json:"log" yaml:"log" mapstructure:"log"`
}

// HTTPConfig holds shared HTTP settings used by the provider adapters.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "paper-radar/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// QueueConfig controls the spacing of outbound requests.
type QueueConfig struct {
	// MinDelay is the minimum gap between two dispatches (default 1s).
	MinDelay time.Duration `json:"min_delay" yaml:"min_delay" mapstructure:"min_delay"`

	// JitterMax bounds the random pause after each dispatch (default 1s).
	JitterMax time.Duration `json:"jitter_max" yaml:"jitter_max" mapstructure:"jitter_max"`
}

// RetryConfig controls the resilience wrapper around provider calls.
type RetryConfig struct {
	// PreDelay is slept before every attempt (default 500ms).
	PreDelay time.Duration `json:"pre_delay" yaml:"pre_delay" mapstructure:"pre_delay"`

	// BaseDelay is the backoff base for rate-limited retries (default 1s).
	BaseDelay time.Duration `json:"base_delay" yaml:"base_delay" mapstructure:"base_delay"`

	// MaxRetries is the number of retries after a 429 (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries"`
}

// CacheBackend selects where the persistent search cache lives.
type CacheBackend string

const (
	CacheBackendFile   CacheBackend = "file"
	CacheBackendMinio  CacheBackend = "minio"
	CacheBackendMemory CacheBackend = "memory"
)

// CacheConfig holds TTLs for the in-memory caches and the persistent
// search cache location.
type CacheConfig struct {
	SearchTTL     time.Duration `json:"search_ttl" yaml:"search_ttl" mapstructure:"search_ttl"`
	DetailTTL     time.Duration `json:"detail_ttl" yaml:"detail_ttl" mapstructure:"detail_ttl"`
	AnalysisTTL   time.Duration `json:"analysis_ttl" yaml:"analysis_ttl" mapstructure:"analysis_ttl"`
	PersistentTTL time.Duration `json:"persistent_ttl" yaml:"persistent_ttl" mapstructure:"persistent_ttl"`

	// Backend is file, minio, or memory (default file).
	Backend CacheBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// Path is the JSON file used by the file backend.
	Path string `json:"path" yaml:"path" mapstructure:"path"`

	// KeyPrefix namespaces persistent cache keys (default "search_cache_").
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix"`

	Minio MinioConfig `json:"minio" yaml:"minio" mapstructure:"minio"`
}

// MinioConfig locates the bucket used by the minio cache backend.
type MinioConfig struct {
	Endpoint  string `json:"endpoint" yaml:"endpoint" mapstructure:"endpoint"`
	AccessKey string `json:"access_key" yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" mapstructure:"secret_key"`
	Bucket    string `json:"bucket" yaml:"bucket" mapstructure:"bucket"`
	UseSSL    bool   `json:"use_ssl" yaml:"use_ssl" mapstructure:"use_ssl"`
}

// SourcesConfig holds provider settings for the search fan-out.
type SourcesConfig struct {
	// EnableSemanticScholar controls whether Provider A is queried.
	EnableSemanticScholar bool `json:"enable_semantic_scholar" yaml:"enable_semantic_scholar" mapstructure:"enable_semantic_scholar"`

	// EnablePapersWithCode controls whether Provider B is queried.
	EnablePapersWithCode bool `json:"enable_papers_with_code" yaml:"enable_papers_with_code" mapstructure:"enable_papers_with_code"`

	// EnableLocal controls whether the local store joins the fan-out.
	EnableLocal bool `json:"enable_local" yaml:"enable_local" mapstructure:"enable_local"`

	// SemanticScholarAPIKey is an optional API key for higher rate limits.
	SemanticScholarAPIKey string `json:"semantic_scholar_api_key,omitempty" yaml:"semantic_scholar_api_key,omitempty" mapstructure:"semantic_scholar_api_key"`

	SemanticScholarBaseURL string `json:"semantic_scholar_base_url" yaml:"semantic_scholar_base_url" mapstructure:"semantic_scholar_base_url"`
	PapersWithCodeBaseURL  string `json:"papers_with_code_base_url" yaml:"papers_with_code_base_url" mapstructure:"papers_with_code_base_url"`

	// Slots is the number of concurrent fan-out lanes (default 2).
	Slots int `json:"slots" yaml:"slots" mapstructure:"slots"`

	// DefaultLimit applies when a search request does not set one (default 20).
	DefaultLimit int `json:"default_limit" yaml:"default_limit" mapstructure:"default_limit"`

	// RateLimitCooldown skips a provider for this long after it exhausted
	// its retries (default 1m).
	RateLimitCooldown time.Duration `json:"rate_limit_cooldown" yaml:"rate_limit_cooldown" mapstructure:"rate_limit_cooldown"`
}

// AIConfig holds settings for the chat-completion endpoint used by enrichment.
type AIConfig struct {
	// BaseURL is an OpenAI-compatible API root (e.g. "https://api.openai.com/v1").
	BaseURL string `json:"base_url" yaml:"base_url" mapstructure:"base_url"`

	// Model is the model identifier.
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the bearer token. Empty disables AI calls and every task
	// falls back to deterministic output.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	Temperature float32 `json:"temperature" yaml:"temperature" mapstructure:"temperature"`
	MaxTokens   int     `json:"max_tokens" yaml:"max_tokens" mapstructure:"max_tokens"`
}

// EnrichmentConfig controls the background analysis pipeline.
type EnrichmentConfig struct {
	// Enabled turns background enrichment on (default true).
	Enabled bool `json:"enabled" yaml:"enabled" mapstructure:"enabled"`

	// InterTaskDelay separates consecutive analysis tasks (default 2s).
	InterTaskDelay time.Duration `json:"inter_task_delay" yaml:"inter_task_delay" mapstructure:"inter_task_delay"`

	// JobTimeout bounds one pipeline run (default 5m).
	JobTimeout time.Duration `json:"job_timeout" yaml:"job_timeout" mapstructure:"job_timeout"`

	// PersistAttempts bounds store writes after a run (default 3).
	PersistAttempts int `json:"persist_attempts" yaml:"persist_attempts" mapstructure:"persist_attempts"`
}

// StoreConfig selects the local durable store.
type StoreConfig struct {
	// Driver is "sqlite3" (default) or "postgres".
	Driver string `json:"driver" yaml:"driver" mapstructure:"driver"`

	// DSN is the data source name; for sqlite3 it is a file path.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string   `json:"addr" yaml:"addr" mapstructure:"addr"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins" mapstructure:"allowed_origins"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	// Level is debug, info, warn, or error (default info).
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is console or json (default console).
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

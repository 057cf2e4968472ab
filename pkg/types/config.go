// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by stages that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "concept-engine/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent" mapstructure:"user_agent"`
}

// AIConfig holds shared settings for stages that call a model API.
type AIConfig struct {
	// Provider selects the client implementation ("openai" or "gemini").
	Provider string `json:"provider" yaml:"provider" mapstructure:"provider" validate:"omitempty,oneof=openai gemini"`

	// Model is the model identifier (e.g. "text-embedding-3-small").
	Model string `json:"model" yaml:"model" mapstructure:"model"`

	// APIKey is the authentication key for the API.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty" mapstructure:"api_key"`

	// BaseURL overrides the provider endpoint (OpenAI-compatible gateways).
	BaseURL string `json:"base_url,omitempty" yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// SimilarityConfig holds settings for the vector similarity adapter.
type SimilarityConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Timeout bounds each upstream embedding call (default 10s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`

	// MinInterval is the minimum spacing between upstream calls (default 200ms).
	MinInterval time.Duration `json:"min_interval" yaml:"min_interval" mapstructure:"min_interval"`

	// Retries is the number of additional attempts after a failed call (default 2).
	Retries int `json:"retries" yaml:"retries" mapstructure:"retries" validate:"gte=0,lte=10"`

	// Backoff is the wait before the first retry (default 500ms).
	Backoff time.Duration `json:"backoff" yaml:"backoff" mapstructure:"backoff"`

	// DoubleBackoff doubles the wait on each further retry.
	DoubleBackoff bool `json:"double_backoff" yaml:"double_backoff" mapstructure:"double_backoff"`

	// Fallback is the neutral similarity returned when the provider is unreachable (default 0.75).
	Fallback float32 `json:"fallback" yaml:"fallback" mapstructure:"fallback" validate:"gte=0,lte=1"`

	// BatchThreshold is the smallest batch sent as one upstream call (default 4).
	BatchThreshold int `json:"batch_threshold" yaml:"batch_threshold" mapstructure:"batch_threshold" validate:"gte=1"`
}

// SelectorConfig holds the dynamic threshold bounds for candidate selection.
type SelectorConfig struct {
	// TargetMin is the least number of depth-1 nodes returned when enough candidates exist (default 3).
	TargetMin int `json:"target_min" yaml:"target_min" mapstructure:"target_min" validate:"gt=0"`

	// TargetMax caps the number of depth-1 nodes (default 9).
	TargetMax int `json:"target_max" yaml:"target_max" mapstructure:"target_max" validate:"gtefield=TargetMin"`

	// Threshold is the base similarity cutoff (default 0.62).
	Threshold float64 `json:"threshold" yaml:"threshold" mapstructure:"threshold" validate:"gte=0,lte=1"`
}

// FusionConfig holds settings for evidence fusion and conflict handling.
type FusionConfig struct {
	// MinEvidence is the evidence count below which the base score is scaled down (default 2).
	MinEvidence int `json:"min_evidence" yaml:"min_evidence" mapstructure:"min_evidence" validate:"gt=0"`

	// ConflictThreshold is the confidence gap that counts as divergence (default 0.6).
	ConflictThreshold float64 `json:"conflict_threshold" yaml:"conflict_threshold" mapstructure:"conflict_threshold" validate:"gte=0,lte=1"`

	// Strategy selects conflict resolution: "highest_confidence" or "most_authoritative".
	Strategy string `json:"strategy" yaml:"strategy" mapstructure:"strategy" validate:"oneof=highest_confidence most_authoritative"`
}

// EvidenceConfig holds settings for the encyclopedia, preprint, and curated
// database collaborators.
type EvidenceConfig struct {
	HTTPConfig `yaml:",inline" mapstructure:",squash"`

	// Languages lists encyclopedia editions tried in order (default zh, en).
	Languages []string `json:"languages" yaml:"languages" mapstructure:"languages"`

	// MaxPapers is the number of preprint results requested per query (default 3).
	MaxPapers int `json:"max_papers" yaml:"max_papers" mapstructure:"max_papers" validate:"gte=0"`

	// MaxRetries bounds retries on rate-limited or failing lookups (default 2).
	MaxRetries int `json:"max_retries" yaml:"max_retries" mapstructure:"max_retries" validate:"gte=0"`

	// OpenAlex adds OpenAlex works as a curated-database source.
	OpenAlex bool `json:"openalex" yaml:"openalex" mapstructure:"openalex"`

	// Email is sent as the OpenAlex mailto parameter for polite pool access.
	Email string `json:"email,omitempty" yaml:"email,omitempty" mapstructure:"email" validate:"omitempty,email"`
}

// GeneratorConfig holds settings for the candidate generator.
type GeneratorConfig struct {
	AIConfig `yaml:",inline" mapstructure:",squash"`

	// Count is the number of candidates requested per discovery (default 10).
	Count int `json:"count" yaml:"count" mapstructure:"count" validate:"gt=0"`

	// Timeout bounds one generation call (default 15s).
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// StoreConfig holds settings for the SQLite run store.
type StoreConfig struct {
	// DataDir holds concept-engine.db. Empty disables persistence.
	DataDir string `json:"data_dir" yaml:"data_dir" mapstructure:"data_dir"`
}

// CacheConfig holds settings for the discovery result cache.
type CacheConfig struct {
	// RedisAddr enables the Redis cache (e.g. "localhost:6379"). Empty uses memory.
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`

	RedisPassword string `json:"redis_password,omitempty" yaml:"redis_password,omitempty" mapstructure:"redis_password"`
	RedisDB       int    `json:"redis_db" yaml:"redis_db" mapstructure:"redis_db"`

	// KeyPrefix is prepended to every cache key (default "concept-engine:").
	KeyPrefix string `json:"key_prefix" yaml:"key_prefix" mapstructure:"key_prefix"`

	// TTL is the lifetime of a cached discovery result (default 1h).
	TTL time.Duration `json:"ttl" yaml:"ttl" mapstructure:"ttl"`

	// Disabled turns result caching off.
	Disabled bool `json:"disabled" yaml:"disabled" mapstructure:"disabled"`
}

// GraphConfig holds settings for the Neo4j/Memgraph sink. Empty URI disables it.
type GraphConfig struct {
	URI      string `json:"uri,omitempty" yaml:"uri,omitempty" mapstructure:"uri"`
	Username string `json:"username,omitempty" yaml:"username,omitempty" mapstructure:"username"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" mapstructure:"password"`
	Database string `json:"database,omitempty" yaml:"database,omitempty" mapstructure:"database"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	// Addr is the listen address (default ":8000").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// RequestTimeout bounds one discovery request (default 60s).
	RequestTimeout time.Duration `json:"request_timeout" yaml:"request_timeout" mapstructure:"request_timeout"`
}

// Config aggregates the settings of every stage.
type Config struct {
	Similarity SimilarityConfig `json:"similarity" yaml:"similarity" mapstructure:"similarity"`
	Selector   SelectorConfig   `json:"selector" yaml:"selector" mapstructure:"selector"`
	Fusion     FusionConfig     `json:"fusion" yaml:"fusion" mapstructure:"fusion"`
	Evidence   EvidenceConfig   `json:"evidence" yaml:"evidence" mapstructure:"evidence"`
	Generator  GeneratorConfig  `json:"generator" yaml:"generator" mapstructure:"generator"`
	Store      StoreConfig      `json:"store" yaml:"store" mapstructure:"store"`
	Cache      CacheConfig      `json:"cache" yaml:"cache" mapstructure:"cache"`
	Graph      GraphConfig      `json:"graph" yaml:"graph" mapstructure:"graph"`
	Server     ServerConfig     `json:"server" yaml:"server" mapstructure:"server"`
}

// DefaultConfig returns the documented defaults for every stage.
func DefaultConfig() Config {
	return Config{
		Similarity: SimilarityConfig{
			AIConfig:       AIConfig{Provider: "openai", Model: "text-embedding-3-small"},
			Timeout:        10 * time.Second,
			MinInterval:    200 * time.Millisecond,
			Retries:        2,
			Backoff:        500 * time.Millisecond,
			DoubleBackoff:  true,
			Fallback:       0.75,
			BatchThreshold: 4,
		},
		Selector: SelectorConfig{TargetMin: 3, TargetMax: 9, Threshold: 0.62},
		Fusion: FusionConfig{
			MinEvidence:       2,
			ConflictThreshold: 0.6,
			Strategy:          "highest_confidence",
		},
		Evidence: EvidenceConfig{
			HTTPConfig: HTTPConfig{Timeout: 30 * time.Second, UserAgent: "concept-engine/0.1"},
			Languages:  []string{"zh", "en"},
			MaxPapers:  3,
			MaxRetries: 2,
		},
		Generator: GeneratorConfig{
			AIConfig: AIConfig{
				Provider: "openai",
				Model:    "google/gemini-2.0-flash-001",
				BaseURL:  "https://openrouter.ai/api/v1",
			},
			Count:   10,
			Timeout: 15 * time.Second,
		},
		Store: StoreConfig{DataDir: "data"},
		Cache: CacheConfig{KeyPrefix: "concept-engine:", TTL: time.Hour},
		Server: ServerConfig{
			Addr:           ":8000",
			RequestTimeout: 60 * time.Second,
		},
	}
}

// Package config provides the configuration schema, loader, and provider
// registry for the Auricle pipeline server.
package config

import "github.com/auricle-ai/auricle/pkg/provider/search"

// LogLevel controls log verbosity for the Auricle server.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Config is the root configuration structure for Auricle.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Providers ProvidersConfig `yaml:"providers"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	Search    SearchConfig    `yaml:"search"`
	LLMCalls  LLMCallsConfig  `yaml:"llm_calls"`
}

// ServerConfig holds network and logging settings for the Auricle server.
type ServerConfig struct {
	// MetricsAddr is the TCP address the metrics and health endpoints
	// listen on (e.g., ":9090"). Empty disables the metrics server.
	MetricsAddr string `yaml:"metrics_addr"`

	// LogLevel controls verbosity.
	LogLevel LogLevel `yaml:"log_level"`
}

// ProvidersConfig declares which provider implementation to use for each
// pipeline stage. Each field selects a named provider registered in the
// [Registry].
type ProvidersConfig struct {
	LLM        ProviderEntry `yaml:"llm"`
	STT        ProviderEntry `yaml:"stt"`
	Embeddings ProviderEntry `yaml:"embeddings"`
	Search     ProviderEntry `yaml:"search"`
}

// ProviderEntry is the common configuration block shared by all provider types.
// The Name field is used to look up the constructor in the [Registry].
type ProviderEntry struct {
	// Name selects the registered provider implementation (e.g., "openai", "deepgram").
	Name string `yaml:"name"`

	// APIKey is the authentication key for the provider's API if any.
	// Environment references in the form ${VAR} are expanded at load time.
	APIKey string `yaml:"api_key"`

	// BaseURL overrides the provider's default API endpoint.
	// Leave empty to use the provider's built-in default.
	BaseURL string `yaml:"base_url"`

	// Model selects a specific model within the provider (e.g., "gpt-4o-mini", "nova-2").
	Model string `yaml:"model"`

	// Options holds provider-specific configuration values not covered by the
	// standard fields above. Values may be strings, numbers, booleans, or nested maps.
	Options map[string]any `yaml:"options"`
}

// PipelineConfig holds the cadence knobs of the processing pipeline.
// Zero values are replaced by defaults in [ApplyDefaults].
type PipelineConfig struct {
	// TopicUpdateThreshold is the number of final sentences that triggers
	// a topic update.
	TopicUpdateThreshold int `yaml:"topic_update_threshold"`

	// ClaimSelectionBatchSize is the number of final sentences collected
	// before a claim-selection pass.
	ClaimSelectionBatchSize int `yaml:"claim_selection_batch_size"`

	// MaxClaimsPerBatch caps how many claims one selection pass may enqueue.
	MaxClaimsPerBatch int `yaml:"max_claims_per_batch"`

	// FactCheckRateLimitSeconds is the minimum spacing between fact-check
	// starts.
	FactCheckRateLimitSeconds int `yaml:"fact_check_rate_limit_seconds"`

	// SimilarityThreshold is the minimum topic similarity score for reuse,
	// in [0, 1].
	SimilarityThreshold float64 `yaml:"similarity_threshold"`

	// TranscriptBufferSize bounds the rolling segment buffer.
	TranscriptBufferSize int `yaml:"transcript_buffer_size"`
}

// SearchConfig holds web-search parameters shared by the evidence and image
// lookups.
type SearchConfig struct {
	// MaxResults bounds results per search request.
	MaxResults int `yaml:"max_results"`

	// SafeSearch is the content-filtering level: off, moderate, or strict.
	SafeSearch search.SafeSearch `yaml:"safesearch"`

	// Region is the search locale (e.g., "wt-wt" for worldwide).
	Region string `yaml:"region"`

	// URLBlocklist lists extra hostname fragments to exclude from evidence,
	// on top of the built-in list.
	URLBlocklist []string `yaml:"url_blocklist"`
}

// LLMCallsConfig overrides sampling parameters per LLM call type.
type LLMCallsConfig struct {
	TopicExtraction   LLMCallConfig `yaml:"topic_extraction"`
	ClaimSelection    LLMCallConfig `yaml:"claim_selection"`
	QueryOptimization LLMCallConfig `yaml:"query_optimization"`
	Verification      LLMCallConfig `yaml:"verification"`
}

// LLMCallConfig tunes one LLM call type. Zero values keep the built-in
// defaults for that call.
type LLMCallConfig struct {
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// Pipeline defaults, matching the engine packages.
const (
	DefaultTopicUpdateThreshold      = 5
	DefaultClaimSelectionBatchSize   = 10
	DefaultMaxClaimsPerBatch         = 2
	DefaultFactCheckRateLimitSeconds = 10
	DefaultSimilarityThreshold       = 0.7
	DefaultTranscriptBufferSize      = 100
)

// ApplyDefaults fills zero-valued pipeline and search fields with their
// defaults. It is called by [Load] and [LoadFromReader] after validation.
func ApplyDefaults(cfg *Config) {
	p := &cfg.Pipeline
	if p.TopicUpdateThreshold == 0 {
		p.TopicUpdateThreshold = DefaultTopicUpdateThreshold
	}
	if p.ClaimSelectionBatchSize == 0 {
		p.ClaimSelectionBatchSize = DefaultClaimSelectionBatchSize
	}
	if p.MaxClaimsPerBatch == 0 {
		p.MaxClaimsPerBatch = DefaultMaxClaimsPerBatch
	}
	if p.FactCheckRateLimitSeconds == 0 {
		p.FactCheckRateLimitSeconds = DefaultFactCheckRateLimitSeconds
	}
	if p.SimilarityThreshold == 0 {
		p.SimilarityThreshold = DefaultSimilarityThreshold
	}
	if p.TranscriptBufferSize == 0 {
		p.TranscriptBufferSize = DefaultTranscriptBufferSize
	}

	s := &cfg.Search
	if s.MaxResults == 0 {
		s.MaxResults = 5
	}
	if s.SafeSearch == "" {
		s.SafeSearch = search.SafeSearchStrict
	}
	if s.Region == "" {
		s.Region = "wt-wt"
	}
}

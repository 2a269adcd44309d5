package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"

	"gopkg.in/yaml.v3"
)

// ValidProviderNames lists known provider names per provider kind.
// Used by [Validate] to warn about unrecognised provider names.
var ValidProviderNames = map[string][]string{
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq", "llamacpp", "llamafile"},
	"stt":        {"deepgram"},
	"embeddings": {"openai", "ollama"},
	"search":     {"duckduckgo"},
}

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader] and [Validate].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, expands ${VAR} references in
// API keys, and validates the result. Useful in tests where configs are
// constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}

	for _, entry := range []*ProviderEntry{
		&cfg.Providers.LLM,
		&cfg.Providers.STT,
		&cfg.Providers.Embeddings,
		&cfg.Providers.Search,
	} {
		entry.APIKey = os.ExpandEnv(entry.APIKey)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	ApplyDefaults(cfg)
	return cfg, nil
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}

	// Provider name validation — warn for unknown provider names.
	validateProviderName("llm", cfg.Providers.LLM.Name)
	validateProviderName("stt", cfg.Providers.STT.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)
	validateProviderName("search", cfg.Providers.Search.Name)

	// Provider availability warnings
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no LLM provider configured; topic extraction and fact checking will be disabled")
	}
	if cfg.Providers.Search.Name == "" {
		slog.Warn("no search provider configured; claims will resolve without evidence")
	}
	if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("no embeddings provider configured; topic similarity falls back to lexical matching")
	}

	// Pipeline
	p := cfg.Pipeline
	if p.TopicUpdateThreshold < 0 {
		errs = append(errs, fmt.Errorf("pipeline.topic_update_threshold %d must not be negative", p.TopicUpdateThreshold))
	}
	if p.ClaimSelectionBatchSize < 0 {
		errs = append(errs, fmt.Errorf("pipeline.claim_selection_batch_size %d must not be negative", p.ClaimSelectionBatchSize))
	}
	if p.MaxClaimsPerBatch < 0 {
		errs = append(errs, fmt.Errorf("pipeline.max_claims_per_batch %d must not be negative", p.MaxClaimsPerBatch))
	}
	if p.FactCheckRateLimitSeconds < 0 {
		errs = append(errs, fmt.Errorf("pipeline.fact_check_rate_limit_seconds %d must not be negative", p.FactCheckRateLimitSeconds))
	}
	if p.SimilarityThreshold < 0 || p.SimilarityThreshold > 1 {
		errs = append(errs, fmt.Errorf("pipeline.similarity_threshold %.2f is out of range [0, 1]", p.SimilarityThreshold))
	}
	if p.TranscriptBufferSize < 0 {
		errs = append(errs, fmt.Errorf("pipeline.transcript_buffer_size %d must not be negative", p.TranscriptBufferSize))
	}

	// Search
	if cfg.Search.MaxResults < 0 {
		errs = append(errs, fmt.Errorf("search.max_results %d must not be negative", cfg.Search.MaxResults))
	}
	if cfg.Search.SafeSearch != "" && !cfg.Search.SafeSearch.IsValid() {
		errs = append(errs, fmt.Errorf("search.safesearch %q is invalid; valid values: off, moderate, strict", cfg.Search.SafeSearch))
	}

	// LLM call overrides
	for _, call := range []struct {
		name string
		cfg  LLMCallConfig
	}{
		{"topic_extraction", cfg.LLMCalls.TopicExtraction},
		{"claim_selection", cfg.LLMCalls.ClaimSelection},
		{"query_optimization", cfg.LLMCalls.QueryOptimization},
		{"verification", cfg.LLMCalls.Verification},
	} {
		if call.cfg.Temperature < 0 || call.cfg.Temperature > 2 {
			errs = append(errs, fmt.Errorf("llm_calls.%s.temperature %.2f is out of range [0, 2]", call.name, call.cfg.Temperature))
		}
		if call.cfg.MaxTokens < 0 {
			errs = append(errs, fmt.Errorf("llm_calls.%s.max_tokens %d must not be negative", call.name, call.cfg.MaxTokens))
		}
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not found in
// the [ValidProviderNames] list for the given kind.
func validateProviderName(kind, name string) {
	if name == "" {
		return
	}
	known, ok := ValidProviderNames[kind]
	if !ok {
		return
	}
	if slices.Contains(known, name) {
		return
	}
	slog.Warn("unknown provider name — may be a typo or third-party provider",
		"kind", kind,
		"name", name,
		"known", known,
	)
}

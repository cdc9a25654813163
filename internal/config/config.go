package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// EnvPrefix is the prefix for environment overrides. Nested keys are
// separated by a double underscore, e.g. PAPERRAG_RERANK__ENABLED.
const EnvPrefix = "PAPERRAG_"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (PAPERRAG_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	cfg := DefaultConfig()

	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// PAPERRAG_CHUNKING__MAX_CHARS -> chunking.max_chars
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.ReplaceAll(key, "__", ".")
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

var validProviders = map[ProviderType]bool{
	ProviderOpenAI: true,
	ProviderOllama: true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider %q: must be one of openai, ollama", c.LLM.Provider)
	}
	if c.LLM.Model == "" {
		return fmt.Errorf("llm.model is required")
	}
	if c.LLM.MaxTokens <= 0 {
		return fmt.Errorf("llm.max_tokens must be positive")
	}
	if c.LLM.RequestsPerMinute < 0 {
		return fmt.Errorf("llm.requests_per_minute must be non-negative")
	}

	if !validProviders[c.Embedding.Provider] {
		return fmt.Errorf("invalid embedding.provider %q: must be one of openai, ollama", c.Embedding.Provider)
	}
	if c.Embedding.Model == "" {
		return fmt.Errorf("embedding.model is required")
	}
	if c.Embedding.Dimensions <= 0 {
		return fmt.Errorf("embedding.dimensions must be positive")
	}
	if c.Embedding.CacheSize < 0 {
		return fmt.Errorf("embedding.cache_size must be non-negative")
	}

	if c.Chunking.MaxChars <= 0 || c.Chunking.OverlapChars <= 0 {
		return fmt.Errorf("chunking.max_chars and chunking.overlap_chars must be positive")
	}
	if c.Chunking.OverlapChars >= c.Chunking.MaxChars {
		return fmt.Errorf("chunking.overlap_chars (%d) must be less than chunking.max_chars (%d)",
			c.Chunking.OverlapChars, c.Chunking.MaxChars)
	}

	r := c.Retrieval
	if r.TopK <= 0 || r.MaxTopK < r.TopK {
		return fmt.Errorf("retrieval.top_k must be positive and not exceed retrieval.max_top_k")
	}
	if r.Multiplier < 1 {
		return fmt.Errorf("retrieval.multiplier must be at least 1")
	}
	for name, v := range map[string]float64{
		"retrieval.scoped_threshold":   r.ScopedThreshold,
		"retrieval.unscoped_threshold": r.UnscopedThreshold,
	} {
		if v < -1 || v > 1 {
			return fmt.Errorf("%s must be within [-1, 1], got %v", name, v)
		}
	}

	if c.Scope.MinKeywordHits < 1 || c.Scope.MinMediumMatches < 1 {
		return fmt.Errorf("scope.min_keyword_hits and scope.min_medium_matches must be at least 1")
	}

	if c.Rerank.Enabled && c.Rerank.URL == "" {
		return fmt.Errorf("rerank.url is required when rerank.enabled is true")
	}

	if c.Answer.CitationBonus < 0 || c.Answer.UncertaintyPenalty < 0 {
		return fmt.Errorf("answer.citation_bonus and answer.uncertainty_penalty must be non-negative")
	}

	if c.Ingest.Concurrency < 1 {
		return fmt.Errorf("ingest.concurrency must be at least 1")
	}
	if c.Ingest.MaxUploadBytes <= 0 {
		return fmt.Errorf("ingest.max_upload_bytes must be positive")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name for
// the API key of the given provider.
func APIKeyEnvVar(provider ProviderType) string {
	switch provider {
	case ProviderOpenAI:
		return "OPENAI_API_KEY"
	default:
		return ""
	}
}

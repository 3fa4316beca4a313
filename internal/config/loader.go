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
	"llm":        {"openai", "anthropic", "ollama", "gemini", "deepseek", "mistral", "groq"},
	"embeddings": {"openai", "ollama"},
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

// LoadFromReader decodes a YAML config from r and validates the result.
// Useful in tests where configs are constructed from string literals.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return nil, err
	}
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
	validateProviderName("llm", cfg.Providers.LLMFallback.Name)
	validateProviderName("embeddings", cfg.Providers.Embeddings.Name)

	// Provider availability warnings
	if cfg.Providers.Google.APIKey == "" && cfg.Providers.Yelp.APIKey == "" {
		slog.Warn("no place provider configured; every search will return zero results")
	}
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("providers.llm is not configured; intent parsing and follow-ups fall back to rule-based handling")
	}
	if cfg.Providers.Embeddings.Name == "" {
		slog.Warn("providers.embeddings is not configured; semantic requirement matching is disabled")
	}
	if cfg.Providers.LLMFallback.Name != "" && cfg.Providers.LLM.Name == "" {
		errs = append(errs, errors.New("providers.llm_fallback is set but providers.llm is not"))
	}

	// Embeddings ↔ pgvector cache dimensions
	if cfg.Postgres.DSN != "" && cfg.Postgres.EmbeddingDimensions <= 0 {
		slog.Warn("postgres.dsn is configured but postgres.embedding_dimensions is not set; defaulting to 1536")
	}

	// Search thresholds. Zero means "use the default", so only set values are
	// range-checked.
	s := cfg.Search
	if s.NameThreshold < 0 || s.NameThreshold > 100 {
		errs = append(errs, fmt.Errorf("search.name_threshold %d is out of range [0, 100]", s.NameThreshold))
	}
	if s.GeoThresholdM < 0 {
		errs = append(errs, fmt.Errorf("search.geo_threshold_m %.1f must not be negative", s.GeoThresholdM))
	}
	if s.NearDistanceM < 0 {
		errs = append(errs, fmt.Errorf("search.near_distance_m %.1f must not be negative", s.NearDistanceM))
	}
	if s.SemanticThreshold < 0 || s.SemanticThreshold > 1 {
		errs = append(errs, fmt.Errorf("search.semantic_threshold %.2f is out of range [0, 1]", s.SemanticThreshold))
	}
	if s.DefaultRadiusM < 0 || s.MaxRadiusM < 0 {
		errs = append(errs, errors.New("search radius settings must not be negative"))
	}
	if s.MaxRadiusM > 0 && s.DefaultRadiusM > s.MaxRadiusM {
		errs = append(errs, fmt.Errorf("search.default_radius_m %d exceeds search.max_radius_m %d", s.DefaultRadiusM, s.MaxRadiusM))
	}
	if s.SessionTTLSeconds < 0 || s.CacheTTLSeconds < 0 || s.ProviderTimeoutSeconds < 0 {
		errs = append(errs, errors.New("search timing settings must not be negative"))
	}
	if s.RankingPreset != "" && !s.RankingPreset.IsValid() {
		errs = append(errs, fmt.Errorf("search.ranking_preset %q is invalid; valid values: balanced, nearby, review-heavy", s.RankingPreset))
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

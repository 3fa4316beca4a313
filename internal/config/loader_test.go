package config_test

import (
	"strings"
	"testing"

	"github.com/aroundmehq/aroundme/internal/config"
)

func TestValidate_FallbackWithoutPrimary(t *testing.T) {
	t.Parallel()
	yaml := `
providers:
  llm_fallback:
    name: ollama
    model: llama3.1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for llm_fallback without llm, got nil")
	}
	if !strings.Contains(err.Error(), "llm_fallback") {
		t.Errorf("error should mention llm_fallback, got: %v", err)
	}
}

func TestValidate_NameThresholdOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
search:
  name_threshold: 140
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for name_threshold out of range, got nil")
	}
	if !strings.Contains(err.Error(), "name_threshold") {
		t.Errorf("error should mention name_threshold, got: %v", err)
	}
}

func TestValidate_SemanticThresholdOutOfRange(t *testing.T) {
	t.Parallel()
	yaml := `
search:
  semantic_threshold: 1.5
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for semantic_threshold out of range, got nil")
	}
}

func TestValidate_DefaultRadiusExceedsMax(t *testing.T) {
	t.Parallel()
	yaml := `
search:
  default_radius_m: 60000
  max_radius_m: 50000
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for default radius above max, got nil")
	}
	if !strings.Contains(err.Error(), "default_radius_m") {
		t.Errorf("error should mention default_radius_m, got: %v", err)
	}
}

func TestValidate_NegativeTimings(t *testing.T) {
	t.Parallel()
	yaml := `
search:
  session_ttl_seconds: -1
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected error for negative session TTL, got nil")
	}
}

func TestValidate_MultipleErrors(t *testing.T) {
	t.Parallel()
	yaml := `
server:
  log_level: shouty
search:
  name_threshold: -5
  ranking_preset: quality
`
	_, err := config.LoadFromReader(strings.NewReader(yaml))
	if err == nil {
		t.Fatal("expected errors, got nil")
	}
	errStr := err.Error()
	for _, want := range []string{"log_level", "name_threshold", "ranking_preset"} {
		if !strings.Contains(errStr, want) {
			t.Errorf("error should mention %s, got: %v", want, err)
		}
	}
}

func TestValidProviderNames(t *testing.T) {
	t.Parallel()
	// Sanity-check that the map is populated.
	if len(config.ValidProviderNames) == 0 {
		t.Fatal("ValidProviderNames should not be empty")
	}
	llmNames := config.ValidProviderNames["llm"]
	if len(llmNames) == 0 {
		t.Fatal("ValidProviderNames[\"llm\"] should not be empty")
	}
	found := false
	for _, n := range llmNames {
		if n == "openai" {
			found = true
			break
		}
	}
	if !found {
		t.Error("ValidProviderNames[\"llm\"] should contain \"openai\"")
	}
}

package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_TEMPERATURE", "RETRIEVAL_TOP_K", "WEB_RESULTS_PER_QUERY",
		"POSTGRES_DSN", "PIPELINE_TIMEOUT_SECONDS", "CLASSIFIER_MANIFEST_PATH",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.LLMProvider != "ollama" {
		t.Fatalf("expected default provider ollama, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTemperature != 0.8 {
		t.Fatalf("expected default temperature 0.8, got %v", cfg.LLMTemperature)
	}
	if cfg.RetrievalTopK != 2 || cfg.WebResultsPerQuery != 2 {
		t.Fatalf("expected k=2 and 2 results per query, got %d/%d", cfg.RetrievalTopK, cfg.WebResultsPerQuery)
	}
	if cfg.PostgresDSN != "" {
		t.Fatalf("expected run history disabled by default")
	}
	if cfg.PipelineTimeout() != 120*time.Second {
		t.Fatalf("expected 120s pipeline timeout, got %s", cfg.PipelineTimeout())
	}
	if cfg.ClassifierManifestPath != "./models/plant-types/manifest.yaml" {
		t.Fatalf("unexpected manifest path %q", cfg.ClassifierManifestPath)
	}
}

func TestLoadParsesOverrides(t *testing.T) {
	t.Setenv("LLM_PROVIDER", "Gemini")
	t.Setenv("LLM_TEMPERATURE", "0.2")
	t.Setenv("API_RATE_LIMIT_RPS", "1.5")
	t.Setenv("RETRIEVAL_TOP_K", "4")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "false")
	t.Setenv("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", "50")

	cfg := Load()
	if cfg.LLMProvider != "gemini" {
		t.Fatalf("expected lower-cased provider, got %q", cfg.LLMProvider)
	}
	if cfg.LLMTemperature != 0.2 || cfg.APIRateLimitRPS != 1.5 || cfg.RetrievalTopK != 4 {
		t.Fatalf("unexpected overrides %+v", cfg)
	}
	rc := cfg.Resilience()
	if rc.Breaker.Enabled || rc.Retry.InitialBackoff != 50*time.Millisecond {
		t.Fatalf("unexpected resilience config %+v", rc)
	}
}

func TestLoadFallsBackOnMalformedValues(t *testing.T) {
	t.Setenv("LLM_TEMPERATURE", "warm")
	t.Setenv("CHUNK_SIZE", "big")
	t.Setenv("RESILIENCE_BREAKER_ENABLED", "maybe")

	cfg := Load()
	if cfg.LLMTemperature != 0.8 || cfg.ChunkSize != 900 || !cfg.ResilienceBreakerEnabled {
		t.Fatalf("expected fallbacks, got %+v", cfg)
	}
}

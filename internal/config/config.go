package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kirillkom/plant-care-assistant/internal/infrastructure/resilience"
)

type Config struct {
	APIPort  string
	LogLevel string

	// Empty disables run history.
	PostgresDSN string

	LLMProvider    string
	LLMTemperature float64

	OllamaURL        string
	OllamaChatModel  string
	OllamaEmbedModel string

	GeminiAPIKey string
	GeminiModel  string

	QdrantURL        string
	QdrantCollection string
	RetrievalTopK    int

	TavilyURL          string
	TavilyAPIKey       string
	WebResultsPerQuery int

	ClassifierManifestPath string
	InferenceURL           string
	MaxImageBytes          int64
	PipelineTimeoutSeconds int

	APIRateLimitRPS       float64
	APIRateLimitBurst     int
	APIMaxInFlight        int
	APIBackpressureWaitMS int

	KnowledgePath string
	ChunkSize     int
	ChunkOverlap  int

	ResilienceRetryMaxAttempts        int
	ResilienceRetryInitialBackoffMS   int
	ResilienceRetryMaxBackoffMS       int
	ResilienceRetryMultiplier         float64
	ResilienceBreakerEnabled          bool
	ResilienceBreakerMinRequests      int
	ResilienceBreakerFailureRatio     float64
	ResilienceBreakerOpenTimeoutMS    int
	ResilienceBreakerHalfOpenMaxCalls int
}

func Load() Config {
	return Config{
		APIPort:  mustEnv("API_PORT", "8080"),
		LogLevel: mustEnv("LOG_LEVEL", "info"),

		PostgresDSN: os.Getenv("POSTGRES_DSN"),

		LLMProvider:    strings.ToLower(mustEnv("LLM_PROVIDER", "ollama")),
		LLMTemperature: mustEnvFloat("LLM_TEMPERATURE", 0.8),

		OllamaURL:        mustEnv("OLLAMA_URL", "http://localhost:11434"),
		OllamaChatModel:  mustEnv("OLLAMA_CHAT_MODEL", "llama3.1:8b"),
		OllamaEmbedModel: mustEnv("OLLAMA_EMBED_MODEL", "nomic-embed-text"),

		GeminiAPIKey: mustEnv("GEMINI_API_KEY", ""),
		GeminiModel:  mustEnv("GEMINI_MODEL", "gemini-1.5-flash"),

		QdrantURL:        mustEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection: mustEnv("QDRANT_COLLECTION", "plant_knowledge"),
		RetrievalTopK:    mustEnvInt("RETRIEVAL_TOP_K", 2),

		TavilyURL:          mustEnv("TAVILY_URL", "https://api.tavily.com"),
		TavilyAPIKey:       mustEnv("TAVILY_API_KEY", ""),
		WebResultsPerQuery: mustEnvInt("WEB_RESULTS_PER_QUERY", 2),

		ClassifierManifestPath: mustEnv("CLASSIFIER_MANIFEST_PATH", "./models/plant-types/manifest.yaml"),
		InferenceURL:           mustEnv("INFERENCE_URL", "http://localhost:8000"),
		MaxImageBytes:          int64(mustEnvInt("MAX_IMAGE_BYTES", 10<<20)),
		PipelineTimeoutSeconds: mustEnvInt("PIPELINE_TIMEOUT_SECONDS", 120),

		APIRateLimitRPS:       mustEnvFloat("API_RATE_LIMIT_RPS", 5),
		APIRateLimitBurst:     mustEnvInt("API_RATE_LIMIT_BURST", 10),
		APIMaxInFlight:        mustEnvInt("API_MAX_IN_FLIGHT", 8),
		APIBackpressureWaitMS: mustEnvInt("API_BACKPRESSURE_WAIT_MS", 250),

		KnowledgePath: mustEnv("KNOWLEDGE_PATH", "./data/knowledge"),
		ChunkSize:     mustEnvInt("CHUNK_SIZE", 900),
		ChunkOverlap:  mustEnvInt("CHUNK_OVERLAP", 150),

		ResilienceRetryMaxAttempts:        mustEnvInt("RESILIENCE_RETRY_MAX_ATTEMPTS", 3),
		ResilienceRetryInitialBackoffMS:   mustEnvInt("RESILIENCE_RETRY_INITIAL_BACKOFF_MS", 200),
		ResilienceRetryMaxBackoffMS:       mustEnvInt("RESILIENCE_RETRY_MAX_BACKOFF_MS", 2000),
		ResilienceRetryMultiplier:         mustEnvFloat("RESILIENCE_RETRY_MULTIPLIER", 2.0),
		ResilienceBreakerEnabled:          mustEnvBool("RESILIENCE_BREAKER_ENABLED", true),
		ResilienceBreakerMinRequests:      mustEnvInt("RESILIENCE_BREAKER_MIN_REQUESTS", 5),
		ResilienceBreakerFailureRatio:     mustEnvFloat("RESILIENCE_BREAKER_FAILURE_RATIO", 0.6),
		ResilienceBreakerOpenTimeoutMS:    mustEnvInt("RESILIENCE_BREAKER_OPEN_TIMEOUT_MS", 30000),
		ResilienceBreakerHalfOpenMaxCalls: mustEnvInt("RESILIENCE_BREAKER_HALF_OPEN_MAX_CALLS", 1),
	}
}

// Resilience builds the executor settings shared by every outbound adapter.
func (c Config) Resilience() resilience.Config {
	return resilience.Config{
		Retry: resilience.RetryPolicy{
			MaxAttempts:    c.ResilienceRetryMaxAttempts,
			InitialBackoff: time.Duration(c.ResilienceRetryInitialBackoffMS) * time.Millisecond,
			MaxBackoff:     time.Duration(c.ResilienceRetryMaxBackoffMS) * time.Millisecond,
			Multiplier:     c.ResilienceRetryMultiplier,
		},
		Breaker: resilience.BreakerPolicy{
			Enabled:          c.ResilienceBreakerEnabled,
			MinRequests:      uint32(max(c.ResilienceBreakerMinRequests, 0)),
			FailureRatio:     c.ResilienceBreakerFailureRatio,
			OpenTimeout:      time.Duration(c.ResilienceBreakerOpenTimeoutMS) * time.Millisecond,
			HalfOpenMaxCalls: uint32(max(c.ResilienceBreakerHalfOpenMaxCalls, 0)),
		},
	}
}

func (c Config) PipelineTimeout() time.Duration {
	if c.PipelineTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(c.PipelineTimeoutSeconds) * time.Second
}

func mustEnv(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func mustEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func mustEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func mustEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(v)
	if err != nil {
		return fallback
	}
	return parsed
}

// Package config provides environment configuration for the API server.
package config

import (
	"encoding/json"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the application.
type Config struct {
	// Server settings
	ServerPort         string
	ServerReadTimeout  time.Duration
	ServerWriteTimeout time.Duration

	// NATS settings
	NATSURL      string
	NATSCAFile   string
	NATSCertFile string
	NATSKeyFile  string
	NATSToken    string

	// Redis settings. Empty URL selects the in-process store.
	RedisURL string

	// JWT settings
	JWTSecret     string
	JWTExpiration time.Duration

	// AI provider settings
	AnthropicAPIKey string
	OpenAIAPIKey    string
	DefaultProvider string
	EmbeddingModel  string
	ProviderTimeout time.Duration

	// Daily model quotas and exhaustion alternatives, both JSON:
	// {"openai":{"gpt-4o":500}} and {"openai":{"gpt-4o":["gpt-4o-mini"]}}.
	ModelDailyLimits      map[string]map[string]int
	ModelAlternatives     map[string]map[string][]string
	ResponseCacheTTL      time.Duration
	ResponseDebounce      time.Duration
	SimilarityThreshold   float64
	ProductIntentKeywords []string
	ShortQueryThreshold   int

	// Operator-tunable prompt policy text. Empty values keep the stock text.
	PromptStylePolicy   string
	PromptHandoffPolicy string

	// OutboundRelayURL is the edge service holding platform credentials.
	OutboundRelayURL string

	// HTTP rate limiting
	RateLimitRequests int
	RateLimitWindow   time.Duration

	// Logging
	LogLevel string

	// Tracing
	TracingEndpoint string
	TracingEnabled  bool
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		// Server
		ServerPort:         getEnv("PORT", "8080"),
		ServerReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
		ServerWriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),

		// NATS
		NATSURL:      getEnv("NATS_URL", "nats://localhost:4222"),
		NATSCAFile:   getEnv("NATS_CA_FILE", ""),
		NATSCertFile: getEnv("NATS_CERT_FILE", ""),
		NATSKeyFile:  getEnv("NATS_KEY_FILE", ""),
		NATSToken:    getEnv("NATS_TOKEN", ""),

		// Redis
		RedisURL: getEnv("REDIS_URL", ""),

		// JWT
		JWTSecret:     getEnv("JWT_SECRET", "development-secret-change-in-production"),
		JWTExpiration: getDurationEnv("JWT_EXPIRATION", 15*time.Minute),

		// AI providers
		AnthropicAPIKey: getEnv("ANTHROPIC_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		DefaultProvider: getEnv("DEFAULT_PROVIDER", "openai"),
		EmbeddingModel:  getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		ProviderTimeout: getDurationEnv("PROVIDER_TIMEOUT", 60*time.Second),

		ModelDailyLimits:      getJSONEnv[map[string]map[string]int]("MODEL_DAILY_LIMITS"),
		ModelAlternatives:     getJSONEnv[map[string]map[string][]string]("MODEL_ALTERNATIVES"),
		ResponseCacheTTL:      getDurationEnv("RESPONSE_CACHE_TTL", time.Hour),
		ResponseDebounce:      getDurationEnv("RESPONSE_DEBOUNCE", 8*time.Second),
		SimilarityThreshold:   getFloatEnv("SIMILARITY_THRESHOLD", 0.5),
		ProductIntentKeywords: getListEnv("PRODUCT_INTENT_KEYWORDS"),
		ShortQueryThreshold:   getIntEnv("SHORT_QUERY_THRESHOLD", 30),

		PromptStylePolicy:   getEnv("PROMPT_STYLE_POLICY", ""),
		PromptHandoffPolicy: getEnv("PROMPT_HANDOFF_POLICY", ""),

		OutboundRelayURL: getEnv("OUTBOUND_RELAY_URL", "http://localhost:9090"),

		// HTTP rate limiting
		RateLimitRequests: getIntEnv("RATE_LIMIT_REQUESTS", 60),
		RateLimitWindow:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),

		// Logging
		LogLevel: getEnv("LOG_LEVEL", "info"),

		// Tracing
		TracingEndpoint: getEnv("TRACING_ENDPOINT", "localhost:4318"),
		TracingEnabled:  getBoolEnv("TRACING_ENABLED", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getListEnv(key string) []string {
	value := os.Getenv(key)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getJSONEnv[T any](key string) T {
	var out T
	if value := os.Getenv(key); value != "" {
		_ = json.Unmarshal([]byte(value), &out)
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Default pagination bounds shared by every list endpoint.
const (
	DefaultPage     = 1
	DefaultPageSize = 10
	MinPageSize     = 1
	MaxPageSize     = 100
)

// DefaultCallType is the call partition used for every meeting unless
// multi-tenant call types are introduced.
const DefaultCallType = "default"

// AgentUserPrefix prefixes the provider identity registered for an agent
// bot. The webhook participant-joined fallback uses it to tell humans
// from agents.
const AgentUserPrefix = "agent-"

// DefaultAgentInstructions is used when an agent has no instructions set.
const DefaultAgentInstructions = "You are a helpful meeting assistant."

// RealtimeSessionConfig carries the fixed session tuning passed to the
// provider when bridging an AI agent into a call. Values are configuration,
// not magic numbers scattered through handlers.
type RealtimeSessionConfig struct {
	Modalities        []string
	Voice             string
	InputAudioFormat  string
	OutputAudioFormat string
	TurnDetectionType string
	VADThreshold      float64
	PrefixPaddingMs   int
	SilenceDurationMs int
}

// DefaultRealtimeSession returns the stock voice-session tuning.
func DefaultRealtimeSession() RealtimeSessionConfig {
	return RealtimeSessionConfig{
		Modalities:        []string{"text", "audio"},
		Voice:             "alloy",
		InputAudioFormat:  "pcm16",
		OutputAudioFormat: "pcm16",
		TurnDetectionType: "server_vad",
		VADThreshold:      0.5,
		PrefixPaddingMs:   300,
		SilenceDurationMs: 500,
	}
}

// Config holds the application configuration.
type Config struct {
	Port string

	// Realtime call provider credentials
	ProviderAPIKey    string
	ProviderAPISecret string
	ProviderBaseURL   string

	// AI speech engine credential, forwarded to the provider when bridging
	OpenAIAPIKey string

	// Session secret used to validate identity-provider session tokens
	SessionSecret string

	// Redis (optional; token cache degrades gracefully without it)
	RedisHost     string
	RedisPort     string
	RedisPassword string

	// Attachment retry policy: bounded on purpose, the provider retries the
	// whole webhook delivery at a higher level.
	AttachRetryAttempts int
	AttachRetryBackoff  time.Duration

	// Provider user token lifetime and issued-at clock-skew allowance
	TokenTTL     time.Duration
	TokenIATSkew time.Duration

	Realtime RealtimeSessionConfig

	// Per-client request rate for the authenticated API
	APIRateLimit float64
	APIRateBurst int
}

// LoadFromEnv builds the configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Port: getEnvOrDefault("PORT", "8080"),

		ProviderAPIKey:    getEnvOrDefault("STREAM_API_KEY", ""),
		ProviderAPISecret: getEnvOrDefault("STREAM_API_SECRET", ""),
		ProviderBaseURL:   getEnvOrDefault("STREAM_BASE_URL", "https://video.stream-io-api.com"),

		OpenAIAPIKey: getEnvOrDefault("OPENAI_API_KEY", ""),

		SessionSecret: getEnvOrDefault("SESSION_SECRET", ""),

		RedisHost:     getEnvOrDefault("REDIS_HOST", ""),
		RedisPort:     getEnvOrDefault("REDIS_PORT", "6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),

		AttachRetryAttempts: getEnvAsIntOrDefault("ATTACH_RETRY_ATTEMPTS", 3),
		AttachRetryBackoff:  time.Duration(getEnvAsIntOrDefault("ATTACH_RETRY_BACKOFF_MS", 500)) * time.Millisecond,

		TokenTTL:     time.Duration(getEnvAsIntOrDefault("TOKEN_TTL_SECONDS", 3600)) * time.Second,
		TokenIATSkew: time.Duration(getEnvAsIntOrDefault("TOKEN_IAT_SKEW_SECONDS", 60)) * time.Second,

		Realtime: loadRealtimeFromEnv(),

		APIRateLimit: getEnvAsFloatOrDefault("API_RATE_LIMIT", 20),
		APIRateBurst: getEnvAsIntOrDefault("API_RATE_BURST", 40),
	}
}

// ValidateProvider fails fast when realtime provider credentials are missing.
// Missing credentials must never silently degrade into no-ops that look
// successful.
func (c *Config) ValidateProvider() error {
	if c.ProviderAPIKey == "" || c.ProviderAPISecret == "" {
		return fmt.Errorf("realtime provider credentials missing: set STREAM_API_KEY and STREAM_API_SECRET")
	}
	return nil
}

func loadRealtimeFromEnv() RealtimeSessionConfig {
	cfg := DefaultRealtimeSession()
	cfg.Voice = getEnvOrDefault("REALTIME_VOICE", cfg.Voice)
	cfg.VADThreshold = getEnvAsFloatOrDefault("REALTIME_VAD_THRESHOLD", cfg.VADThreshold)
	cfg.PrefixPaddingMs = getEnvAsIntOrDefault("REALTIME_PREFIX_PADDING_MS", cfg.PrefixPaddingMs)
	cfg.SilenceDurationMs = getEnvAsIntOrDefault("REALTIME_SILENCE_DURATION_MS", cfg.SilenceDurationMs)
	return cfg
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsFloatOrDefault gets environment variable as float64 or returns default
func getEnvAsFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

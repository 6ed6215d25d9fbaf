package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the career assistant service.
type Config struct {
	BindAddr                 string
	ShutdownTimeout          time.Duration
	SessionInactivityTimeout time.Duration
	MetricsNamespace         string

	AllowAnyOrigin bool
	AuthRequired   bool

	LLMMode         string
	GroqAPIKey      string
	GroqBaseURL     string
	GroqModel       string
	GroqTemperature float32

	DatabaseURL string
	SQLitePath  string

	MaxUploadBytes int64

	// HistoryContextLimit bounds how many past exchanges a history read
	// returns, regardless of what the client asks for.
	HistoryContextLimit int
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:         envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace: envOrDefault("APP_METRICS_NAMESPACE", "careerguru"),
		AllowAnyOrigin:   false,
		AuthRequired:     true,
		LLMMode:          envOrDefault("LLM_MODE", "auto"),
		GroqAPIKey:       stringsTrimSpace("GROQ_API_KEY"),
		GroqBaseURL:      envOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GroqModel:        envOrDefault("GROQ_MODEL", "llama3-8b-8192"),
		// Matches the temperature the prompts were tuned against.
		GroqTemperature:          0.7,
		DatabaseURL:              stringsTrimSpace("DATABASE_URL"),
		SQLitePath:               stringsTrimSpace("SQLITE_PATH"),
		MaxUploadBytes:           8 << 20,
		HistoryContextLimit:      20,
		ShutdownTimeout:          15 * time.Second,
		SessionInactivityTimeout: 30 * time.Minute,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionInactivityTimeout, err = durationFromEnv("APP_SESSION_INACTIVITY_TIMEOUT", cfg.SessionInactivityTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}
	cfg.AuthRequired, err = boolFromEnv("APP_AUTH_REQUIRED", cfg.AuthRequired)
	if err != nil {
		return Config{}, err
	}
	cfg.GroqTemperature, err = floatFromEnv("GROQ_TEMPERATURE", cfg.GroqTemperature)
	if err != nil {
		return Config{}, err
	}
	cfg.MaxUploadBytes, err = int64FromEnv("APP_MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	if err != nil {
		return Config{}, err
	}
	cfg.HistoryContextLimit, err = intFromEnv("APP_HISTORY_CONTEXT_LIMIT", cfg.HistoryContextLimit)
	if err != nil {
		return Config{}, err
	}

	if cfg.SessionInactivityTimeout < 5*time.Second {
		return Config{}, fmt.Errorf("APP_SESSION_INACTIVITY_TIMEOUT must be at least 5s")
	}
	if cfg.GroqTemperature < 0 || cfg.GroqTemperature > 2 {
		return Config{}, fmt.Errorf("GROQ_TEMPERATURE must be between 0 and 2")
	}
	if cfg.MaxUploadBytes <= 0 {
		return Config{}, fmt.Errorf("APP_MAX_UPLOAD_BYTES must be positive")
	}
	if cfg.HistoryContextLimit <= 0 {
		return Config{}, fmt.Errorf("APP_HISTORY_CONTEXT_LIMIT must be positive")
	}
	if strings.EqualFold(strings.TrimSpace(cfg.LLMMode), "groq") && cfg.GroqAPIKey == "" {
		return Config{}, fmt.Errorf("GROQ_API_KEY is required when LLM_MODE=groq")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func stringsTrimSpace(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func int64FromEnv(key string, fallback int64) (int64, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func floatFromEnv(key string, fallback float32) (float32, error) {
	v := stringsTrimSpace(key)
	if v == "" {
		return fallback, nil
	}
	f, err := strconv.ParseFloat(v, 32)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return float32(f), nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(stringsTrimSpace(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}

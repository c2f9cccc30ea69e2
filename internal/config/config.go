package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/quizrail/quizrail-backend/internal/model"
)

// Config holds all application configuration. Everything that varies per
// deployment, including the result collector URL, is injected here;
// nothing lives as a process-wide constant.
type Config struct {
	ServerPort string
	GinMode    string
	LogLevel   string
	LogFormat  string
	// DatabaseURL points at the result archive. Empty disables archiving
	// and the dashboard stats; sessions run fine without it.
	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string
	JWTSecret   string
	JWTExpiry   time.Duration
	// ContentDir holds the exam JSON documents.
	ContentDir string
	// SinkURL is the external result collector endpoint. Empty disables
	// remote delivery (results stay in the local archive only).
	SinkURL string
	// NavPolicy selects free or forward-only question navigation.
	NavPolicy model.NavigationPolicy
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load() // Ignore error — .env is optional

	return &Config{
		ServerPort:     getEnv("SERVER_PORT", "8080"),
		GinMode:        getEnv("GIN_MODE", "debug"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		LogFormat:      getEnv("LOG_FORMAT", "pretty"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		MaxDBConns:     int32(getEnvInt("MAX_DB_CONNS", 16)),
		RedisURL:       getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:      getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		JWTExpiry:      time.Duration(getEnvInt("JWT_EXPIRY_HOURS", 24)) * time.Hour,
		ContentDir:     getEnv("CONTENT_DIR", "./content"),
		SinkURL:        getEnv("SINK_URL", ""),
		NavPolicy:      parsePolicy(getEnv("NAV_POLICY", "free")),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
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

// parsePolicy maps the env value onto a navigation policy, falling back to
// free navigation for anything unrecognized.
func parsePolicy(raw string) model.NavigationPolicy {
	if strings.EqualFold(raw, string(model.NavigationForwardOnly)) {
		return model.NavigationForwardOnly
	}
	return model.NavigationFree
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}

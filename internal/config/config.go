package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds portal gateway configuration.
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Upstream healthcare backend.
	BackendBaseURL string
	BackendTimeout time.Duration

	// Authentication.
	AuthMode      string // "stub" or "remote"
	AuthJWTSecret string
	AuthStubDelay time.Duration
	TokenTTL      time.Duration

	// Session persistence.
	SessionBackend string // "redis" or "memory"
	SessionTTL     time.Duration
	RedisAddr      string
	RedisPassword  string
	RedisTLS       bool

	// Booking.
	BookingWindowDays int

	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables.
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8081"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		BackendBaseURL: getEnv("BACKEND_BASE_URL", "http://localhost:8080/api"),
		BackendTimeout: getEnvAsDuration("BACKEND_TIMEOUT", 30*time.Second),

		AuthMode:      strings.ToLower(strings.TrimSpace(getEnv("AUTH_MODE", "stub"))),
		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),
		AuthStubDelay: getEnvAsDuration("AUTH_STUB_DELAY", time.Second),
		TokenTTL:      getEnvAsDuration("TOKEN_TTL", 12*time.Hour),

		SessionBackend: strings.ToLower(strings.TrimSpace(getEnv("SESSION_BACKEND", "redis"))),
		SessionTTL:     getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		RedisAddr:      getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisTLS:       getEnvAsBool("REDIS_TLS", false),

		BookingWindowDays: getEnvAsInt("BOOKING_WINDOW_DAYS", 31),

		CORSAllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", nil),
	}
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value.
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

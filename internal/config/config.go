package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the node.
type Config struct {
	Port                  string
	DatabaseURL           string
	RedisURL              string
	PrivateKeyPath        string
	PasswordEncryptionKey string
	JWTSecret             string
	JWTIssuer             string
	MaxFanOut             int
	RemoteTimeout         time.Duration
	EventRateLimit        int
	RateLimitWindow       time.Duration

	CircuitFailureThreshold int
	CircuitCooldown         time.Duration
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first when present; real environment values win.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Port:                  getEnv("PORT", "8080"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		RedisURL:              getEnv("REDIS_URL", ""),
		PrivateKeyPath:        getEnv("PRIVATE_KEY_PATH", "credentials/private-key.pem"),
		PasswordEncryptionKey: getEnv("PASSWORD_ENCRYPTION_KEY", ""),
		JWTSecret:             getEnv("JWT_SECRET", ""),
		JWTIssuer:             getEnv("JWT_ISSUER", "harmony"),
		MaxFanOut:             getEnvInt("MAX_FAN_OUT", 8),
		RemoteTimeout:         getEnvDuration("REMOTE_TIMEOUT", 10*time.Second),
		EventRateLimit:        getEnvInt("EVENT_RATE_LIMIT", 0),
		RateLimitWindow:       getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		CircuitFailureThreshold: getEnvInt("CIRCUIT_FAILURE_THRESHOLD", 5),
		CircuitCooldown:         getEnvDuration("CIRCUIT_COOLDOWN", 30*time.Second),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.PasswordEncryptionKey == "" {
		return nil, fmt.Errorf("PASSWORD_ENCRYPTION_KEY is required")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MaxFanOut <= 0 {
		return nil, fmt.Errorf("MAX_FAN_OUT must be positive, got %d", cfg.MaxFanOut)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err == nil {
			return d
		}
	}
	return fallback
}

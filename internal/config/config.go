package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const devJWTSecret = "dev-secret-change-me"

// Config holds all configuration for the application
type Config struct {
	// Server
	Port            string
	LogMode         string // dev, prod
	ShutdownTimeout time.Duration
	CORSOrigins     []string

	// Database
	DatabaseURL string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	DBSSLMode   string
	AutoMigrate bool
	SeedPath    string // optional override for the embedded achievement seed

	// Identity
	JWTSecret string

	// Cache
	RedisAddr     string // empty selects the in-process cache
	RedisPassword string
	RedisDB       int

	// AI assistant
	AIDailyLimit    int
	AnthropicAPIKey string
	AnthropicModel  string

	// Leaderboard
	LeaderboardFanout  int
	LeaderboardTimeout time.Duration
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		LogMode:            getEnv("LOG_MODE", "dev"),
		ShutdownTimeout:    getEnvDuration("SHUTDOWN_TIMEOUT", 15*time.Second),
		CORSOrigins:        splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USER", "codebro"),
		DBPassword:         getEnv("DB_PASSWORD", "codebro"),
		DBName:             getEnv("DB_NAME", "codebro"),
		DBSSLMode:          getEnv("DB_SSLMODE", "disable"),
		AutoMigrate:        getEnvBool("AUTO_MIGRATE", true),
		SeedPath:           getEnv("ACHIEVEMENTS_SEED", ""),
		JWTSecret:          getEnv("JWT_SECRET", devJWTSecret),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            getEnvInt("REDIS_DB", 0),
		AIDailyLimit:       getEnvInt("AI_DAILY_LIMIT", 10),
		AnthropicAPIKey:    getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     getEnv("ANTHROPIC_MODEL", "claude-sonnet-4-20250514"),
		LeaderboardFanout:  getEnvInt("LEADERBOARD_FANOUT", 8),
		LeaderboardTimeout: getEnvDuration("LEADERBOARD_QUERY_TIMEOUT", 5*time.Second),
	}

	if cfg.JWTSecret == devJWTSecret && !cfg.IsDev() {
		return nil, fmt.Errorf("JWT_SECRET must be set in production")
	}
	if cfg.AIDailyLimit <= 0 {
		return nil, fmt.Errorf("AI_DAILY_LIMIT must be positive, got %d", cfg.AIDailyLimit)
	}
	if cfg.LeaderboardFanout <= 0 {
		cfg.LeaderboardFanout = 1
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.LogMode != "prod" && c.LogMode != "production"
}

// DSN returns DATABASE_URL when set, otherwise a key/value DSN built from the DB_* settings.
func (c *Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
// ⭐ SSOT: 모든 환경변수는 여기서만 읽음
type Config struct {
	// Server
	Port string
	Env  string // development, staging, production, test

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External APIs
	AlphaVantage AlphaVantageConfig
	Narrative    NarrativeConfig

	// Cache TTLs
	Cache CacheConfig

	// Watchlist refresh
	Watchlist WatchlistConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Prefix   string
	Enabled  bool
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL string

	// Connection Pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// AlphaVantageConfig holds market data provider configuration
type AlphaVantageConfig struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration

	// RequestDelay is slept after every upstream cache miss.
	RequestDelay  time.Duration
	RatePerMinute int
}

// NarrativeConfig holds the narrative generator endpoint and worker sizing
type NarrativeConfig struct {
	Endpoint  string
	Model     string
	Timeout   time.Duration
	Workers   int
	QueueSize int
}

// CacheConfig holds TTLs for every cache key family
type CacheConfig struct {
	FundamentalTTL time.Duration
	TechnicalTTL   time.Duration
	DailyTTL       time.Duration
	CombinedTTL    time.Duration
	NarrativeTTL   time.Duration
}

// WatchlistConfig holds the symbols refreshed by the scheduler.
// File, when set, takes precedence over Symbols.
type WatchlistConfig struct {
	File     string
	Symbols  []string
	Schedule string
}

// Load reads configuration from environment variables
// ⭐ SSOT: 이 함수만 os.Getenv()를 호출함
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		// Server
		Port: getEnv("PORT", "8080"),
		Env:  getEnv("ENV", "development"),

		// Database
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		// Redis
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Prefix:   getEnv("REDIS_PREFIX", "equitylens"),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},

		// External APIs
		AlphaVantage: AlphaVantageConfig{
			APIKey:        getEnv("ALPHA_VANTAGE_API_KEY", ""),
			BaseURL:       getEnv("ALPHA_VANTAGE_BASE_URL", "https://www.alphavantage.co/query"),
			Timeout:       getEnvAsDuration("ALPHA_VANTAGE_TIMEOUT", "15s"),
			RequestDelay:  getEnvAsDuration("ALPHA_VANTAGE_REQUEST_DELAY", "12s"),
			RatePerMinute: getEnvAsInt("ALPHA_VANTAGE_RATE_PER_MINUTE", 5),
		},

		Narrative: NarrativeConfig{
			Endpoint:  getEnv("NARRATIVE_ENDPOINT", ""),
			Model:     getEnv("NARRATIVE_MODEL", "llama3:8b"),
			Timeout:   getEnvAsDuration("NARRATIVE_TIMEOUT", "90s"),
			Workers:   getEnvAsInt("NARRATIVE_WORKERS", 2),
			QueueSize: getEnvAsInt("NARRATIVE_QUEUE_SIZE", 64),
		},

		Cache: CacheConfig{
			FundamentalTTL: getEnvAsDuration("CACHE_TTL_FUNDAMENTAL", "1h"),
			TechnicalTTL:   getEnvAsDuration("CACHE_TTL_TECHNICAL", "1h"),
			DailyTTL:       getEnvAsDuration("CACHE_TTL_DAILY", "1h"),
			CombinedTTL:    getEnvAsDuration("CACHE_TTL_COMBINED", "20m"),
			NarrativeTTL:   getEnvAsDuration("CACHE_TTL_NARRATIVE", "24h"),
		},

		Watchlist: WatchlistConfig{
			File:     getEnv("WATCHLIST_FILE", ""),
			Symbols:  getEnvAsList("WATCHLIST", nil),
			Schedule: getEnv("WATCHLIST_SCHEDULE", "0 30 6 * * 1-5"),
		},

		// Logging
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		// Monitoring
		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if configuration values are consistent
func (c *Config) validate() error {
	switch c.Env {
	case "development", "staging", "production", "test":
	default:
		return fmt.Errorf("ENV must be one of: development, staging, production, test")
	}

	if c.AlphaVantage.RequestDelay < 0 {
		return fmt.Errorf("ALPHA_VANTAGE_REQUEST_DELAY must not be negative")
	}

	if c.Narrative.Workers < 1 {
		return fmt.Errorf("NARRATIVE_WORKERS must be at least 1")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
		"backend/.env",
	}

	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
		)
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			_ = godotenv.Load(path)
			return
		}
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue string) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		valueStr = defaultValue
	}

	duration, err := time.ParseDuration(valueStr)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}

	return duration
}

// getEnvAsList splits a comma separated value, dropping blanks
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

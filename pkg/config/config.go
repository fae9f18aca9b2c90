package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application.
// All environment variables are read here and nowhere else.
type Config struct {
	// Server
	Port     string
	Env      string // development, staging, production
	APIToken string // bearer token for authenticated endpoints; empty disables auth

	// Database
	Database DatabaseConfig

	// Redis
	Redis RedisConfig

	// External services
	MarketData MarketDataConfig
	ML         MLConfig
	Lambda     LambdaConfig

	// Signal engine defaults
	Engine EngineConfig

	// Logging
	LogLevel  string
	LogFormat string

	// Monitoring
	MetricsEnabled bool
	MetricsPort    string
}

// DatabaseConfig holds PostgreSQL configuration.
type DatabaseConfig struct {
	URL string

	// Connection pool
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

// RedisConfig holds Redis configuration.
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// MarketDataConfig holds the quote API configuration.
type MarketDataConfig struct {
	BaseURL   string
	APIKey    string
	APISecret string
}

// MLConfig holds the external prediction service configuration.
type MLConfig struct {
	BaseURL        string
	PredictTimeout time.Duration
	HealthTimeout  time.Duration
}

// LambdaConfig holds the user-transform execution service configuration.
type LambdaConfig struct {
	BaseURL string
	Timeout time.Duration
}

// EngineConfig holds signal engine defaults that are not weight knobs.
type EngineConfig struct {
	DefaultBlendWeight float64 // heuristic/ML blend, overridable via stored config row
	ReferenceThreshold float64 // minimum confidence for reference-portfolio queueing
}

// Load reads configuration from environment variables.
// This is the only function that calls os.Getenv().
func Load() (*Config, error) {
	loadEnvFile()

	cfg := &Config{
		Port:     getEnv("PORT", "8090"),
		Env:      getEnv("ENV", "development"),
		APIToken: getEnv("API_TOKEN", ""),

		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", "1h"),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", "30m"),
		},

		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", false),
		},

		MarketData: MarketDataConfig{
			BaseURL:   getEnv("MARKET_DATA_BASE_URL", "https://data.alpaca.markets/v2"),
			APIKey:    getEnv("MARKET_DATA_API_KEY", ""),
			APISecret: getEnv("MARKET_DATA_API_SECRET", ""),
		},

		ML: MLConfig{
			BaseURL:        getEnv("ML_SERVICE_URL", ""),
			PredictTimeout: getEnvAsDuration("ML_PREDICT_TIMEOUT", "10s"),
			HealthTimeout:  getEnvAsDuration("ML_HEALTH_TIMEOUT", "5s"),
		},

		Lambda: LambdaConfig{
			BaseURL: getEnv("LAMBDA_SERVICE_URL", ""),
			Timeout: getEnvAsDuration("LAMBDA_TIMEOUT", "15s"),
		},

		Engine: EngineConfig{
			DefaultBlendWeight: getEnvAsFloat("ML_BLEND_WEIGHT", 0.2),
			ReferenceThreshold: getEnvAsFloat("REFERENCE_THRESHOLD", 0.70),
		},

		LogLevel:  getEnv("LOG_LEVEL", "debug"),
		LogFormat: getEnv("LOG_FORMAT", "json"),

		MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		MetricsPort:    getEnv("METRICS_PORT", "9090"),
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// validate checks if required configuration values are set.
func (c *Config) validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Env != "development" && c.Env != "staging" && c.Env != "production" {
		return fmt.Errorf("ENV must be one of: development, staging, production")
	}

	if c.Engine.DefaultBlendWeight < 0 || c.Engine.DefaultBlendWeight > 1 {
		return fmt.Errorf("ML_BLEND_WEIGHT must be in [0, 1]")
	}

	return nil
}

// Helper functions (private, only used within this file)

// loadEnvFile tries to load .env from multiple locations
func loadEnvFile() {
	paths := []string{
		".env",
	}

	// Also try relative to executable
	if exe, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exe)
		paths = append(paths,
			filepath.Join(exeDir, ".env"),
			filepath.Join(exeDir, "..", ".env"),
			filepath.Join(exeDir, "..", "..", ".env"),
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseFloat(valueStr, 64)
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

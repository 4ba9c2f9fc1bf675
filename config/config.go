package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Classifier ClassifierConfig
	Triage     TriageConfig
	Pipeline   PipelineConfig
	RateLimit  RateLimitConfig
	Logging    LoggingConfig
	Metrics    MetricsConfig
	CORS       CORSConfig
}

type ServerConfig struct {
	Host                    string
	Port                    int
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	IdleTimeout             time.Duration
	GracefulShutdownTimeout time.Duration
}

type DatabaseConfig struct {
	URL             string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type RedisConfig struct {
	URL string
}

// ClassifierConfig points at the zero-shot classification sidecar.
// An empty URL disables it and every verdict takes the keyword-only path.
type ClassifierConfig struct {
	URL       string
	Timeout   time.Duration
	RateLimit float64 // calls per second, 0 disables limiting
	CacheTTL  time.Duration
}

type TriageConfig struct {
	DuplicateWindowDegrees float64
	DuplicateLookback      time.Duration
	DuplicateLimit         int
	SimilarityThreshold    float64
	SpamConfidenceFloor    float64
	Timeout                time.Duration
}

type PipelineConfig struct {
	RateLimit     float64
	WorkerCount   int
	RetryAttempts int
	RetryDelay    time.Duration
}

type RateLimitConfig struct {
	SubmissionsPerMinute int
}

type LoggingConfig struct {
	Level  string
	Format string // json or text
}

type MetricsConfig struct {
	Enabled bool
	Port    int
	Path    string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:                    getEnv("SERVER_HOST", "0.0.0.0"),
			Port:                    getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:             getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:            getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:             getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			GracefulShutdownTimeout: getEnvDuration("SERVER_GRACEFUL_SHUTDOWN_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			URL:             getEnv("DATABASE_URL", ""),
			MaxConns:        getEnvInt("DB_MAX_CONNS", 20),
			MinConns:        getEnvInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvDuration("DB_MAX_CONN_LIFETIME", 1*time.Hour),
			MaxConnIdleTime: getEnvDuration("DB_MAX_CONN_IDLE_TIME", 30*time.Second),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Classifier: ClassifierConfig{
			URL:       strings.TrimRight(getEnv("CLASSIFIER_URL", ""), "/"),
			Timeout:   getEnvDuration("CLASSIFIER_TIMEOUT", 10*time.Second),
			RateLimit: getEnvFloat("CLASSIFIER_RATE_LIMIT", 10),
			CacheTTL:  getEnvDuration("CLASSIFIER_CACHE_TTL", 24*time.Hour),
		},
		Triage: TriageConfig{
			DuplicateWindowDegrees: getEnvFloat("TRIAGE_DUPLICATE_WINDOW_DEGREES", 0.00045),
			DuplicateLookback:      getEnvDuration("TRIAGE_DUPLICATE_LOOKBACK", 7*24*time.Hour),
			DuplicateLimit:         getEnvInt("TRIAGE_DUPLICATE_LIMIT", 10),
			SimilarityThreshold:    getEnvFloat("TRIAGE_SIMILARITY_THRESHOLD", 0.3),
			SpamConfidenceFloor:    getEnvFloat("TRIAGE_SPAM_CONFIDENCE_FLOOR", 0.2),
			Timeout:                getEnvDuration("TRIAGE_TIMEOUT", 30*time.Second),
		},
		Pipeline: PipelineConfig{
			RateLimit:     getEnvFloat("PIPELINE_RATE_LIMIT", 5.0),
			WorkerCount:   getEnvInt("PIPELINE_WORKER_COUNT", 4),
			RetryAttempts: getEnvInt("PIPELINE_RETRY_ATTEMPTS", 2),
			RetryDelay:    getEnvDuration("PIPELINE_RETRY_DELAY", 2*time.Second),
		},
		RateLimit: RateLimitConfig{
			SubmissionsPerMinute: getEnvInt("RATE_LIMIT_SUBMISSIONS_PER_MINUTE", 10),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Port:    getEnvInt("METRICS_PORT", 9090),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("database max connections must be at least 1")
	}
	if c.Pipeline.WorkerCount < 1 {
		return fmt.Errorf("pipeline worker count must be at least 1")
	}
	if c.Triage.DuplicateWindowDegrees <= 0 {
		return fmt.Errorf("duplicate window must be positive, got %v", c.Triage.DuplicateWindowDegrees)
	}
	if c.Triage.DuplicateLimit < 1 {
		return fmt.Errorf("duplicate limit must be at least 1")
	}
	if c.Triage.SimilarityThreshold < 0 || c.Triage.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity threshold must be within [0,1], got %v", c.Triage.SimilarityThreshold)
	}
	if c.Classifier.RateLimit < 0 {
		return fmt.Errorf("classifier rate limit must not be negative")
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

// Package config provides configuration management functionality.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	"github.com/agrisentinel/agrisentinel/internal/utils"
)

// Config holds application configuration
type Config struct {
	DataDir          string // Base directory for the engine and history databases (always absolute)
	DomainConfigDir  string // Optional directory of YAML domain configs overriding the embedded set
	LogLevel         string
	Port             int
	DevMode          bool
	StubSeed         int64
	Cache            CacheConfig
	Kafka            KafkaConfig
	Archive          ArchiveConfig
	Schedules        ScheduleConfig
	HistoryRetention time.Duration
}

// CacheConfig holds the optional Redis series cache settings
type CacheConfig struct {
	RedisAddr string
	TTL       time.Duration
}

// Enabled reports whether a Redis address was configured
func (c CacheConfig) Enabled() bool { return c.RedisAddr != "" }

// KafkaConfig holds optional event forwarding settings
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Enabled reports whether brokers were configured
func (c KafkaConfig) Enabled() bool { return len(c.Brokers) > 0 }

// ArchiveConfig holds the S3-compatible archive settings
type ArchiveConfig struct {
	Bucket        string
	Endpoint      string // Empty uses the AWS endpoint for Region
	Region        string
	AccessKey     string
	SecretKey     string
	RetentionDays int
}

// Enabled reports whether an archive bucket was configured
func (c ArchiveConfig) Enabled() bool { return c.Bucket != "" }

// ScheduleConfig holds cron specs for background jobs
type ScheduleConfig struct {
	Sweep       string
	Archive     string
	Maintenance string
	Prune       string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dataDir, err := filepath.Abs(getEnv("AGRI_DATA_DIR", "./data"))
	if err != nil {
		return nil, fmt.Errorf("failed to resolve data directory path: %w", err)
	}
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	cfg := &Config{
		DataDir:         dataDir,
		DomainConfigDir: getEnv("DOMAIN_CONFIG_DIR", ""),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		Port:            getEnvAsInt("PORT", 8001),
		DevMode:         getEnvAsBool("DEV_MODE", false),
		StubSeed:        int64(getEnvAsInt("STUB_PROVIDER_SEED", 1)),
		Cache: CacheConfig{
			RedisAddr: getEnv("REDIS_ADDR", ""),
			TTL:       time.Duration(getEnvAsInt("SERIES_CACHE_TTL_SECONDS", 300)) * time.Second,
		},
		Kafka: KafkaConfig{
			Brokers: utils.ParseCSV(getEnv("KAFKA_BROKERS", "")),
			Topic:   getEnv("KAFKA_TOPIC", "agrisentinel.events"),
		},
		Archive: ArchiveConfig{
			Bucket:        getEnv("ARCHIVE_BUCKET", ""),
			Endpoint:      getEnv("ARCHIVE_ENDPOINT", ""),
			Region:        getEnv("ARCHIVE_REGION", "auto"),
			AccessKey:     getEnv("ARCHIVE_ACCESS_KEY", ""),
			SecretKey:     getEnv("ARCHIVE_SECRET_KEY", ""),
			RetentionDays: getEnvAsInt("ARCHIVE_RETENTION_DAYS", 30),
		},
		Schedules: ScheduleConfig{
			Sweep:       getEnv("SWEEP_SCHEDULE", "@every 1h"),
			Archive:     getEnv("ARCHIVE_SCHEDULE", "@daily"),
			Maintenance: getEnv("MAINTENANCE_SCHEDULE", "0 2 * * *"),
			Prune:       getEnv("PRUNE_SCHEDULE", "0 3 * * *"),
		},
		HistoryRetention: time.Duration(getEnvAsInt("HISTORY_RETENTION_DAYS", 365)) * 24 * time.Hour,
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges and cron specs
func (c *Config) Validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("SERIES_CACHE_TTL_SECONDS must be positive")
	}
	if c.HistoryRetention <= 0 {
		return fmt.Errorf("HISTORY_RETENTION_DAYS must be positive")
	}
	if c.Kafka.Enabled() && c.Kafka.Topic == "" {
		return fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.Archive.Enabled() && (c.Archive.AccessKey == "" || c.Archive.SecretKey == "") {
		return fmt.Errorf("ARCHIVE_ACCESS_KEY and ARCHIVE_SECRET_KEY are required when ARCHIVE_BUCKET is set")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	for name, spec := range map[string]string{
		"SWEEP_SCHEDULE":       c.Schedules.Sweep,
		"ARCHIVE_SCHEDULE":     c.Schedules.Archive,
		"MAINTENANCE_SCHEDULE": c.Schedules.Maintenance,
		"PRUNE_SCHEDULE":       c.Schedules.Prune,
	} {
		if _, err := parser.Parse(spec); err != nil {
			return fmt.Errorf("invalid %s %q: %w", name, spec, err)
		}
	}
	return nil
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

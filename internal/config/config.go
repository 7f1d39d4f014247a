package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port string

	// Auth
	UIFuseAPIKey string

	// Device access
	ADBPath    string
	ADBTimeout time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Retention
	JobTTL       time.Duration
	MaxSnapshots int

	// Match rules override file (optional)
	RulesFile string
}

func Load() Config {
	cfg := Config{
		Port: envOr("PORT", "8090"),

		UIFuseAPIKey: os.Getenv("UIFUSE_API_KEY"),

		ADBPath:    envOr("ADB_PATH", "adb"),
		ADBTimeout: envDuration("ADB_TIMEOUT", 30*time.Second),

		WorkerCount:  envInt("WORKER_COUNT", 2),
		MaxQueueSize: envInt("MAX_QUEUE_SIZE", 50),

		MaxUploadBytes: envInt64("MAX_UPLOAD_BYTES", 20971520), // 20MB

		JobTTL:       envDuration("JOB_TTL", 1*time.Hour),
		MaxSnapshots: envInt("MAX_SNAPSHOTS", 100),

		RulesFile: os.Getenv("RULES_FILE"),
	}

	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = 50
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20971520
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 1 * time.Hour
	}
	if cfg.MaxSnapshots <= 0 {
		cfg.MaxSnapshots = 100
	}
	if cfg.ADBTimeout <= 0 {
		cfg.ADBTimeout = 30 * time.Second
	}

	return cfg
}

func (c Config) Validate() error {
	if c.UIFuseAPIKey == "" {
		return fmt.Errorf("UIFUSE_API_KEY is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

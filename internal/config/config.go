package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is read when no explicit config path is given.
const DefaultFile = "bucks2bar.yaml"

var (
	validBackends  = []string{"memory", "sqlite", "file"}
	validSeedModes = []string{"restore", "random", "blank"}
	validLogLevels = []string{"debug", "info", "warn", "error"}
)

type Config struct {
	// HTTP Server
	Port         string `yaml:"port"`
	RateLimitRPM int    `yaml:"rate_limit_rpm"`

	// Storage
	DataBackend       string        `yaml:"data_backend"`
	SQLiteDBPath      string        `yaml:"sqlite_db_path"`
	DataFilePath      string        `yaml:"data_file_path"`
	StorageKey        string        `yaml:"storage_key"`
	StorageQuotaBytes int           `yaml:"storage_quota_bytes"`
	CacheTTL          time.Duration `yaml:"cache_ttl"`
	CacheSize         int           `yaml:"cache_size"`

	// Widget
	DebounceWait time.Duration `yaml:"debounce_wait"`
	SeedMode     string        `yaml:"seed_mode"`
	ChartWidth   int           `yaml:"chart_width"`
	ChartHeight  int           `yaml:"chart_height"`

	LogLevel string `yaml:"log_level"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:         "8081",
		RateLimitRPM: 1200,

		DataBackend:       "sqlite",
		SQLiteDBPath:      "./data/bucks2bar.db",
		DataFilePath:      "./data/bucks2bar.json",
		StorageKey:        "bucks2bar.data",
		StorageQuotaBytes: 0,
		CacheTTL:          5 * time.Minute,
		CacheSize:         16,

		DebounceWait: 300 * time.Millisecond,
		SeedMode:     "random",
		ChartWidth:   960,
		ChartHeight:  480,

		LogLevel: "info",
	}
}

// Load layers defaults, the YAML file at path and the environment. A
// missing file is not an error; an empty path falls back to CONFIG_FILE
// and then DefaultFile.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = getEnv("CONFIG_FILE", DefaultFile)
	}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Port = getEnv("PORT", c.Port)
	c.RateLimitRPM = getEnvInt("RATE_LIMIT_RPM", c.RateLimitRPM)

	c.DataBackend = getEnv("DATA_BACKEND", c.DataBackend)
	c.SQLiteDBPath = getEnv("SQLITE_DB_PATH", c.SQLiteDBPath)
	c.DataFilePath = getEnv("DATA_FILE_PATH", c.DataFilePath)
	c.StorageKey = getEnv("STORAGE_KEY", c.StorageKey)
	c.StorageQuotaBytes = getEnvInt("STORAGE_QUOTA_BYTES", c.StorageQuotaBytes)
	c.CacheTTL = getEnvDuration("CACHE_TTL", c.CacheTTL)
	c.CacheSize = getEnvInt("CACHE_SIZE", c.CacheSize)

	c.DebounceWait = getEnvDuration("DEBOUNCE_WAIT", c.DebounceWait)
	c.SeedMode = getEnv("SEED_MODE", c.SeedMode)
	c.ChartWidth = getEnvInt("CHART_WIDTH", c.ChartWidth)
	c.ChartHeight = getEnvInt("CHART_HEIGHT", c.ChartHeight)

	c.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", c.LogLevel))
}

// Validate validates the configuration and returns every problem at once.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if !oneOf(c.DataBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	switch c.DataBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if msg := ensureDir(c.SQLiteDBPath); msg != "" {
			errors = append(errors, msg)
		}
	case "file":
		if c.DataFilePath == "" {
			errors = append(errors, "data file path cannot be empty when using file backend")
		} else if msg := ensureDir(c.DataFilePath); msg != "" {
			errors = append(errors, msg)
		}
	}

	if strings.TrimSpace(c.StorageKey) == "" {
		errors = append(errors, "storage key cannot be empty")
	}
	if c.StorageQuotaBytes < 0 {
		errors = append(errors, fmt.Sprintf("invalid storage quota %d: must be 0 (unlimited) or positive", c.StorageQuotaBytes))
	}
	if c.CacheSize < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache size %d: must be at least 0", c.CacheSize))
	}
	if c.CacheTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid cache ttl %v: must not be negative", c.CacheTTL))
	}

	if c.DebounceWait < 0 {
		errors = append(errors, fmt.Sprintf("invalid debounce wait %v: must not be negative", c.DebounceWait))
	} else if c.DebounceWait > time.Minute {
		errors = append(errors, fmt.Sprintf("invalid debounce wait %v: must be at most 1 minute", c.DebounceWait))
	}

	if !oneOf(c.SeedMode, validSeedModes) {
		errors = append(errors, fmt.Sprintf("invalid seed mode '%s': must be one of %v", c.SeedMode, validSeedModes))
	}

	if c.ChartWidth < 100 || c.ChartWidth > 4096 {
		errors = append(errors, fmt.Sprintf("invalid chart width %d: must be between 100 and 4096", c.ChartWidth))
	}
	if c.ChartHeight < 100 || c.ChartHeight > 4096 {
		errors = append(errors, fmt.Sprintf("invalid chart height %d: must be between 100 and 4096", c.ChartHeight))
	}

	if c.RateLimitRPM < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitRPM))
	}

	if !oneOf(c.LogLevel, validLogLevels) {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of %v", c.LogLevel, validLogLevels))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func ensureDir(path string) string {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return ""
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Sprintf("cannot create data directory '%s': %v", dir, err)
		}
	}
	return ""
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
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

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

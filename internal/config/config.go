// Package config loads the service configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendFile   = "file"
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config is the root configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Storage    StorageConfig    `yaml:"storage"`
	Events     EventsConfig     `yaml:"events"`
	Rejections RejectionsConfig `yaml:"rejections"`
	API        APIConfig        `yaml:"api"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// HTTPConfig configures the listener and browser-facing concerns.
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	StaticDir       string        `yaml:"static_dir"` // dashboard assets; empty disables the SPA fallback
	AllowedOrigins  []string      `yaml:"allowed_origins"`
	ReadTimeout     time.Duration `yaml:"read_timeout"`
	WriteTimeout    time.Duration `yaml:"write_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// StorageConfig selects and configures the persister.
type StorageConfig struct {
	Backend    string `yaml:"backend"`
	FilePath   string `yaml:"file_path"`
	SQLitePath string `yaml:"sqlite_path"`
	RedisAddr  string `yaml:"redis_addr"`
	RedisKey   string `yaml:"redis_key"`
}

// EventsConfig configures change-event publishing. An empty broker disables it.
type EventsConfig struct {
	KafkaBroker string `yaml:"kafka_broker"`
	Topic       string `yaml:"topic"`
}

// RejectionsConfig configures the rejected-write log. An empty dir disables it.
type RejectionsConfig struct {
	Dir string `yaml:"dir"`
}

// APIConfig tunes request handling.
type APIConfig struct {
	AllowGlobalLookup bool          `yaml:"allow_global_lookup"`
	StatsCacheTTL     time.Duration `yaml:"stats_cache_ttl"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json or console
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Addr:            ":3000",
			StaticDir:       "",
			AllowedOrigins:  []string{"*"},
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    15 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    BackendFile,
			FilePath:   "data.json",
			SQLitePath: filepath.Join("data", "repdir.db"),
			RedisAddr:  "localhost:6379",
			RedisKey:   "repdir:directory",
		},
		Events: EventsConfig{
			Topic: "directory.changes",
		},
		API: APIConfig{
			StatsCacheTTL: 30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load reads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		c.HTTP.Addr = ":" + v
	}
	if v := os.Getenv("REPDIR_HTTP_ADDR"); v != "" {
		c.HTTP.Addr = v
	}
	if v := os.Getenv("REPDIR_STATIC_DIR"); v != "" {
		c.HTTP.StaticDir = v
	}
	if v := os.Getenv("REPDIR_STORAGE"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("REPDIR_DATA_FILE"); v != "" {
		c.Storage.FilePath = v
	}
	if v := os.Getenv("REPDIR_SQLITE_PATH"); v != "" {
		c.Storage.SQLitePath = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Storage.RedisAddr = v
	}
	if v := os.Getenv("KAFKA_BROKER"); v != "" {
		c.Events.KafkaBroker = v
	}
	if v := os.Getenv("REPDIR_REJECTIONS_DIR"); v != "" {
		c.Rejections.Dir = v
	}
	if v := os.Getenv("REPDIR_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
}

// Validate reports configuration that cannot be served.
func (c *Config) Validate() error {
	if c.HTTP.Addr == "" {
		return fmt.Errorf("http.addr is required")
	}
	switch c.Storage.Backend {
	case BackendFile:
		if c.Storage.FilePath == "" {
			return fmt.Errorf("storage.file_path is required for the file backend")
		}
	case BackendSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite backend")
		}
	case BackendRedis:
		if c.Storage.RedisAddr == "" || c.Storage.RedisKey == "" {
			return fmt.Errorf("storage.redis_addr and storage.redis_key are required for the redis backend")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	if c.Events.KafkaBroker != "" && c.Events.Topic == "" {
		return fmt.Errorf("events.topic is required when events.kafka_broker is set")
	}
	if c.API.StatsCacheTTL <= 0 {
		return fmt.Errorf("api.stats_cache_ttl must be positive")
	}
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("unknown logging format %q", c.Logging.Format)
	}
	return nil
}

// Package config provides configuration management for the Clipmark Agent.
// Configuration is loaded from environment variables with sensible defaults.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// Default values
	DefaultPort     = 8787
	DefaultLogLevel = "info"
	DefaultDataDir  = ".clipmark"
	DefaultStorage  = StorageSQLite

	// Environment variable names
	EnvPort            = "CLIPMARK_PORT"
	EnvLogLevel        = "CLIPMARK_LOG_LEVEL"
	EnvDataDir         = "CLIPMARK_DATA_DIR"
	EnvStorage         = "CLIPMARK_STORAGE"
	EnvRedisURL        = "CLIPMARK_REDIS_URL"
	EnvDatabaseURL     = "CLIPMARK_DATABASE_URL"
	EnvMediaDir        = "CLIPMARK_MEDIA_DIR"
	EnvHeadless        = "CLIPMARK_HEADLESS"
	EnvPollInterval    = "CLIPMARK_POLL_INTERVAL_MS"
	EnvTransitionDelay = "CLIPMARK_TRANSITION_DELAY_MS"

	// Database filename
	DBFilename = "clipmark.db"

	// Playback defaults
	DefaultPollIntervalMs    = 100
	DefaultTransitionDelayMs = 3000
)

// Snapshot storage backends.
const (
	StorageSQLite   = "sqlite"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config defines the application configuration interface
type Config interface {
	Port() int
	LogLevel() string
	DataDir() string
	DBPath() string
	Storage() string
	RedisURL() string
	DatabaseURL() string
	MediaDir() string
	Headless() bool
	PollInterval() time.Duration
	TransitionDelay() time.Duration
}

// EnvConfig reads configuration from environment variables
type EnvConfig struct {
	port        int
	logLevel    string
	dataDir     string
	storage     string
	redisURL    string
	databaseURL string
	mediaDir    string
	headless    bool

	pollIntervalMs    int
	transitionDelayMs int
}

// New creates a new EnvConfig with defaults and environment variable overrides
func New() (*EnvConfig, error) {
	cfg := &EnvConfig{
		port:              DefaultPort,
		logLevel:          DefaultLogLevel,
		dataDir:           defaultDataDir(),
		storage:           DefaultStorage,
		pollIntervalMs:    DefaultPollIntervalMs,
		transitionDelayMs: DefaultTransitionDelayMs,
	}

	if p := os.Getenv(EnvPort); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvPort, err)
		}
		if port < 1 || port > 65535 {
			return nil, fmt.Errorf("invalid %s: port must be between 1 and 65535", EnvPort)
		}
		cfg.port = port
	}

	if ll := os.Getenv(EnvLogLevel); ll != "" {
		cfg.logLevel = ll
	}

	if dd := os.Getenv(EnvDataDir); dd != "" {
		cfg.dataDir = dd
	}

	if st := os.Getenv(EnvStorage); st != "" {
		st = strings.ToLower(strings.TrimSpace(st))
		switch st {
		case StorageSQLite, StorageRedis, StoragePostgres, StorageMemory:
			cfg.storage = st
		default:
			return nil, fmt.Errorf("invalid %s: unknown storage %q", EnvStorage, st)
		}
	}

	cfg.redisURL = os.Getenv(EnvRedisURL)
	cfg.databaseURL = os.Getenv(EnvDatabaseURL)
	cfg.mediaDir = os.Getenv(EnvMediaDir)

	if cfg.storage == StorageRedis && cfg.redisURL == "" {
		return nil, fmt.Errorf("%s=redis requires %s", EnvStorage, EnvRedisURL)
	}
	if cfg.storage == StoragePostgres && cfg.databaseURL == "" {
		return nil, fmt.Errorf("%s=postgres requires %s", EnvStorage, EnvDatabaseURL)
	}

	if h := os.Getenv(EnvHeadless); h != "" {
		headless, err := strconv.ParseBool(h)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvHeadless, err)
		}
		cfg.headless = headless
	}

	var err error
	if cfg.pollIntervalMs, err = positiveMillis(EnvPollInterval, cfg.pollIntervalMs); err != nil {
		return nil, err
	}
	if cfg.transitionDelayMs, err = positiveMillis(EnvTransitionDelay, cfg.transitionDelayMs); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Port returns the HTTP server port
func (c *EnvConfig) Port() int {
	return c.port
}

// LogLevel returns the log level (debug, info, warn, error)
func (c *EnvConfig) LogLevel() string {
	return c.logLevel
}

// DataDir returns the data directory path
func (c *EnvConfig) DataDir() string {
	return c.dataDir
}

// DBPath returns the full path to the SQLite database file
func (c *EnvConfig) DBPath() string {
	return filepath.Join(c.dataDir, DBFilename)
}

// Storage returns the snapshot backend name (sqlite, redis, postgres, memory)
func (c *EnvConfig) Storage() string {
	return c.storage
}

func (c *EnvConfig) RedisURL() string {
	return c.redisURL
}

func (c *EnvConfig) DatabaseURL() string {
	return c.databaseURL
}

// MediaDir returns the directory served under /media, or "" when disabled
func (c *EnvConfig) MediaDir() string {
	return c.mediaDir
}

func (c *EnvConfig) Headless() bool {
	return c.headless
}

// PollInterval is how often the playback controller checks for end of range
func (c *EnvConfig) PollInterval() time.Duration {
	return time.Duration(c.pollIntervalMs) * time.Millisecond
}

// TransitionDelay is the pause between the end of a clip and the next one
func (c *EnvConfig) TransitionDelay() time.Duration {
	return time.Duration(c.transitionDelayMs) * time.Millisecond
}

func positiveMillis(env string, def int) (int, error) {
	v := os.Getenv(env)
	if v == "" {
		return def, nil
	}
	ms, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", env, err)
	}
	if ms <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", env)
	}
	return ms, nil
}

// defaultDataDir returns the default data directory path
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		// Fallback to current directory if home is not available
		return DefaultDataDir
	}
	return filepath.Join(home, DefaultDataDir)
}

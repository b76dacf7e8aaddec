package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/penwyp/go-claude-usage/internal/core/constants"
	"gopkg.in/yaml.v3"
)

const (
	DefaultConfigFile = "~/.go-claude-usage/config.yaml"
	DefaultDataDir    = "~/.claude/projects"
	DefaultCachePath  = "~/.go-claude-usage/cache.db"
	DefaultLogFile    = "~/.go-claude-usage/logs/app.log"
)

// Environment variables that override the config file.
const (
	EnvDataDir   = "CLAUDE_USAGE_DATA_DIR"
	EnvCachePath = "CLAUDE_USAGE_CACHE_PATH"
	EnvLogLevel  = "CLAUDE_USAGE_LOG_LEVEL"
)

// Config is the on-disk configuration.
type Config struct {
	DataDir     string          `yaml:"data_dir"`
	Concurrency int             `yaml:"concurrency"`
	RecentDays  int             `yaml:"recent_days"`
	Timezone    string          `yaml:"timezone"`
	Cache       CacheConfig     `yaml:"cache"`
	Log         LogConfig       `yaml:"log"`
	Telemetry   TelemetryConfig `yaml:"telemetry"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Path    string        `yaml:"path"`
	TTL     time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Insecure bool   `yaml:"insecure"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DataDir:     DefaultDataDir,
		Concurrency: runtime.NumCPU(),
		RecentDays:  constants.DefaultRecentDays,
		Timezone:    "Local",
		Cache: CacheConfig{
			Enabled: true,
			Path:    DefaultCachePath,
			TTL:     constants.CacheTTL,
		},
		Log: LogConfig{
			Level: "info",
			File:  DefaultLogFile,
		},
	}
}

// Load reads path on top of the defaults, then applies environment
// overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(ExpandPath(path))
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.ApplyEnv(os.Getenv)
	cfg.normalize()
	return cfg, nil
}

// ApplyEnv overrides fields from the environment.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvDataDir); v != "" {
		c.DataDir = v
	}
	if v := getenv(EnvCachePath); v != "" {
		c.Cache.Path = v
	}
	if v := getenv(EnvLogLevel); v != "" {
		c.Log.Level = v
	}
}

func (c *Config) normalize() {
	c.DataDir = ExpandPath(c.DataDir)
	c.Cache.Path = ExpandPath(c.Cache.Path)
	if c.Log.File != "" {
		c.Log.File = ExpandPath(c.Log.File)
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.NumCPU()
	}
	if c.RecentDays <= 0 {
		c.RecentDays = constants.DefaultRecentDays
	}
	if c.Cache.TTL <= 0 {
		c.Cache.TTL = constants.CacheTTL
	}
}

// Save writes the configuration as YAML, creating parent directories.
func Save(path string, cfg *Config) error {
	path = ExpandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// ExpandPath resolves a leading "~/" and makes the path absolute.
func ExpandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		path = filepath.Join(home, path[2:])
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return absPath
}

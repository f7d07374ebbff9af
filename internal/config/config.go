package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the CLI looks for a config file when --config is not given.
const DefaultPath = ".querygen/config.yaml"

// Config holds all querygen configuration.
type Config struct {
	// Seed for the random stream. Identical seed and catalogs give identical output.
	Seed int64 `yaml:"seed"`

	// Catalog files, loaded in order. Empty means the embedded default catalog.
	Catalogs []string `yaml:"catalogs,omitempty"`

	Output   OutputConfig   `yaml:"output"`
	Parallel ParallelConfig `yaml:"parallel"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Watch    WatchConfig    `yaml:"watch"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// OutputConfig configures the corpus stream.
type OutputConfig struct {
	Path   string `yaml:"path"` // empty means stdout
	Append bool   `yaml:"append"`
}

// ParallelConfig configures per-category parallel expansion.
type ParallelConfig struct {
	Enabled bool `yaml:"enabled"`
	Workers int  `yaml:"workers"`
}

// ArchiveConfig configures the SQLite run archive.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// WatchConfig configures regenerate-on-save.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// LoggingConfig configures diagnostic logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
	File   string `yaml:"file"`   // empty means stderr

	// Categories switches individual log categories (boot, catalog, expand,
	// corpus, emit, store, watch). Missing entries are enabled.
	Categories map[string]bool `yaml:"categories,omitempty"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Seed: 42,
		Parallel: ParallelConfig{
			Enabled: false,
			Workers: 4,
		},
		Archive: ArchiveConfig{
			Enabled: false,
			Path:    ".querygen/runs.db",
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Logging: LoggingConfig{
			Level:  "warn",
			Format: "console",
		},
	}
}

// Load loads configuration from a YAML file, then applies .env and
// environment overrides. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads variables from an env file if it exists. Variables already
// set in the environment win.
func LoadDotEnv(path string) error {
	if _, err := os.Stat(path); err != nil {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("QUERYGEN_SEED"); v != "" {
		seed, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid QUERYGEN_SEED %q: %w", v, err)
		}
		c.Seed = seed
	}

	if v := os.Getenv("QUERYGEN_CATALOGS"); v != "" {
		var paths []string
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				paths = append(paths, p)
			}
		}
		c.Catalogs = paths
	}

	if v := os.Getenv("QUERYGEN_OUTPUT"); v != "" {
		c.Output.Path = v
	}

	// Setting an archive path turns archiving on.
	if v := os.Getenv("QUERYGEN_ARCHIVE"); v != "" {
		c.Archive.Path = v
		c.Archive.Enabled = true
	}

	if v := os.Getenv("QUERYGEN_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	return nil
}

// GetDebounce returns the watch debounce as a duration.
func (c *Config) GetDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 300 * time.Millisecond
	}
	return d
}

// Workers returns the parallel worker count, or 0 when parallel expansion is off.
func (c *Config) Workers() int {
	if !c.Parallel.Enabled {
		return 0
	}
	return c.Parallel.Workers
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Parallel.Enabled && c.Parallel.Workers < 1 {
		return fmt.Errorf("parallel.workers must be at least 1, got %d", c.Parallel.Workers)
	}
	if c.Archive.Enabled && strings.TrimSpace(c.Archive.Path) == "" {
		return fmt.Errorf("archive.path is required when the archive is enabled")
	}
	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
		}
	}
	if c.Logging.Level != "" {
		if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
			return fmt.Errorf("invalid logging.level: %w", err)
		}
	}
	switch c.Logging.Format {
	case "", "json", "console":
	default:
		return fmt.Errorf("invalid logging.format %q (valid: json, console)", c.Logging.Format)
	}
	return nil
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"QUERYGEN_SEED", "QUERYGEN_CATALOGS", "QUERYGEN_OUTPUT", "QUERYGEN_ARCHIVE", "QUERYGEN_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Empty(t, cfg.Catalogs)
	assert.Empty(t, cfg.Output.Path)
	assert.False(t, cfg.Parallel.Enabled)
	assert.Equal(t, 0, cfg.Workers())
	assert.Equal(t, 300*time.Millisecond, cfg.GetDebounce())
	assert.NoError(t, cfg.Validate())
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Seed = 7
	cfg.Catalogs = []string{"a.yaml", "b.yaml"}
	cfg.Parallel = ParallelConfig{Enabled: true, Workers: 8}
	cfg.Watch.Debounce = "1s"
	cfg.Logging.Categories = map[string]bool{"expand": false, "store": true}

	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
	assert.Equal(t, 8, loaded.Workers())
	assert.Equal(t, time.Second, loaded.GetDebounce())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_BadYAML(t *testing.T) {
	clearEnv(t)
	t.Chdir(t.TempDir())

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: [not a number\n"), 0644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse config")
}

func TestEnvOverrides(t *testing.T) {
	t.Run("all overrides", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QUERYGEN_SEED", "1234")
		t.Setenv("QUERYGEN_CATALOGS", " a.yaml, ,b.yaml ")
		t.Setenv("QUERYGEN_OUTPUT", "out.jsonl")
		t.Setenv("QUERYGEN_ARCHIVE", "runs.db")
		t.Setenv("QUERYGEN_LOG_LEVEL", "debug")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())

		assert.Equal(t, int64(1234), cfg.Seed)
		assert.Equal(t, []string{"a.yaml", "b.yaml"}, cfg.Catalogs)
		assert.Equal(t, "out.jsonl", cfg.Output.Path)
		assert.True(t, cfg.Archive.Enabled)
		assert.Equal(t, "runs.db", cfg.Archive.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})

	t.Run("negative seed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QUERYGEN_SEED", "-3")

		cfg := DefaultConfig()
		require.NoError(t, cfg.applyEnvOverrides())
		assert.Equal(t, int64(-3), cfg.Seed)
	})

	t.Run("invalid seed", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("QUERYGEN_SEED", "forty-two")

		cfg := DefaultConfig()
		err := cfg.applyEnvOverrides()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "QUERYGEN_SEED")
	})

	t.Run("env wins over file", func(t *testing.T) {
		clearEnv(t)
		t.Chdir(t.TempDir())
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte("seed: 5\n"), 0644))
		t.Setenv("QUERYGEN_SEED", "6")

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, int64(6), cfg.Seed)
	})
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("QUERYGEN_SEED=99\nQUERYGEN_OUTPUT=from-dotenv.jsonl\n"), 0644))
	// An explicit environment value beats the .env file.
	t.Setenv("QUERYGEN_OUTPUT", "explicit.jsonl")

	cfg, err := Load(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, int64(99), cfg.Seed)
	assert.Equal(t, "explicit.jsonl", cfg.Output.Path)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"workers", func(c *Config) { c.Parallel = ParallelConfig{Enabled: true, Workers: 0} }, "parallel.workers"},
		{"archive path", func(c *Config) { c.Archive = ArchiveConfig{Enabled: true} }, "archive.path"},
		{"debounce", func(c *Config) { c.Watch.Debounce = "soon" }, "watch.debounce"},
		{"level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "watcher.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, defaultCurrentURL, cfg.CurrentURL)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.True(t, cfg.InsecureTLS)
	assert.Equal(t, ".", cfg.OutputDir)
	assert.Equal(t, "csv", cfg.Format)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.Strict)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("WATCHER_CURRENT_URL", "https://example.org/layer.json")
	t.Setenv("WATCHER_REQUEST_TIMEOUT", "5s")
	t.Setenv("WATCHER_INSECURE_TLS", "false")
	t.Setenv("EXPORT_FORMAT", "XLSX")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load("")
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "https://example.org/layer.json", cfg.CurrentURL)
	assert.Equal(t, 5*time.Second, cfg.RequestTimeout)
	assert.False(t, cfg.InsecureTLS)
	assert.Equal(t, "xlsx", cfg.Format)
	assert.True(t, cfg.DryRun)
}

func TestLoad_FileThenEnvironment(t *testing.T) {
	path := writeFile(t, `
current_url: https://file.example.org/layer.json
request_timeout: 12s
output_dir: exports
strict: true
`)
	t.Setenv("WATCHER_OUTPUT_DIR", "/var/lib/watcher")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://file.example.org/layer.json", cfg.CurrentURL)
	assert.Equal(t, 12*time.Second, cfg.RequestTimeout)
	assert.Equal(t, "/var/lib/watcher", cfg.OutputDir)
	assert.True(t, cfg.Strict)
	assert.True(t, cfg.InsecureTLS)
}

func TestLoad_FileFromEnvironment(t *testing.T) {
	path := writeFile(t, "log_level: debug\n")
	t.Setenv("WATCHER_CONFIG_FILE", path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		_, err := Load(writeFile(t, "request_timeout: [1, 2\n"))
		assert.Error(t, err)
	})

	t.Run("bad duration", func(t *testing.T) {
		t.Setenv("WATCHER_REQUEST_TIMEOUT", "soon")
		_, err := Load("")
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty url", func(c *Config) { c.CurrentURL = "" }},
		{"bad url", func(c *Config) { c.CurrentURL = "not a url" }},
		{"zero timeout", func(c *Config) { c.RequestTimeout = 0 }},
		{"bad format", func(c *Config) { c.Format = "parquet" }},
		{"empty output dir", func(c *Config) { c.OutputDir = " " }},
		{"bad log level", func(c *Config) { c.LogLevel = "loud" }},
		{"bad log format", func(c *Config) { c.LogFormat = "xml" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), "invalid config")
		})
	}

	cfg := Default()
	assert.NoError(t, cfg.Validate())
}

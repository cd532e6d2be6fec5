package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeYAML(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.Analysis.MinLength)
	assert.Equal(t, 3, cfg.HuggingFace.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.HuggingFace.Timeout)
	assert.Equal(t, "facebook/bart-large-mnli", cfg.HuggingFace.ClassificationModel)
	assert.Equal(t, StoreBackendMemory, cfg.Store.Backend)
}

func TestLoadYAMLThenEnv(t *testing.T) {
	path := writeYAML(t, `
log_level: debug
huggingface:
  timeout: 10s
  max_retries: 5
analysis:
  min_length: 50
store:
  backend: postgres
  database_url: postgres://yaml
`)
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("HF_MAX_RETRIES", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, 10*time.Second, cfg.HuggingFace.Timeout)
	assert.Equal(t, 2, cfg.HuggingFace.MaxRetries)
	assert.Equal(t, 50, cfg.Analysis.MinLength)
	assert.Equal(t, "postgres://yaml", cfg.Store.DatabaseURL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.HTTP.AllowedOrigins)
}

func TestLoadRejectsMalformedEnv(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("HF_TIMEOUT", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "HF_TIMEOUT")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"defaults are valid", func(c *Config) {}, ""},
		{"postgres needs url", func(c *Config) { c.Store.Backend = StoreBackendPostgres }, "DATABASE_URL"},
		{"unknown backend", func(c *Config) { c.Store.Backend = "sqlite" }, "unknown store backend"},
		{"zero retries", func(c *Config) { c.HuggingFace.MaxRetries = 0 }, "max_retries"},
		{"threshold out of range", func(c *Config) { c.Analysis.SentimentThreshold = 1.5 }, "sentiment_threshold"},
		{"sub-second valkey ttl", func(c *Config) {
			c.Valkey.InitAddress = "localhost:6379"
			c.Valkey.TTL = 500 * time.Millisecond
		}, "valkey ttl"},
		{"ttl ignored without valkey", func(c *Config) { c.Valkey.TTL = 0 }, ""},
		{"bad timezone", func(c *Config) { c.HTTP.DisplayTimezone = "Mars/Olympus" }, "timezone"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

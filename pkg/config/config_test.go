package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultConcurrency, cfg.Concurrency)
	assert.Equal(t, DefaultMaxPages, cfg.MaxPages)
	assert.Equal(t, DefaultUserAgents, cfg.UserAgents)

	// プールはコピーされているため、書き換えても既定値に影響しない
	cfg.UserAgents[0] = "changed"
	assert.NotEqual(t, "changed", DefaultUserAgents[0])
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(c *Config)
	}{
		{"zero timeout", func(c *Config) { c.Timeout = 0 }},
		{"empty user agents", func(c *Config) { c.UserAgents = nil }},
		{"zero concurrency", func(c *Config) { c.Concurrency = 0 }},
		{"zero max pages", func(c *Config) { c.MaxPages = 0 }},
		{"negative search pause", func(c *Config) { c.SearchPause = -time.Second }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.modify(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	path := filepath.Join(dir, "newsscraper.yaml")
	content := "timeout: 3s\nconcurrency: 2\nmax_pages: 4\nuser_agents:\n  - test-agent\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	t.Setenv("SERPAPI_KEY", "secret-key")
	t.Setenv("NEWSSCRAPER_CONCURRENCY", "7")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, 7, cfg.Concurrency, "環境変数が設定ファイルより優先される")
	assert.Equal(t, 4, cfg.MaxPages)
	assert.Equal(t, []string{"test-agent"}, cfg.UserAgents)
	assert.Equal(t, "secret-key", cfg.SerpAPIKey)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Chdir(t.TempDir())

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLoad_NoFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, DefaultUserAgents, cfg.UserAgents)
}

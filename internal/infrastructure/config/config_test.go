package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	// Server config
	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "0.0.0.0", cfg.Server.Host)

	// Logging config
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.False(t, cfg.Logging.Development)

	// Rate limit config
	assert.Equal(t, 100, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 200, cfg.RateLimit.Burst)
	assert.True(t, cfg.RateLimit.Enabled)

	// Sandbox config
	assert.Equal(t, 10*time.Second, cfg.Sandbox.Timeout)
	assert.Equal(t, 4096, cfg.Sandbox.StackSize)
	assert.Equal(t, 4, cfg.Sandbox.PoolSize)

	// Store config
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, "js-repl", cfg.Store.Namespace)
}

func TestLoadMatchesDefault(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoadWithEnvironmentVariables(t *testing.T) {
	envVars := map[string]string{
		"PORT":               "9000",
		"HOST":               "127.0.0.1",
		"LOG_LEVEL":          "debug",
		"LOG_DEV":            "true",
		"RATE_LIMIT_RPS":     "500",
		"RATE_LIMIT_BURST":   "1000",
		"RATE_LIMIT_ENABLED": "false",
		"SANDBOX_TIMEOUT":    "250ms",
		"SANDBOX_POOL_SIZE":  "0",
		"TRANSPILE_TARGET":   "es2017",
		"STORE_DRIVER":       "sqlite",
		"STORE_PATH":         "/tmp/state.db",
		"SHARE_BASE_URL":     "https://play.example.com/",
	}
	for key, value := range envVars {
		t.Setenv(key, value)
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Logging.Development)
	assert.Equal(t, 500, cfg.RateLimit.RequestsPerSecond)
	assert.Equal(t, 1000, cfg.RateLimit.Burst)
	assert.False(t, cfg.RateLimit.Enabled)
	assert.Equal(t, 250*time.Millisecond, cfg.Sandbox.Timeout)
	assert.Equal(t, 0, cfg.Sandbox.PoolSize)
	assert.Equal(t, "es2017", cfg.Transpile.Target)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, "/tmp/state.db", cfg.Store.Path)
	assert.Equal(t, "https://play.example.com/", cfg.Share.BaseURL)
}

func TestLoadInvalidValue(t *testing.T) {
	t.Setenv("SANDBOX_TIMEOUT", "forever")

	_, err := Load()
	assert.Error(t, err)

	cfg := LoadOrDefault()
	assert.Equal(t, 10*time.Second, cfg.Sandbox.Timeout)
}

func TestServerConfig(t *testing.T) {
	tests := []struct {
		name     string
		port     string
		host     string
		wantPort string
		wantHost string
	}{
		{
			name:     "default values",
			wantPort: "8000",
			wantHost: "0.0.0.0",
		},
		{
			name:     "custom port",
			port:     "9000",
			wantPort: "9000",
			wantHost: "0.0.0.0",
		},
		{
			name:     "custom port and host",
			port:     "3000",
			host:     "127.0.0.1",
			wantPort: "3000",
			wantHost: "127.0.0.1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.port != "" {
				t.Setenv("PORT", tt.port)
			}
			if tt.host != "" {
				t.Setenv("HOST", tt.host)
			}

			cfg := LoadOrDefault()

			assert.Equal(t, tt.wantPort, cfg.Server.Port)
			assert.Equal(t, tt.wantHost, cfg.Server.Host)
		})
	}
}

func writeConfigFile(t *testing.T, name, content string, keys ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	t.Cleanup(func() {
		for _, key := range keys {
			os.Unsetenv(key)
		}
	})
	return path
}

func TestLoadConfigFile(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
	}{
		{
			name: "yaml",
			file: "playground.yaml",
			content: `PORT: 9100
sandbox_timeout: 3s
SANDBOX_POOL_SIZE: 2
STORE_DRIVER: sqlite
`,
		},
		{
			name: "toml",
			file: "playground.toml",
			content: `PORT = "9100"
sandbox_timeout = "3s"
SANDBOX_POOL_SIZE = 2
STORE_DRIVER = "sqlite"
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConfigFile(t, tt.file, tt.content,
				"PORT", "SANDBOX_TIMEOUT", "SANDBOX_POOL_SIZE", "STORE_DRIVER")
			t.Setenv("CONFIG_FILE", path)

			cfg, err := Load()
			require.NoError(t, err)

			assert.Equal(t, "9100", cfg.Server.Port)
			assert.Equal(t, 3*time.Second, cfg.Sandbox.Timeout)
			assert.Equal(t, 2, cfg.Sandbox.PoolSize)
			assert.Equal(t, "sqlite", cfg.Store.Driver)
			assert.Equal(t, "js-repl", cfg.Store.Namespace)
		})
	}
}

func TestEnvironmentOverridesFile(t *testing.T) {
	path := writeConfigFile(t, "playground.yml", "PORT: 9100\nHOST: 10.0.0.1\n", "PORT", "HOST")
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "7000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.Server.Port)
	assert.Equal(t, "10.0.0.1", cfg.Server.Host)
}

func TestConfigFileErrors(t *testing.T) {
	t.Run("unsupported extension", func(t *testing.T) {
		path := writeConfigFile(t, "playground.ini", "PORT=1")
		_, err := ReadFile(path)
		assert.ErrorContains(t, err, "unsupported config format")
	})

	t.Run("missing file", func(t *testing.T) {
		t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "nope.yaml"))
		_, err := Load()
		assert.ErrorContains(t, err, "failed to load config file")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := writeConfigFile(t, "bad.yaml", "PORT: [1, 2\n")
		_, err := ReadFile(path)
		assert.Error(t, err)
	})
}

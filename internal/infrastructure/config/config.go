package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Logging   LogConfig
	RateLimit RateLimitConfig
	Sandbox   SandboxConfig
	Transpile TranspileConfig
	Store     StoreConfig
	Share     ShareConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port string `envconfig:"PORT" default:"8000"`
	Host string `envconfig:"HOST" default:"0.0.0.0"`
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level       string `envconfig:"LOG_LEVEL" default:"info"`
	Development bool   `envconfig:"LOG_DEV" default:"false"`
}

// RateLimitConfig holds rate limiting configuration.
type RateLimitConfig struct {
	RequestsPerSecond int  `envconfig:"RATE_LIMIT_RPS" default:"100"`
	Burst             int  `envconfig:"RATE_LIMIT_BURST" default:"200"`
	Enabled           bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
}

// SandboxConfig holds execution context settings.
type SandboxConfig struct {
	Timeout     time.Duration `envconfig:"SANDBOX_TIMEOUT" default:"10s"`
	StackSize   int           `envconfig:"SANDBOX_STACK_SIZE" default:"4096"`
	PoolSize    int           `envconfig:"SANDBOX_POOL_SIZE" default:"4"`
	QueueSize   int           `envconfig:"SANDBOX_QUEUE_SIZE" default:"256"`
	HostConsole bool          `envconfig:"SANDBOX_HOST_CONSOLE" default:"true"`
}

// TranspileConfig holds TypeScript lowering settings.
type TranspileConfig struct {
	Target     string `envconfig:"TRANSPILE_TARGET" default:"es2020"`
	Loader     string `envconfig:"TRANSPILE_LOADER" default:"tsx"`
	JSXFactory string `envconfig:"TRANSPILE_JSX_FACTORY" default:"React.createElement"`
}

// StoreConfig holds persisted editor state settings.
type StoreConfig struct {
	Driver    string `envconfig:"STORE_DRIVER" default:"memory"`
	Path      string `envconfig:"STORE_PATH" default:"playground.db"`
	Namespace string `envconfig:"STORE_NAMESPACE" default:"js-repl"`
}

// ShareConfig holds share link settings.
type ShareConfig struct {
	BaseURL  string `envconfig:"SHARE_BASE_URL" default:"http://localhost:5173/"`
	MaxBytes int    `envconfig:"SHARE_MAX_BYTES" default:"65536"`
}

// Load loads configuration from environment variables. When CONFIG_FILE
// is set, its values apply first and the environment overrides them.
func Load() (*Config, error) {
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := applyFile(path); err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}

// LoadOrDefault loads configuration from environment or returns default.
func LoadOrDefault() *Config {
	cfg, err := Load()
	if err != nil {
		return Default()
	}
	return cfg
}

// Default returns default configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port: "8000",
			Host: "0.0.0.0",
		},
		Logging: LogConfig{
			Level:       "info",
			Development: false,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 100,
			Burst:             200,
			Enabled:           true,
		},
		Sandbox: SandboxConfig{
			Timeout:     10 * time.Second,
			StackSize:   4096,
			PoolSize:    4,
			QueueSize:   256,
			HostConsole: true,
		},
		Transpile: TranspileConfig{
			Target:     "es2020",
			Loader:     "tsx",
			JSXFactory: "React.createElement",
		},
		Store: StoreConfig{
			Driver:    "memory",
			Path:      "playground.db",
			Namespace: "js-repl",
		},
		Share: ShareConfig{
			BaseURL:  "http://localhost:5173/",
			MaxBytes: 65536,
		},
	}
}

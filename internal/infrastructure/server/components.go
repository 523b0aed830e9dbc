package server

import (
	"fmt"

	"github.com/GriffinCanCode/Playground/backend/internal/domain/share"
	"github.com/GriffinCanCode/Playground/backend/internal/domain/state"
	"github.com/GriffinCanCode/Playground/backend/internal/infrastructure/config"
	"github.com/GriffinCanCode/Playground/backend/internal/sandbox"
	"github.com/GriffinCanCode/Playground/backend/internal/storage/sqlite"
	"github.com/GriffinCanCode/Playground/backend/internal/transpile"
)

// SandboxConfig maps the sandbox config section
func SandboxConfig(cfg *config.Config) sandbox.Config {
	return sandbox.Config{
		Timeout:          cfg.Sandbox.Timeout,
		MaxCallStackSize: cfg.Sandbox.StackSize,
		QueueSize:        cfg.Sandbox.QueueSize,
		HostConsole:      cfg.Sandbox.HostConsole,
	}
}

// NewTranspiler builds the transpiler from the transpile config section
func NewTranspiler(cfg *config.Config) (*transpile.Transpiler, error) {
	opts := transpile.DefaultOptions()
	opts.Target = cfg.Transpile.Target
	opts.Loader = cfg.Transpile.Loader
	opts.JSXFactory = cfg.Transpile.JSXFactory
	return transpile.New(opts)
}

// OpenStore opens the state store named by STORE_DRIVER
func OpenStore(cfg *config.Config) (state.Store, error) {
	switch cfg.Store.Driver {
	case "memory", "":
		return state.NewMemoryStore(), nil
	case "sqlite":
		return sqlite.Open(cfg.Store.Path)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// NewShareCodec builds the share codec from the share config section
func NewShareCodec(cfg *config.Config) *share.Codec {
	return share.NewCodec(cfg.Share.BaseURL, cfg.Share.MaxBytes)
}

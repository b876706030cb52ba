package packrat

import (
	"github.com/packrat-cache/packrat/internal/config"
)

// New creates an engine with default configuration.
func New(opts ...ManagerOption) (Engine, error) {
	return NewFromConfig(config.DefaultConfig(), opts...)
}

// NewFromConfig creates an engine from configuration.
func NewFromConfig(cfg *config.Config, opts ...ManagerOption) (Engine, error) {
	managerOpts := &ManagerOptions{}
	for _, opt := range opts {
		opt(managerOpts)
	}
	return newEngine(cfg, managerOpts)
}

// NewFromFile creates an engine from a JSON config file, with environment
// variable overrides applied on top.
func NewFromFile(path string, opts ...ManagerOption) (Engine, error) {
	cfg, err := config.LoadWithEnv(path)
	if err != nil {
		return nil, err
	}
	return NewFromConfig(cfg, opts...)
}

// NewVolatileOnly creates an engine backed only by the in-memory store.
func NewVolatileOnly(opts ...ManagerOption) (Engine, error) {
	cfg := config.DefaultConfig()
	cfg.Structured.Enabled = false
	cfg.Flat.Enabled = false
	return NewFromConfig(cfg, opts...)
}

// Config returns a default configuration that can be modified before
// creating an engine.
func Config() *config.Config {
	return config.DefaultConfig()
}

// TestConfig returns a volatile-only configuration suitable for unit tests.
func TestConfig() *config.Config {
	return config.ForTesting()
}

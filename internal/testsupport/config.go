// Package testsupport provides shared fixtures for package tests.
package testsupport

import (
	"testing"

	"stereocap/internal/config"
)

// ConfigOption allows callers to customize the generated test configuration.
type ConfigOption func(*config.Config)

// NewConfig produces a config seeded with a unique temp sessions directory
// per test. It defaults common fields and applies any provided options.
func NewConfig(t testing.TB, opts ...ConfigOption) *config.Config {
	t.Helper()

	cfg := config.Default()
	cfg.Camera.Resolution = "LOW"
	cfg.Sessions.Dir = t.TempDir()
	cfg.Network.ConnectTimeout = 2

	for _, opt := range opts {
		opt(&cfg)
	}
	return &cfg
}

// WithResolution overrides the resolution label on the test config.
func WithResolution(label string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Camera.Resolution = label
	}
}

// WithControlAddress overrides the control endpoint on the test config.
func WithControlAddress(address string) ConfigOption {
	return func(cfg *config.Config) {
		cfg.Network.ControlAddress = address
	}
}

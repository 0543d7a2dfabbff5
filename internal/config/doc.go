// Package config loads, normalizes, and validates stereocap configuration.
//
// Configuration is TOML, looked up at ~/.config/stereocap/config.toml or a
// project-local stereocap.toml. Defaults live in defaults.go, path and
// address cleanup in normalize steps inside config.go, and semantic checks in
// validate.go. Validation failures are startup errors: nothing in the capture
// path starts with an invalid configuration.
package config

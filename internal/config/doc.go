// Package config loads, normalizes, and validates the slidecast TOML
// configuration. Defaults live in defaults.go; path expansion and value
// clamping in normalize.go; usability checks in validate.go.
package config

// Package config loads and validates the councilflow configuration.
// Values resolve in three layers: built-in defaults, then an optional YAML
// file, then COUNCILFLOW_* environment variables. Validation fails fast so a
// bad configuration never reaches a running session.
package config

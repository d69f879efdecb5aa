// Package config loads, normalizes, and validates the TOML configuration
// that drives the production pipeline: workspace paths, collaborator
// endpoints and binaries, object storage credentials, publish defaults,
// notification settings, and logging options.
package config

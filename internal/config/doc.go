// Package config loads and validates the platforge deployment configuration.
//
// Configuration is read from a YAML file (platforge.yaml by default) into a
// typed Config. Wait timeouts are loaded separately from environment
// variables with sensible defaults.
package config

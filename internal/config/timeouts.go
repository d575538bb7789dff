package config

import (
	"os"
	"time"
)

// Timeouts holds all configurable wait timeouts.
// These values can be customized via environment variables.
type Timeouts struct {
	Provision     time.Duration // Timeout for infrastructure provisioning
	StoreReady    time.Duration // Timeout for a secret-store replica to answer its health endpoint
	RaftForm      time.Duration // Timeout for the consensus cluster to form
	WorkloadReady time.Duration // Timeout for workload pods to become ready
	HelmInstall   time.Duration // Timeout for a single chart install or upgrade
	APIReachable  time.Duration // Timeout for an administrative REST API to respond
}

// LoadTimeouts loads timeout configuration from environment variables.
// If an environment variable is not set or invalid, a default value is used.
//
// Environment Variables:
//   - PLATFORGE_TIMEOUT_PROVISION (default: 45m)
//   - PLATFORGE_TIMEOUT_STORE_READY (default: 5m)
//   - PLATFORGE_TIMEOUT_RAFT_FORM (default: 10m)
//   - PLATFORGE_TIMEOUT_WORKLOAD_READY (default: 10m)
//   - PLATFORGE_TIMEOUT_HELM_INSTALL (default: 10m)
//   - PLATFORGE_TIMEOUT_API_REACHABLE (default: 5m)
func LoadTimeouts() *Timeouts {
	return &Timeouts{
		Provision:     parseDuration("PLATFORGE_TIMEOUT_PROVISION", 45*time.Minute),
		StoreReady:    parseDuration("PLATFORGE_TIMEOUT_STORE_READY", 5*time.Minute),
		RaftForm:      parseDuration("PLATFORGE_TIMEOUT_RAFT_FORM", 10*time.Minute),
		WorkloadReady: parseDuration("PLATFORGE_TIMEOUT_WORKLOAD_READY", 10*time.Minute),
		HelmInstall:   parseDuration("PLATFORGE_TIMEOUT_HELM_INSTALL", 10*time.Minute),
		APIReachable:  parseDuration("PLATFORGE_TIMEOUT_API_REACHABLE", 5*time.Minute),
	}
}

// parseDuration parses a duration from an environment variable.
// If the variable is not set or parsing fails, the default value is returned.
func parseDuration(envVar string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(envVar)
	if val == "" {
		return defaultVal
	}

	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}

	return d
}

// Package pipeline provides the phased execution engine for platform
// deployment.
//
// A deployment is a sequence of numbered phases executed in order. Each
// phase is idempotent: re-running a completed phase converges on the same
// result instead of failing. Runs can resume from a later phase once the
// cluster exists.
package pipeline

// Phase defines the interface for a deployment phase.
type Phase interface {
	// Name returns the human-readable name of this phase.
	Name() string

	// Run executes the deployment logic for this phase.
	Run(ctx *Context) error
}

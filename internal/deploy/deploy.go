// Package deploy defines the concrete deployment phases: provisioning,
// platform foundation, services and integrations.
package deploy

import (
	"fmt"
	"os"

	"github.com/platforge/platforge/internal/pipeline"
)

// step is one idempotent unit of a phase. Critical failures abort the run;
// the rest are collected as advisories, since later phases tolerate some
// earlier features being degraded.
type step struct {
	name     string
	critical bool
	run      func(ctx *pipeline.Context) error
}

func runSteps(ctx *pipeline.Context, steps []step) error {
	for _, s := range steps {
		ctx.Observer.Printf("  step: %s", s.name)
		if err := s.run(ctx); err != nil {
			if s.critical || pipeline.IsFatal(err) {
				return fmt.Errorf("%s: %w", s.name, err)
			}
			ctx.Advise("%s: %v", s.name, err)
		}
	}
	return nil
}

// Phases returns the statically ordered deployment phases.
func Phases() []pipeline.Phase {
	return []pipeline.Phase{
		&provisionPhase{},
		&foundationPhase{},
		&servicesPhase{},
		&integrationsPhase{},
	}
}

// Run executes the deployment, optionally resuming at a later phase.
// Resuming requires the cluster-access credential from an earlier run.
func Run(ctx *pipeline.Context, from int, skipProvisioning bool) error {
	if skipProvisioning && from < 1 {
		from = 1
	}

	if from > 0 {
		if _, err := os.Stat(ctx.Config.KubeconfigPath()); err != nil {
			return pipeline.Fatal(fmt.Errorf(
				"cannot resume from phase %d: kubeconfig %s does not exist; run phase 0 first",
				from, ctx.Config.KubeconfigPath()))
		}
	}

	return pipeline.RunPhases(ctx, Phases(), from)
}

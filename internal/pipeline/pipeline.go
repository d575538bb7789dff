package pipeline

import (
	"fmt"
	"time"
)

// RunPhases executes all deployment phases sequentially, starting at index
// from. Phases before from are assumed complete from an earlier run and are
// skipped. Advisories collected during the run are summarized at the end.
func RunPhases(ctx *Context, phases []Phase, from int) error {
	if from < 0 || from >= len(phases) {
		return fmt.Errorf("phase index %d out of range (0-%d)", from, len(phases)-1)
	}

	start := time.Now()
	ctx.Observer.Printf("Starting deployment with %d phases...", len(phases)-from)

	for i, phase := range phases {
		name := fmt.Sprintf("%s (%d/%d)", phase.Name(), i+1, len(phases))

		if i < from {
			ctx.Observer.Printf("[%s] skipped (completed in an earlier run)", name)
			continue
		}

		phaseStart := time.Now()
		ctx.Observer.Printf("[%s] starting", name)

		if err := phase.Run(ctx); err != nil {
			ctx.Observer.Printf("[%s] failed: %v", name, err)
			return fmt.Errorf("%s phase failed: %w", phase.Name(), err)
		}

		ctx.Observer.Printf("[%s] completed in %v", name, time.Since(phaseStart).Round(time.Millisecond))
	}

	ctx.Observer.Printf("Deployment completed in %v", time.Since(start).Round(time.Millisecond))

	if len(ctx.State.Advisories) > 0 {
		ctx.Observer.Warnf("%d advisory finding(s):", len(ctx.State.Advisories))
		for _, advisory := range ctx.State.Advisories {
			ctx.Observer.Warnf("  - %s", advisory)
		}
	}

	return nil
}

package deploy

import (
	"fmt"
	"os"

	"github.com/platforge/platforge/internal/pipeline"
)

// provisionPhase creates the virtual machines and the managed control plane
// through the declarative-infrastructure workspace, then persists the
// cluster-access credential. The kubeconfig's existence is the durable
// signal that provisioning completed.
type provisionPhase struct{}

func (p *provisionPhase) Name() string { return "provision" }

func (p *provisionPhase) Run(ctx *pipeline.Context) error {
	tf := newTerraform(ctx.Config.Terraform.Dir)

	return runSteps(ctx, []step{
		{
			name:     "apply infrastructure",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				return tf.Apply(ctx, ctx.Config.Terraform.Vars)
			},
		},
		{
			name:     "write kubeconfig",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				kubeconfig, err := tf.Output(ctx, "kubeconfig")
				if err != nil {
					return fmt.Errorf("read kubeconfig output: %w", err)
				}
				path := ctx.Config.KubeconfigPath()
				if err := os.WriteFile(path, []byte(kubeconfig), 0o600); err != nil {
					return fmt.Errorf("write kubeconfig: %w", err)
				}
				ctx.State.Kubeconfig = []byte(kubeconfig)
				ctx.Observer.Printf("kubeconfig written to %s", path)
				return nil
			},
		},
	})
}

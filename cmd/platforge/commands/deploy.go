package commands

import (
	"github.com/spf13/cobra"

	"github.com/platforge/platforge/cmd/platforge/handlers"
)

// Deploy returns the command for running the deployment pipeline.
//
// The pipeline runs four phases in order: provision, foundation, services,
// integrations. Every step is idempotent, so re-running a completed
// deployment converges instead of failing.
//
// Optional flags:
//
//	--config, -c: Path to configuration YAML file (default: platforge.yaml)
//	--from: Resume at a later phase (requires an existing kubeconfig)
//	--skip-provisioning: Skip phase 0 (equivalent to --from 1)
func Deploy() *cobra.Command {
	var (
		configPath       string
		from             int
		skipProvisioning bool
	)

	cmd := &cobra.Command{
		Use:   "deploy",
		Short: "Deploy or update the platform",
		Long: `Deploy the platform end to end, or resume a prior run.

The deployment runs in four phases:

  0. provision     - virtual machines and managed control plane
  1. foundation    - ingress, secret store, PKI chain, certificate issuer
  2. services      - identity provider, registry, source-control host
  3. integrations  - single sign-on wiring, artifact backup

Interrupted runs resume safely: every step probes current state before
acting. Use --from to skip phases that already completed.

Examples:
  # Full deployment using platforge.yaml in the current directory
  platforge deploy

  # Resume after the cluster was provisioned
  platforge deploy --from 1

  # Re-run service installation and integrations only
  platforge deploy --from 2`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Deploy(cmd.Context(), configPath, from, skipProvisioning)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to configuration file (default: platforge.yaml)")
	cmd.Flags().IntVar(&from, "from", 0, "Resume at this phase number")
	cmd.Flags().BoolVar(&skipProvisioning, "skip-provisioning", false, "Skip infrastructure provisioning")

	return cmd
}

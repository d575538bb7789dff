package commands

import (
	"github.com/spf13/cobra"

	"github.com/platforge/platforge/cmd/platforge/handlers"
)

// Init returns the command for interactively creating a configuration.
//
// Flags:
//
//	--output, -o: Path to output file (default "platforge.yaml")
//	--force, -f: Overwrite an existing configuration file
func Init() *cobra.Command {
	var (
		outputPath string
		force      bool
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Interactively create a configuration",
		Long: `Interactively create a platform configuration file.

The wizard asks for:

  - Cluster name and domain
  - Workspace directory for durable run artifacts
  - Secret store replica count
  - Platform services to install

An existing configuration is never overwritten unless --force is given.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return handlers.Init(cmd.Context(), outputPath, force)
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "platforge.yaml", "Output file path")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing configuration file")

	return cmd
}

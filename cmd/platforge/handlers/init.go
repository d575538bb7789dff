package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/platforge/platforge/internal/config"
)

// Factory function variables for init - can be replaced in tests.
var (
	// fileExists checks if a file exists.
	fileExists = func(path string) bool {
		_, err := os.Stat(path)
		return err == nil
	}

	// runWizard runs the configuration wizard.
	runWizard = config.RunWizard

	// writeConfig writes the config to a file.
	writeConfig = config.WriteYAML
)

// Init runs the configuration wizard and writes the result to a file.
func Init(ctx context.Context, outputPath string, force bool) error {
	if fileExists(outputPath) && !force {
		return fmt.Errorf("%s already exists; use --force to overwrite", outputPath)
	}

	printWelcome()

	result, err := runWizard(ctx)
	if err != nil {
		return err
	}

	cfg := result.ToConfig()
	if err := writeConfig(cfg, outputPath); err != nil {
		return err
	}

	printInitSuccess(outputPath, cfg)
	return nil
}

func printWelcome() {
	fmt.Println()
	fmt.Println("platforge - private-cloud Kubernetes platform")
	fmt.Println("=============================================")
	fmt.Println()
	fmt.Println("This wizard creates a platform configuration with sensible defaults.")
	fmt.Println()
}

func printInitSuccess(outputPath string, cfg *config.Config) {
	fmt.Println()
	fmt.Println("Configuration saved!")
	fmt.Println()
	fmt.Printf("  File: %s\n", outputPath)
	fmt.Println()

	fmt.Println("Platform Summary")
	fmt.Println("----------------")
	fmt.Printf("  Cluster:   %s\n", cfg.ClusterName)
	fmt.Printf("  Domain:    %s\n", cfg.Domain)
	fmt.Printf("  Workspace: %s\n", cfg.Workspace)
	fmt.Printf("  Replicas:  %d secret store replicas\n", cfg.SecretStore.Replicas)
	fmt.Println()

	fmt.Println("Next Steps")
	fmt.Println("----------")
	fmt.Printf("  1. Review %s if needed\n", outputPath)
	fmt.Println()
	fmt.Println("  2. Deploy the platform:")
	fmt.Println("     platforge deploy")
	fmt.Println()
}

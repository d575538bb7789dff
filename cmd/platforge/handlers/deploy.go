// Package handlers implements the business logic for CLI commands.
//
// Handlers are framework-agnostic and can be tested independently of the
// CLI framework.
package handlers

import (
	"context"
	"fmt"
	"os"

	"github.com/platforge/platforge/internal/config"
	"github.com/platforge/platforge/internal/credentials"
	"github.com/platforge/platforge/internal/deploy"
	"github.com/platforge/platforge/internal/pipeline"
)

// Factory function variables - can be replaced in tests for dependency injection.
var (
	// loadConfigFile loads config from file.
	loadConfigFile = config.LoadFile

	// resolveCredentials resolves the run's credential set.
	resolveCredentials = credentials.Resolve

	// runDeployment executes the deployment pipeline.
	runDeployment = deploy.Run
)

// Deploy runs the deployment pipeline from the given phase.
//
// The credential set is resolved before any phase runs so every step sees
// the same stable values, then the pipeline executes with the configured
// resume point.
func Deploy(ctx context.Context, configPath string, from int, skipProvisioning bool) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(cfg.Workspace, 0o755); err != nil {
		return fmt.Errorf("failed to create workspace: %w", err)
	}

	creds, err := resolveCredentials(cfg)
	if err != nil {
		return fmt.Errorf("failed to resolve credentials: %w", err)
	}

	return runDeployment(pipeline.NewContext(ctx, cfg, creds), from, skipProvisioning)
}

func loadConfig(configPath string) (*config.Config, error) {
	if configPath == "" {
		configPath = config.DefaultFile
	}
	if _, err := os.Stat(configPath); err != nil {
		return nil, fmt.Errorf("configuration %s not found; run 'platforge init' to create one", configPath)
	}
	return loadConfigFile(configPath)
}

package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/charmbracelet/huh"
	"gopkg.in/yaml.v3"
)

var clusterNamePattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]*[a-z0-9])?$`)

// WizardResult holds the user's choices from the wizard.
type WizardResult struct {
	Name      string
	Domain    string
	Workspace string
	Replicas  int
	Services  []string
}

// RunWizard runs the interactive configuration wizard.
func RunWizard(ctx context.Context) (*WizardResult, error) {
	result := &WizardResult{
		Workspace: ".",
		Replicas:  3,
		Services:  []string{"ingress", "keycloak", "harbor", "gitea"},
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Cluster name").
				Description("A unique name for your platform (DNS-safe, lowercase)").
				Placeholder("my-platform").
				Value(&result.Name).
				Validate(validateClusterName),

			huh.NewInput().
				Title("Domain").
				Description("Services are exposed under this domain (auth.<domain>, registry.<domain>, ...)").
				Placeholder("platform.example.com").
				Value(&result.Domain).
				Validate(validateDomain),

			huh.NewInput().
				Title("Workspace directory").
				Description("Holds kubeconfig, credentials, key material and the root CA").
				Value(&result.Workspace),
		),

		huh.NewGroup(
			huh.NewSelect[int]().
				Title("Secret store replicas").
				Description("Consensus cluster size; 3 tolerates one replica failure").
				Options(
					huh.NewOption("1 replica (development only)", 1),
					huh.NewOption("3 replicas", 3),
					huh.NewOption("5 replicas", 5),
				).
				Value(&result.Replicas),
		),

		huh.NewGroup(
			huh.NewMultiSelect[string]().
				Title("Platform services").
				Description("Installed and wired together in phases 1-3").
				Options(
					huh.NewOption("Ingress controller", "ingress"),
					huh.NewOption("Identity provider (Keycloak)", "keycloak"),
					huh.NewOption("Container registry (Harbor)", "harbor"),
					huh.NewOption("Source-control host (Gitea)", "gitea"),
				).
				Value(&result.Services),
		),
	)

	if err := form.RunWithContext(ctx); err != nil {
		return nil, fmt.Errorf("wizard canceled: %w", err)
	}

	return result, nil
}

// ToConfig converts the wizard result to a Config with defaults applied.
func (r *WizardResult) ToConfig() *Config {
	cfg := &Config{
		ClusterName: r.Name,
		Domain:      r.Domain,
		Workspace:   r.Workspace,
	}
	cfg.SecretStore.Replicas = r.Replicas

	for _, service := range r.Services {
		switch service {
		case "ingress":
			cfg.Services.Ingress.Enabled = true
		case "keycloak":
			cfg.Services.Keycloak.Enabled = true
		case "harbor":
			cfg.Services.Harbor.Enabled = true
		case "gitea":
			cfg.Services.Gitea.Enabled = true
		}
	}

	cfg.applyDefaults()
	return cfg
}

// WriteYAML persists the configuration.
func WriteYAML(cfg *Config, path string) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func validateClusterName(name string) error {
	if name == "" {
		return fmt.Errorf("cluster name is required")
	}
	if len(name) > 63 {
		return fmt.Errorf("cluster name must be at most 63 characters")
	}
	if !clusterNamePattern.MatchString(name) {
		return fmt.Errorf("use lowercase letters, digits and hyphens")
	}
	return nil
}

func validateDomain(domain string) error {
	if domain == "" {
		return fmt.Errorf("domain is required")
	}
	if !strings.Contains(domain, ".") || strings.ContainsAny(domain, " /") {
		return fmt.Errorf("enter a valid DNS domain")
	}
	return nil
}

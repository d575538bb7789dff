package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// DefaultFile is the config file looked for when no path is given.
const DefaultFile = "platforge.yaml"

// Config holds the deployment configuration.
type Config struct {
	ClusterName string `yaml:"cluster_name"`
	Domain      string `yaml:"domain"`

	// Workspace is the directory holding all durable run artifacts:
	// kubeconfig, credential store, key material, root CA.
	Workspace string `yaml:"workspace"`

	Terraform   TerraformConfig   `yaml:"terraform"`
	SecretStore SecretStoreConfig `yaml:"secret_store"`
	Services    ServicesConfig    `yaml:"services"`
	Backup      BackupConfig      `yaml:"backup"`
}

// TerraformConfig describes the declarative-infrastructure workspace.
type TerraformConfig struct {
	Dir  string            `yaml:"dir"`
	Vars map[string]string `yaml:"vars"`
}

// SecretStoreConfig describes the consensus-backed secret store deployment.
type SecretStoreConfig struct {
	Namespace string `yaml:"namespace"`
	Release   string `yaml:"release"`
	Replicas  int    `yaml:"replicas"`
	Shares    int    `yaml:"shares"`
	Threshold int    `yaml:"threshold"`
}

// ServiceConfig describes one installable platform service.
type ServiceConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Version   string `yaml:"version"`
}

// ServicesConfig groups the installable platform services.
type ServicesConfig struct {
	Ingress  ServiceConfig `yaml:"ingress"`
	Keycloak ServiceConfig `yaml:"keycloak"`
	Harbor   ServiceConfig `yaml:"harbor"`
	Gitea    ServiceConfig `yaml:"gitea"`
}

// BackupConfig describes optional off-site backup of run artifacts.
type BackupConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
	Region   string `yaml:"region"`
	Bucket   string `yaml:"bucket"`
}

// LoadFile reads, parses and validates the configuration from a YAML file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Workspace == "" {
		c.Workspace = "."
	}
	if c.Terraform.Dir == "" {
		c.Terraform.Dir = "terraform"
	}
	if c.SecretStore.Namespace == "" {
		c.SecretStore.Namespace = "vault"
	}
	if c.SecretStore.Release == "" {
		c.SecretStore.Release = "vault"
	}
	if c.SecretStore.Replicas == 0 {
		c.SecretStore.Replicas = 3
	}
	if c.SecretStore.Shares == 0 {
		c.SecretStore.Shares = 5
	}
	if c.SecretStore.Threshold == 0 {
		c.SecretStore.Threshold = 3
	}
	if c.Services.Ingress.Namespace == "" {
		c.Services.Ingress.Namespace = "ingress-nginx"
	}
	if c.Services.Keycloak.Namespace == "" {
		c.Services.Keycloak.Namespace = "keycloak"
	}
	if c.Services.Harbor.Namespace == "" {
		c.Services.Harbor.Namespace = "harbor"
	}
	if c.Services.Gitea.Namespace == "" {
		c.Services.Gitea.Namespace = "gitea"
	}
}

// Validate checks required fields and cross-field invariants.
func (c *Config) Validate() error {
	if c.ClusterName == "" {
		return fmt.Errorf("cluster_name is required")
	}
	if c.Domain == "" {
		return fmt.Errorf("domain is required")
	}
	if c.SecretStore.Replicas < 1 {
		return fmt.Errorf("secret_store.replicas must be at least 1")
	}
	if c.SecretStore.Threshold > c.SecretStore.Shares {
		return fmt.Errorf("secret_store.threshold (%d) cannot exceed shares (%d)",
			c.SecretStore.Threshold, c.SecretStore.Shares)
	}
	if c.SecretStore.Threshold < 1 {
		return fmt.Errorf("secret_store.threshold must be at least 1")
	}
	if c.Backup.Enabled && c.Backup.Bucket == "" {
		return fmt.Errorf("backup.bucket is required when backup is enabled")
	}
	return nil
}

// KubeconfigPath returns the cluster-access credential file path. Its
// existence is the durable signal that provisioning completed.
func (c *Config) KubeconfigPath() string {
	return filepath.Join(c.Workspace, "kubeconfig")
}

// CredentialsPath returns the persisted credential store path.
func (c *Config) CredentialsPath() string {
	return filepath.Join(c.Workspace, "credentials.env")
}

// KeyMaterialPath returns the secret-store key-material file path.
func (c *Config) KeyMaterialPath() string {
	return filepath.Join(c.Workspace, "vault-keys.yaml")
}

// RootCACertPath returns the offline root certificate path.
func (c *Config) RootCACertPath() string {
	return filepath.Join(c.Workspace, "pki", "root-ca.pem")
}

// RootCAKeyPath returns the offline root private-key path. This file never
// leaves the local workspace.
func (c *Config) RootCAKeyPath() string {
	return filepath.Join(c.Workspace, "pki", "root-ca.key")
}

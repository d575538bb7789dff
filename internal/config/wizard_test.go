package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWizardResult_ToConfig(t *testing.T) {
	result := &WizardResult{
		Name:      "prod",
		Domain:    "platform.example.com",
		Workspace: "/srv/platforge",
		Replicas:  5,
		Services:  []string{"ingress", "gitea"},
	}

	cfg := result.ToConfig()

	assert.Equal(t, "prod", cfg.ClusterName)
	assert.Equal(t, 5, cfg.SecretStore.Replicas)
	assert.True(t, cfg.Services.Ingress.Enabled)
	assert.True(t, cfg.Services.Gitea.Enabled)
	assert.False(t, cfg.Services.Keycloak.Enabled)

	// Defaults applied on top of the choices.
	assert.Equal(t, "vault", cfg.SecretStore.Namespace)
	assert.Equal(t, 5, cfg.SecretStore.Shares)
	assert.NoError(t, cfg.Validate())
}

func TestWriteYAML_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "platforge.yaml")
	cfg := (&WizardResult{Name: "test", Domain: "example.test", Workspace: ".", Replicas: 3}).ToConfig()

	require.NoError(t, WriteYAML(cfg, path))

	loaded, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.ClusterName, loaded.ClusterName)
	assert.Equal(t, cfg.SecretStore.Replicas, loaded.SecretStore.Replicas)
}

func TestValidateClusterName(t *testing.T) {
	assert.NoError(t, validateClusterName("my-platform"))
	assert.NoError(t, validateClusterName("p1"))
	assert.Error(t, validateClusterName(""))
	assert.Error(t, validateClusterName("My-Platform"))
	assert.Error(t, validateClusterName("-leading"))
	assert.Error(t, validateClusterName("trailing-"))
}

func TestValidateDomain(t *testing.T) {
	assert.NoError(t, validateDomain("platform.example.com"))
	assert.Error(t, validateDomain(""))
	assert.Error(t, validateDomain("nodots"))
	assert.Error(t, validateDomain("has space.com"))
}

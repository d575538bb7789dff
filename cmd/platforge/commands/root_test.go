package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoot(t *testing.T) {
	cmd := Root()

	require.NotNil(t, cmd)
	assert.Equal(t, "platforge", cmd.Use)
	assert.Equal(t, "Bootstrap a private-cloud Kubernetes platform", cmd.Short)
}

func TestRoot_HasSubcommands(t *testing.T) {
	cmd := Root()

	subcommands := make(map[string]bool)
	for _, sub := range cmd.Commands() {
		subcommands[sub.Name()] = true
	}

	for _, expected := range []string{"init", "deploy", "version"} {
		assert.True(t, subcommands[expected], "Expected subcommand %s not found", expected)
	}
}

func TestDeploy_Flags(t *testing.T) {
	cmd := Deploy()

	require.NotNil(t, cmd.Flags().Lookup("config"))
	require.NotNil(t, cmd.Flags().Lookup("from"))
	require.NotNil(t, cmd.Flags().Lookup("skip-provisioning"))

	assert.Equal(t, "0", cmd.Flags().Lookup("from").DefValue)
	assert.Equal(t, "false", cmd.Flags().Lookup("skip-provisioning").DefValue)
}

func TestInit_Flags(t *testing.T) {
	cmd := Init()

	require.NotNil(t, cmd.Flags().Lookup("output"))
	require.NotNil(t, cmd.Flags().Lookup("force"))
	assert.Equal(t, "platforge.yaml", cmd.Flags().Lookup("output").DefValue)
}

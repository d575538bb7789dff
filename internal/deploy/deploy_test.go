package deploy

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platforge/platforge/internal/config"
	"github.com/platforge/platforge/internal/pipeline"
	"github.com/platforge/platforge/internal/platform/terraform"
)

type testObserver struct {
	lines    []string
	warnings []string
}

func (o *testObserver) Printf(format string, v ...interface{}) {
	o.lines = append(o.lines, fmt.Sprintf(format, v...))
}

func (o *testObserver) Warnf(format string, v ...interface{}) {
	o.warnings = append(o.warnings, fmt.Sprintf(format, v...))
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		ClusterName: "test",
		Domain:      "example.test",
		Workspace:   t.TempDir(),
		Terraform:   config.TerraformConfig{Dir: "terraform", Vars: map[string]string{"node_count": "3"}},
	}
}

func testDeployContext(cfg *config.Config) (*pipeline.Context, *testObserver) {
	observer := &testObserver{}
	return &pipeline.Context{
		Context:  context.Background(),
		Config:   cfg,
		State:    pipeline.NewState(),
		Observer: observer,
		Timeouts: config.LoadTimeouts(),
	}, observer
}

type fakeTerraform struct {
	applied bool
	vars    map[string]string
	outputs map[string]string
}

func (f *fakeTerraform) Apply(_ context.Context, vars map[string]string) error {
	f.applied = true
	f.vars = vars
	return nil
}

func (f *fakeTerraform) Output(_ context.Context, name string) (string, error) {
	v, ok := f.outputs[name]
	if !ok {
		return "", terraform.ErrOutputNotFound
	}
	return v, nil
}

func TestPhases_Order(t *testing.T) {
	phases := Phases()
	require.Len(t, phases, 4)
	assert.Equal(t, "provision", phases[0].Name())
	assert.Equal(t, "foundation", phases[1].Name())
	assert.Equal(t, "services", phases[2].Name())
	assert.Equal(t, "integrations", phases[3].Name())
}

func TestRun_ResumeWithoutKubeconfigIsFatal(t *testing.T) {
	cfg := testConfig(t)
	ctx, _ := testDeployContext(cfg)

	err := Run(ctx, 1, false)
	require.Error(t, err)
	assert.True(t, pipeline.IsFatal(err))
	assert.Contains(t, err.Error(), "run phase 0 first")

	err = Run(ctx, 0, true)
	require.Error(t, err)
	assert.True(t, pipeline.IsFatal(err))
}

func TestProvisionPhase(t *testing.T) {
	cfg := testConfig(t)
	ctx, _ := testDeployContext(cfg)

	fake := &fakeTerraform{outputs: map[string]string{"kubeconfig": "apiVersion: v1\nkind: Config\n"}}
	orig := newTerraform
	newTerraform = func(dir string) terraformClient {
		assert.Equal(t, "terraform", dir)
		return fake
	}
	defer func() { newTerraform = orig }()

	phase := &provisionPhase{}
	require.NoError(t, phase.Run(ctx))

	assert.True(t, fake.applied)
	assert.Equal(t, map[string]string{"node_count": "3"}, fake.vars)

	info, err := os.Stat(cfg.KubeconfigPath())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
	assert.Equal(t, []byte("apiVersion: v1\nkind: Config\n"), ctx.State.Kubeconfig)
}

func TestProvisionPhase_MissingKubeconfigOutput(t *testing.T) {
	cfg := testConfig(t)
	ctx, _ := testDeployContext(cfg)

	fake := &fakeTerraform{outputs: map[string]string{}}
	orig := newTerraform
	newTerraform = func(string) terraformClient { return fake }
	defer func() { newTerraform = orig }()

	phase := &provisionPhase{}
	err := phase.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kubeconfig")
}

func TestRunSteps_CriticalAborts(t *testing.T) {
	cfg := testConfig(t)
	ctx, _ := testDeployContext(cfg)

	var ran []string
	err := runSteps(ctx, []step{
		{name: "first", critical: true, run: func(*pipeline.Context) error { ran = append(ran, "first"); return nil }},
		{name: "second", critical: true, run: func(*pipeline.Context) error { return fmt.Errorf("boom") }},
		{name: "third", run: func(*pipeline.Context) error { ran = append(ran, "third"); return nil }},
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "second")
	assert.Equal(t, []string{"first"}, ran)
}

func TestRunSteps_AdvisoryContinues(t *testing.T) {
	cfg := testConfig(t)
	ctx, _ := testDeployContext(cfg)

	var ran []string
	err := runSteps(ctx, []step{
		{name: "flaky", run: func(*pipeline.Context) error { return fmt.Errorf("not ready yet") }},
		{name: "next", run: func(*pipeline.Context) error { ran = append(ran, "next"); return nil }},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"next"}, ran)
	require.Len(t, ctx.State.Advisories, 1)
	assert.Contains(t, ctx.State.Advisories[0], "flaky")
}

func TestRunSteps_FatalOverridesAdvisory(t *testing.T) {
	cfg := testConfig(t)
	ctx, _ := testDeployContext(cfg)

	err := runSteps(ctx, []step{
		{name: "soft", run: func(*pipeline.Context) error {
			return pipeline.Fatal(fmt.Errorf("consensus never formed"))
		}},
	})

	require.Error(t, err)
	assert.True(t, pipeline.IsFatal(err))
	assert.Empty(t, ctx.State.Advisories)
}

func TestResume_RunsRemainingPhases(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Workspace, "kubeconfig"), []byte("kc"), 0o600))
	ctx, observer := testDeployContext(cfg)

	// Resuming from the last phase with nothing enabled runs to completion
	// without touching any collaborator.
	require.NoError(t, Run(ctx, 3, false))

	var sawSkip bool
	for _, line := range observer.lines {
		if strings.Contains(line, "skipped") {
			sawSkip = true
		}
	}
	assert.True(t, sawSkip)
}

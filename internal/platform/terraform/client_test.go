package terraform

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls   [][]string
	outputs map[string][]byte
	err     error
}

func (f *fakeRunner) Run(_ context.Context, _ string, args ...string) ([]byte, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return nil, f.err
	}
	return f.outputs[args[0]], nil
}

func TestApply_RunsInitThenApply(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{outputs: map[string][]byte{}}
	c := NewClientWithRunner("/infra", runner)

	require.NoError(t, c.Apply(context.Background(), map[string]string{"domain": "cloud.example.com"}))

	require.Len(t, runner.calls, 2)
	assert.Equal(t, "init", runner.calls[0][0])
	assert.Equal(t, "apply", runner.calls[1][0])
	assert.Contains(t, strings.Join(runner.calls[1], " "), "-var domain=cloud.example.com")
}

func TestApply_PropagatesFailure(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{err: errors.New("exit status 1")}
	c := NewClientWithRunner("/infra", runner)

	err := c.Apply(context.Background(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "terraform init")
}

func TestOutput_StringValue(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{outputs: map[string][]byte{
		"output": []byte(`{"kubeconfig":{"value":"apiVersion: v1"}}`),
	}}
	c := NewClientWithRunner("/infra", runner)

	v, err := c.Output(context.Background(), "kubeconfig")
	require.NoError(t, err)
	assert.Equal(t, "apiVersion: v1", v)
}

func TestOutput_NotFound(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{outputs: map[string][]byte{
		"output": []byte(`{}`),
	}}
	c := NewClientWithRunner("/infra", runner)

	_, err := c.Output(context.Background(), "pki_root_cert")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutputNotFound), "missing output must be a structured result")
}

func TestOutput_NonStringValue(t *testing.T) {
	t.Parallel()
	runner := &fakeRunner{outputs: map[string][]byte{
		"output": []byte(`{"replica_count":{"value":3}}`),
	}}
	c := NewClientWithRunner("/infra", runner)

	v, err := c.Output(context.Background(), "replica_count")
	require.NoError(t, err)
	assert.Equal(t, "3", v)
}

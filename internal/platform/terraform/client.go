// Package terraform wraps the declarative-infrastructure CLI.
//
// The provisioning tool is an external collaborator: this package only
// shells out to apply configurations and read named outputs from the
// tool's durable state. A missing output is a structured result
// (ErrOutputNotFound), not a hard failure.
package terraform

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
)

// ErrOutputNotFound is returned by Output when the named value is absent
// from the tool's state.
var ErrOutputNotFound = errors.New("terraform output not found")

// Runner executes the external binary. Replaced in tests.
type Runner interface {
	Run(ctx context.Context, dir string, args ...string) ([]byte, error)
}

type execRunner struct {
	binary string
}

func (r *execRunner) Run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, r.binary, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%s %v failed: %w\n%s", r.binary, args, err, stderr.String())
	}
	return stdout.Bytes(), nil
}

// Client invokes the provisioning tool against one working directory.
type Client struct {
	dir    string
	runner Runner
}

// NewClient creates a client for the given workspace directory.
func NewClient(dir string) *Client {
	return &Client{dir: dir, runner: &execRunner{binary: "terraform"}}
}

// NewClientWithRunner creates a client with an injected runner, for tests.
func NewClientWithRunner(dir string, runner Runner) *Client {
	return &Client{dir: dir, runner: runner}
}

// Apply initializes the workspace and applies the configuration.
// Both steps are idempotent in the tool itself.
func (c *Client) Apply(ctx context.Context, vars map[string]string) error {
	if _, err := c.runner.Run(ctx, c.dir, "init", "-input=false", "-no-color"); err != nil {
		return fmt.Errorf("terraform init: %w", err)
	}

	args := []string{"apply", "-auto-approve", "-input=false", "-no-color"}
	for k, v := range vars {
		args = append(args, "-var", fmt.Sprintf("%s=%s", k, v))
	}

	if _, err := c.runner.Run(ctx, c.dir, args...); err != nil {
		return fmt.Errorf("terraform apply: %w", err)
	}
	return nil
}

// Output reads one named output value from the tool's state.
func (c *Client) Output(ctx context.Context, name string) (string, error) {
	raw, err := c.runner.Run(ctx, c.dir, "output", "-json")
	if err != nil {
		return "", fmt.Errorf("terraform output: %w", err)
	}

	var outputs map[string]struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(raw, &outputs); err != nil {
		return "", fmt.Errorf("failed to parse terraform outputs: %w", err)
	}

	out, ok := outputs[name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrOutputNotFound, name)
	}

	var value string
	if err := json.Unmarshal(out.Value, &value); err != nil {
		// Non-string outputs are returned as their raw JSON encoding.
		return string(out.Value), nil
	}
	return value, nil
}

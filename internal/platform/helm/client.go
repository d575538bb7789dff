// Package helm installs platform services as charts, keyed by release name.
//
// Installation is idempotent without bespoke existence checks at the call
// sites: a release that already exists is upgraded in place, otherwise it
// is installed.
package helm

import (
	"context"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/action"
	"helm.sh/helm/v3/pkg/chart"
	"helm.sh/helm/v3/pkg/chart/loader"
	"helm.sh/helm/v3/pkg/cli"
	"helm.sh/helm/v3/pkg/getter"
	"helm.sh/helm/v3/pkg/release"
	"helm.sh/helm/v3/pkg/repo"
)

// ChartSpec identifies one installable chart.
type ChartSpec struct {
	Repository  string
	Name        string
	Version     string
	ReleaseName string
	Namespace   string
}

// Client provides Helm operations using in-memory kubeconfig.
type Client struct {
	kubeconfig   []byte
	namespace    string
	timeout      time.Duration
	actionConfig *action.Configuration
}

// NewClient creates a Helm client from kubeconfig bytes, scoped to one
// namespace.
func NewClient(kubeconfig []byte, namespace string, timeout time.Duration) (*Client, error) {
	c := &Client{
		kubeconfig: kubeconfig,
		namespace:  namespace,
		timeout:    timeout,
	}

	actionConfig := new(action.Configuration)
	restGetter := NewInMemoryRESTClientGetter(kubeconfig, namespace)

	if err := actionConfig.Init(restGetter, namespace, "secret", func(string, ...interface{}) {}); err != nil {
		return nil, fmt.Errorf("failed to initialize helm action config: %w", err)
	}

	c.actionConfig = actionConfig
	return c, nil
}

// InstallOrUpgrade installs a chart or upgrades the release if it exists.
func (c *Client) InstallOrUpgrade(ctx context.Context, spec ChartSpec, values map[string]interface{}) (*release.Release, error) {
	exists, err := c.ReleaseExists(spec.ReleaseName)
	if err != nil {
		return nil, err
	}
	if exists {
		return c.upgrade(ctx, spec, values)
	}
	return c.install(ctx, spec, values)
}

// ReleaseExists checks whether a named release has any history.
func (c *Client) ReleaseExists(releaseName string) (bool, error) {
	histClient := action.NewHistory(c.actionConfig)
	histClient.Max = 1
	if _, err := histClient.Run(releaseName); err != nil {
		return false, nil
	}
	return true, nil
}

func (c *Client) install(ctx context.Context, spec ChartSpec, values map[string]interface{}) (*release.Release, error) {
	installClient := action.NewInstall(c.actionConfig)
	installClient.ReleaseName = spec.ReleaseName
	installClient.Namespace = c.namespace
	installClient.CreateNamespace = true
	installClient.Version = spec.Version
	installClient.Wait = true
	installClient.Timeout = c.timeout

	loaded, err := c.loadChart(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}

	return installClient.RunWithContext(ctx, loaded, values)
}

func (c *Client) upgrade(ctx context.Context, spec ChartSpec, values map[string]interface{}) (*release.Release, error) {
	upgradeClient := action.NewUpgrade(c.actionConfig)
	upgradeClient.Namespace = c.namespace
	upgradeClient.Version = spec.Version
	upgradeClient.Wait = true
	upgradeClient.Timeout = c.timeout
	upgradeClient.ReuseValues = false

	loaded, err := c.loadChart(spec)
	if err != nil {
		return nil, fmt.Errorf("failed to load chart: %w", err)
	}

	return upgradeClient.RunWithContext(ctx, spec.ReleaseName, loaded, values)
}

func (c *Client) loadChart(spec ChartSpec) (*chart.Chart, error) {
	settings := cli.New()

	chartPath, err := repo.FindChartInRepoURL(
		spec.Repository,
		spec.Name,
		spec.Version,
		"", "", "",
		getter.All(settings),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find chart %s in repo %s: %w", spec.Name, spec.Repository, err)
	}

	defer func() {
		_ = os.Remove(chartPath)
	}()

	return loader.Load(chartPath)
}

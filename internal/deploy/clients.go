package deploy

import (
	"context"
	"fmt"
	"os"
	"time"

	"helm.sh/helm/v3/pkg/release"

	"github.com/platforge/platforge/internal/bootstrap"
	"github.com/platforge/platforge/internal/pipeline"
	"github.com/platforge/platforge/internal/platform/gitea"
	"github.com/platforge/platforge/internal/platform/harbor"
	"github.com/platforge/platforge/internal/platform/helm"
	"github.com/platforge/platforge/internal/platform/keycloak"
	"github.com/platforge/platforge/internal/platform/kube"
	"github.com/platforge/platforge/internal/platform/s3"
	"github.com/platforge/platforge/internal/platform/terraform"
	"github.com/platforge/platforge/internal/platform/vault"
	"github.com/platforge/platforge/internal/util/poll"
)

// Collaborator surfaces consumed by the phases. Narrow interfaces keep the
// phases testable without real infrastructure.

type terraformClient interface {
	Apply(ctx context.Context, vars map[string]string) error
	Output(ctx context.Context, name string) (string, error)
}

type kubeClient interface {
	EnsureNamespace(ctx context.Context, name string) error
	ApplyManifests(ctx context.Context, manifests []byte) error
	EnsureServiceAccountToken(ctx context.Context, namespace, name string, timeout time.Duration) ([]byte, error)
	WaitForPodsReady(ctx context.Context, namespace, labelSelector string, timeout time.Duration) poll.Result
	WaitForDeploymentReady(ctx context.Context, namespace, name string, timeout time.Duration) poll.Result
	WaitForStatefulSetReady(ctx context.Context, namespace, name string, timeout time.Duration) poll.Result
	PodExec(ctx context.Context, namespace, pod string, command []string) (string, error)
	CACert() []byte
	Host() string
}

type helmClient interface {
	InstallOrUpgrade(ctx context.Context, spec helm.ChartSpec, values map[string]interface{}) (*release.Release, error)
}

type keycloakClient interface {
	Login(ctx context.Context, username, password string) error
	EnsureRealm(ctx context.Context, realm string) error
	EnsureClient(ctx context.Context, realm string, spec keycloak.ClientSpec) error
}

type harborClient interface {
	EnsureProject(ctx context.Context, name string, public bool) error
	ConfigureOIDC(ctx context.Context, settings harbor.OIDCSettings) error
}

type giteaClient interface {
	EnsureOrg(ctx context.Context, name string) error
	EnsureRepo(ctx context.Context, org, name string) error
	AddDeployKey(ctx context.Context, org, repo, title, publicKey string) error
}

type backupClient interface {
	EnsureBucket(ctx context.Context, bucket string) error
	PutObject(ctx context.Context, bucket, key string, data []byte) error
}

// Constructors are variables so tests can substitute fakes.
var (
	newTerraform = func(dir string) terraformClient {
		return terraform.NewClient(dir)
	}
	newKube = func(kubeconfig []byte) (kubeClient, error) {
		return kube.NewClientFromBytes(kubeconfig)
	}
	newHelm = func(kubeconfig []byte, namespace string, timeout time.Duration) (helmClient, error) {
		return helm.NewClient(kubeconfig, namespace, timeout)
	}
	newStore = func(addr string) bootstrap.StoreClient {
		return vault.NewClient(addr)
	}
	newKeycloak = func(baseURL string) keycloakClient {
		return keycloak.NewClient(baseURL)
	}
	newHarbor = func(baseURL, username, password string) harborClient {
		return harbor.NewClient(baseURL, username, password)
	}
	newGitea = func(baseURL, username, password string) giteaClient {
		return gitea.NewClient(baseURL, username, password)
	}
	newBackup = func(endpoint, region, accessKey, secretKey string) (backupClient, error) {
		return s3.NewClient(endpoint, region, accessKey, secretKey)
	}
)

// loadKubeconfig returns the cluster-access credential, reading it from the
// workspace on resumed runs.
func loadKubeconfig(ctx *pipeline.Context) ([]byte, error) {
	if len(ctx.State.Kubeconfig) > 0 {
		return ctx.State.Kubeconfig, nil
	}
	data, err := os.ReadFile(ctx.Config.KubeconfigPath())
	if err != nil {
		return nil, fmt.Errorf("failed to read kubeconfig: %w", err)
	}
	ctx.State.Kubeconfig = data
	return data, nil
}

package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/platforge/platforge/internal/credentials"
	"github.com/platforge/platforge/internal/pipeline"
	"github.com/platforge/platforge/internal/platform/helm"
	"github.com/platforge/platforge/internal/platform/keycloak"
	"github.com/platforge/platforge/internal/util/keygen"
)

// servicesPhase installs the platform services and decorates them over
// their administrative APIs. Installs are critical; decoration is advisory
// because later phases and operators can repair it.
type servicesPhase struct{}

func (p *servicesPhase) Name() string { return "services" }

func (p *servicesPhase) Run(ctx *pipeline.Context) error {
	kubeconfig, err := loadKubeconfig(ctx)
	if err != nil {
		return err
	}
	kc, err := newKube(kubeconfig)
	if err != nil {
		return err
	}

	cfg := ctx.Config
	var steps []step

	if cfg.Services.Keycloak.Enabled {
		steps = append(steps, p.keycloakSteps(ctx, kc, kubeconfig)...)
	}
	if cfg.Services.Harbor.Enabled {
		steps = append(steps, p.harborSteps(ctx, kc, kubeconfig)...)
	}
	if cfg.Services.Gitea.Enabled {
		steps = append(steps, p.giteaSteps(ctx, kc, kubeconfig)...)
	}
	if len(steps) == 0 {
		ctx.Observer.Printf("no services enabled, nothing to install")
	}

	return runSteps(ctx, steps)
}

func (p *servicesPhase) keycloakSteps(ctx *pipeline.Context, kc kubeClient, kubeconfig []byte) []step {
	cfg := ctx.Config
	ns := cfg.Services.Keycloak.Namespace
	host := "auth." + cfg.Domain

	return []step{
		{
			name:     "install identity provider",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				if err := kc.EnsureNamespace(ctx, ns); err != nil {
					return err
				}
				hc, err := newHelm(kubeconfig, ns, ctx.Timeouts.HelmInstall)
				if err != nil {
					return err
				}
				_, err = hc.InstallOrUpgrade(ctx, helm.ChartSpec{
					Repository:  "https://charts.bitnami.com/bitnami",
					Name:        "keycloak",
					Version:     cfg.Services.Keycloak.Version,
					ReleaseName: "keycloak",
					Namespace:   ns,
				}, map[string]interface{}{
					"auth": map[string]interface{}{
						"adminUser":     "admin",
						"adminPassword": ctx.Creds.MustGet(credentials.KeycloakAdminPassword),
					},
					"ingress": map[string]interface{}{
						"enabled":  true,
						"hostname": host,
						"tls":      true,
					},
					"production": true,
					"proxy":      "edge",
				})
				return err
			},
		},
		{
			name: "wait for identity provider",
			run: func(ctx *pipeline.Context) error {
				result := kc.WaitForStatefulSetReady(ctx, ns, "keycloak", ctx.Timeouts.WorkloadReady)
				if !result.Satisfied() {
					return fmt.Errorf("keycloak not ready after %v", result.Waited.Round(time.Second))
				}
				return nil
			},
		},
		{
			name: "configure identity realm",
			run: func(ctx *pipeline.Context) error {
				client := newKeycloak("https://" + host)
				if err := client.Login(ctx, "admin", ctx.Creds.MustGet(credentials.KeycloakAdminPassword)); err != nil {
					return err
				}
				if err := client.EnsureRealm(ctx, "platform"); err != nil {
					return err
				}
				if err := client.EnsureClient(ctx, "platform", keycloak.ClientSpec{
					ClientID:     "harbor",
					Secret:       ctx.Creds.MustGet(credentials.OIDCClientSecretHarbor),
					RedirectURIs: []string{ctx.Creds.MustGet(credentials.RegistryURL) + "/c/oidc/callback"},
				}); err != nil {
					return err
				}
				return client.EnsureClient(ctx, "platform", keycloak.ClientSpec{
					ClientID:     "gitea",
					Secret:       ctx.Creds.MustGet(credentials.OIDCClientSecretGitea),
					RedirectURIs: []string{ctx.Creds.MustGet(credentials.GitURL) + "/user/oauth2/keycloak/callback"},
				})
			},
		},
	}
}

func (p *servicesPhase) harborSteps(ctx *pipeline.Context, kc kubeClient, kubeconfig []byte) []step {
	cfg := ctx.Config
	ns := cfg.Services.Harbor.Namespace
	externalURL := ctx.Creds.MustGet(credentials.RegistryURL)

	return []step{
		{
			name:     "install registry",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				if err := kc.EnsureNamespace(ctx, ns); err != nil {
					return err
				}
				hc, err := newHelm(kubeconfig, ns, ctx.Timeouts.HelmInstall)
				if err != nil {
					return err
				}
				_, err = hc.InstallOrUpgrade(ctx, helm.ChartSpec{
					Repository:  "https://helm.goharbor.io",
					Name:        "harbor",
					Version:     cfg.Services.Harbor.Version,
					ReleaseName: "harbor",
					Namespace:   ns,
				}, map[string]interface{}{
					"externalURL":         externalURL,
					"harborAdminPassword": ctx.Creds.MustGet(credentials.HarborAdminPassword),
					"expose": map[string]interface{}{
						"type": "ingress",
						"ingress": map[string]interface{}{
							"hosts": map[string]interface{}{
								"core": strings.TrimPrefix(externalURL, "https://"),
							},
						},
					},
				})
				return err
			},
		},
		{
			name: "wait for registry",
			run: func(ctx *pipeline.Context) error {
				result := kc.WaitForPodsReady(ctx, ns, "app=harbor", ctx.Timeouts.WorkloadReady)
				if !result.Satisfied() {
					return fmt.Errorf("registry not ready after %v", result.Waited.Round(time.Second))
				}
				return nil
			},
		},
		{
			name: "create registry project",
			run: func(ctx *pipeline.Context) error {
				client := newHarbor(externalURL, "admin", ctx.Creds.MustGet(credentials.HarborAdminPassword))
				return client.EnsureProject(ctx, "platform", false)
			},
		},
	}
}

func (p *servicesPhase) giteaSteps(ctx *pipeline.Context, kc kubeClient, kubeconfig []byte) []step {
	cfg := ctx.Config
	ns := cfg.Services.Gitea.Namespace
	gitURL := ctx.Creds.MustGet(credentials.GitURL)
	adminPassword := ctx.Creds.MustGet(credentials.GiteaAdminPassword)

	return []step{
		{
			name:     "install source-control host",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				if err := kc.EnsureNamespace(ctx, ns); err != nil {
					return err
				}
				hc, err := newHelm(kubeconfig, ns, ctx.Timeouts.HelmInstall)
				if err != nil {
					return err
				}
				_, err = hc.InstallOrUpgrade(ctx, helm.ChartSpec{
					Repository:  "https://dl.gitea.com/charts/",
					Name:        "gitea",
					Version:     cfg.Services.Gitea.Version,
					ReleaseName: "gitea",
					Namespace:   ns,
				}, map[string]interface{}{
					"gitea": map[string]interface{}{
						"admin": map[string]interface{}{
							"username": "platforge",
							"password": adminPassword,
							"email":    "admin@" + cfg.Domain,
						},
					},
					"ingress": map[string]interface{}{
						"enabled": true,
						"hosts": []interface{}{
							map[string]interface{}{
								"host": strings.TrimPrefix(gitURL, "https://"),
								"paths": []interface{}{
									map[string]interface{}{"path": "/", "pathType": "Prefix"},
								},
							},
						},
					},
				})
				return err
			},
		},
		{
			name: "wait for source-control host",
			run: func(ctx *pipeline.Context) error {
				result := kc.WaitForStatefulSetReady(ctx, ns, "gitea", ctx.Timeouts.WorkloadReady)
				if !result.Satisfied() {
					return fmt.Errorf("gitea not ready after %v", result.Waited.Round(time.Second))
				}
				return nil
			},
		},
		{
			// The chart only creates the admin on first install; an exec
			// converges the account on upgraded releases too.
			name: "ensure source-control admin",
			run: func(ctx *pipeline.Context) error {
				out, err := kc.PodExec(ctx, ns, "gitea-0", []string{
					"gitea", "admin", "user", "create",
					"--admin",
					"--username", "platforge",
					"--password", adminPassword,
					"--email", "admin@" + cfg.Domain,
					"--must-change-password=false",
				})
				if err != nil && !strings.Contains(out, "already exists") && !strings.Contains(err.Error(), "already exists") {
					return err
				}
				return nil
			},
		},
		{
			name: "scaffold source control",
			run: func(ctx *pipeline.Context) error {
				client := newGitea(gitURL, "platforge", adminPassword)
				if err := client.EnsureOrg(ctx, "platform"); err != nil {
					return err
				}
				if err := client.EnsureRepo(ctx, "platform", "infrastructure"); err != nil {
					return err
				}

				keyPath := filepath.Join(cfg.Workspace, "deploy_key")
				if _, err := os.Stat(keyPath); os.IsNotExist(err) {
					pair, err := keygen.GenerateEd25519KeyPair()
					if err != nil {
						return err
					}
					if err := os.WriteFile(keyPath, pair.PrivateKey, 0o600); err != nil {
						return err
					}
					if err := os.WriteFile(keyPath+".pub", pair.PublicKey, 0o644); err != nil {
						return err
					}
				}
				publicKey, err := os.ReadFile(keyPath + ".pub")
				if err != nil {
					return err
				}
				return client.AddDeployKey(ctx, "platform", "infrastructure", "platforge", string(publicKey))
			},
		},
	}
}

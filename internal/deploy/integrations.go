package deploy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/platforge/platforge/internal/credentials"
	"github.com/platforge/platforge/internal/pipeline"
	"github.com/platforge/platforge/internal/platform/harbor"
)

// integrationsPhase wires single sign-on across the installed services and
// backs up the durable run artifacts. Everything here is advisory: the
// platform works without it, and each call converges on re-run.
type integrationsPhase struct{}

func (p *integrationsPhase) Name() string { return "integrations" }

func (p *integrationsPhase) Run(ctx *pipeline.Context) error {
	cfg := ctx.Config
	var steps []step

	if cfg.Services.Harbor.Enabled && cfg.Services.Keycloak.Enabled {
		steps = append(steps, step{
			name: "configure registry SSO",
			run: func(ctx *pipeline.Context) error {
				client := newHarbor(ctx.Creds.MustGet(credentials.RegistryURL),
					"admin", ctx.Creds.MustGet(credentials.HarborAdminPassword))
				return client.ConfigureOIDC(ctx, harbor.OIDCSettings{
					Name:         "keycloak",
					Endpoint:     ctx.Creds.MustGet(credentials.OIDCIssuerURL),
					ClientID:     "harbor",
					ClientSecret: ctx.Creds.MustGet(credentials.OIDCClientSecretHarbor),
				})
			},
		})
	}

	if cfg.Services.Gitea.Enabled && cfg.Services.Keycloak.Enabled {
		steps = append(steps, step{
			name: "configure source-control SSO",
			run: func(ctx *pipeline.Context) error {
				kubeconfig, err := loadKubeconfig(ctx)
				if err != nil {
					return err
				}
				kc, err := newKube(kubeconfig)
				if err != nil {
					return err
				}
				out, err := kc.PodExec(ctx, cfg.Services.Gitea.Namespace, "gitea-0", []string{
					"gitea", "admin", "auth", "add-oauth",
					"--name", "keycloak",
					"--provider", "openidConnect",
					"--key", "gitea",
					"--secret", ctx.Creds.MustGet(credentials.OIDCClientSecretGitea),
					"--auto-discover-url", ctx.Creds.MustGet(credentials.OIDCIssuerURL) + "/.well-known/openid-configuration",
				})
				if err != nil && !strings.Contains(out, "already exists") && !strings.Contains(err.Error(), "already exists") {
					return err
				}
				return nil
			},
		})
	}

	if cfg.Backup.Enabled {
		steps = append(steps, step{
			name: "back up run artifacts",
			run:  p.backupArtifacts,
		})
	}

	return runSteps(ctx, steps)
}

// backupArtifacts copies the recoverable run artifacts off-site. The root
// private key is deliberately excluded; it never leaves the workspace.
func (p *integrationsPhase) backupArtifacts(ctx *pipeline.Context) error {
	cfg := ctx.Config

	accessKey := os.Getenv("PLATFORGE_S3_ACCESS_KEY")
	secretKey := os.Getenv("PLATFORGE_S3_SECRET_KEY")
	if accessKey == "" || secretKey == "" {
		return fmt.Errorf("backup enabled but PLATFORGE_S3_ACCESS_KEY/PLATFORGE_S3_SECRET_KEY are not set")
	}

	client, err := newBackup(cfg.Backup.Endpoint, cfg.Backup.Region, accessKey, secretKey)
	if err != nil {
		return err
	}
	if err := client.EnsureBucket(ctx, cfg.Backup.Bucket); err != nil {
		return err
	}

	artifacts := []string{
		cfg.RootCACertPath(),
		cfg.CredentialsPath(),
		cfg.KeyMaterialPath(),
	}
	for _, path := range artifacts {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			return err
		}
		key := cfg.ClusterName + "/" + filepath.Base(path)
		if err := client.PutObject(ctx, cfg.Backup.Bucket, key, data); err != nil {
			return err
		}
		ctx.Observer.Printf("backed up %s to s3://%s/%s", path, cfg.Backup.Bucket, key)
	}
	return nil
}

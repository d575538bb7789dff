package deploy

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/platforge/platforge/internal/bootstrap"
	"github.com/platforge/platforge/internal/credentials"
	"github.com/platforge/platforge/internal/pipeline"
	"github.com/platforge/platforge/internal/platform/helm"
	"github.com/platforge/platforge/internal/platform/terraform"
	"github.com/platforge/platforge/internal/util/poll"
)

// foundationPhase installs the cluster plumbing every later service relies
// on: ingress, the replicated secret store, the PKI chain and the
// certificate issuer.
type foundationPhase struct{}

func (p *foundationPhase) Name() string { return "foundation" }

func (p *foundationPhase) Run(ctx *pipeline.Context) error {
	kubeconfig, err := loadKubeconfig(ctx)
	if err != nil {
		return err
	}
	kc, err := newKube(kubeconfig)
	if err != nil {
		return err
	}

	cfg := ctx.Config
	storeNS := cfg.SecretStore.Namespace

	replicas := make([]bootstrap.StoreClient, cfg.SecretStore.Replicas)
	for i := range replicas {
		replicas[i] = newStore(fmt.Sprintf("https://vault-%d.%s", i, cfg.Domain))
	}
	ctx.State.StoreAddr = ctx.Creds.MustGet(credentials.VaultAddr)

	steps := []step{
		{
			name:     "ensure namespaces",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				namespaces := []string{storeNS}
				if cfg.Services.Ingress.Enabled {
					namespaces = append(namespaces, cfg.Services.Ingress.Namespace)
				}
				for _, ns := range namespaces {
					if err := kc.EnsureNamespace(ctx, ns); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}

	if cfg.Services.Ingress.Enabled {
		steps = append(steps,
			step{
				name:     "install ingress controller",
				critical: true,
				run: func(ctx *pipeline.Context) error {
					hc, err := newHelm(kubeconfig, cfg.Services.Ingress.Namespace, ctx.Timeouts.HelmInstall)
					if err != nil {
						return err
					}
					_, err = hc.InstallOrUpgrade(ctx, helm.ChartSpec{
						Repository:  "https://kubernetes.github.io/ingress-nginx",
						Name:        "ingress-nginx",
						Version:     cfg.Services.Ingress.Version,
						ReleaseName: "ingress-nginx",
						Namespace:   cfg.Services.Ingress.Namespace,
					}, map[string]interface{}{})
					return err
				},
			},
			step{
				name: "wait for ingress controller",
				run: func(ctx *pipeline.Context) error {
					result := kc.WaitForDeploymentReady(ctx, cfg.Services.Ingress.Namespace,
						"ingress-nginx-controller", ctx.Timeouts.WorkloadReady)
					if !result.Satisfied() {
						return fmt.Errorf("ingress controller not ready after %v", result.Waited.Round(time.Second))
					}
					return nil
				},
			},
		)
	}

	steps = append(steps,
		step{
			name:     "install secret store",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				hc, err := newHelm(kubeconfig, storeNS, ctx.Timeouts.HelmInstall)
				if err != nil {
					return err
				}
				_, err = hc.InstallOrUpgrade(ctx, helm.ChartSpec{
					Repository:  "https://helm.releases.hashicorp.com",
					Name:        "vault",
					ReleaseName: cfg.SecretStore.Release,
					Namespace:   storeNS,
				}, map[string]interface{}{
					"server": map[string]interface{}{
						"ha": map[string]interface{}{
							"enabled":  true,
							"replicas": cfg.SecretStore.Replicas,
							"raft": map[string]interface{}{
								"enabled": true,
							},
						},
					},
				})
				return err
			},
		},
		step{
			// Sealed replicas never pass readiness probes, so wait for the
			// unauthenticated status endpoint to answer instead.
			name:     "wait for store API",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				result := poll.Await(ctx, poll.Spec{Interval: 5 * time.Second, Timeout: ctx.Timeouts.StoreReady},
					func(c context.Context) (bool, error) {
						_, err := replicas[0].Health(c)
						return err == nil, err
					})
				if !result.Satisfied() {
					return fmt.Errorf("store API unreachable after %v (last error: %v)",
						result.Waited.Round(time.Second), result.LastErr)
				}
				return nil
			},
		},
		step{
			name:     "bootstrap secret store",
			critical: true,
			run: func(ctx *pipeline.Context) error {
				token, err := kc.EnsureServiceAccountToken(ctx, storeNS, "platform-issuer", ctx.Timeouts.APIReachable)
				if err != nil {
					return err
				}

				tf := newTerraform(cfg.Terraform.Dir)
				machine := &bootstrap.Machine{
					Replicas: replicas,
					InternalAddr: fmt.Sprintf("http://%s-0.%s-internal.%s.svc:8200",
						cfg.SecretStore.Release, cfg.SecretStore.Release, storeNS),
					Shares:          cfg.SecretStore.Shares,
					Threshold:       cfg.SecretStore.Threshold,
					KeyMaterialPath: cfg.KeyMaterialPath(),
					Root: &bootstrap.RootSource{
						CertPath:   cfg.RootCACertPath(),
						KeyPath:    cfg.RootCAKeyPath(),
						CommonName: fmt.Sprintf("%s Root CA", cfg.Domain),
						Recover:    recoverRootFromOutputs(tf),
					},
					Mount:  "pki",
					Role:   "platform",
					Domain: cfg.Domain,
					Auth: &bootstrap.AuthBackend{
						Path:           "kubernetes",
						Host:           kc.Host(),
						CACert:         string(kc.CACert()),
						Token:          string(token),
						ServiceAccount: "platform-issuer",
						Namespace:      storeNS,
					},
					Observer: ctx.Observer,
					RaftWait: poll.Spec{Interval: 10 * time.Second, Timeout: ctx.Timeouts.RaftForm},
				}
				return machine.Run(ctx)
			},
		},
		step{
			name: "wire certificate issuer",
			run: func(ctx *pipeline.Context) error {
				catalogue := credentials.NewCatalogue(ctx.Creds)
				manifests := catalogue.Apply(fmt.Sprintf(issuerManifests, storeNS, storeNS))
				return kc.ApplyManifests(ctx, []byte(manifests))
			},
		},
	)

	return runSteps(ctx, steps)
}

// recoverRootFromOutputs recovers root CA material persisted as durable
// provisioning outputs. Absent outputs mean nothing to recover.
func recoverRootFromOutputs(tf terraformClient) func(ctx context.Context) ([]byte, []byte, error) {
	return func(ctx context.Context) ([]byte, []byte, error) {
		cert, err := tf.Output(ctx, "pki_root_cert")
		if errors.Is(err, terraform.ErrOutputNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		key, err := tf.Output(ctx, "pki_root_key")
		if errors.Is(err, terraform.ErrOutputNotFound) {
			return nil, nil, nil
		}
		if err != nil {
			return nil, nil, err
		}
		return []byte(cert), []byte(key), nil
	}
}

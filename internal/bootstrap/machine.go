package bootstrap

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/platforge/platforge/internal/pipeline"
	"github.com/platforge/platforge/internal/pki"
	"github.com/platforge/platforge/internal/platform/vault"
	"github.com/platforge/platforge/internal/util/poll"
)

// Intermediate CA validity. Must stay below the root's so the chain never
// outlives its anchor.
const intermediateValidity = 10 * 365 * 24 * time.Hour

// roleMaxTTL bounds leaf issuance far below the intermediate's lifetime.
const roleMaxTTL = "720h"

// StoreClient is the store administration surface the machine drives.
// Implemented by platform/vault.Client, one per replica.
type StoreClient interface {
	Address() string
	SetToken(token string)
	Health(ctx context.Context) (*vault.SealStatus, error)
	Init(ctx context.Context, shares, threshold int) (*vault.InitResult, error)
	Unseal(ctx context.Context, key string) (*vault.SealStatus, error)
	RaftJoin(ctx context.Context, leaderAPIAddr string) error
	RaftConfiguration(ctx context.Context) ([]vault.RaftServer, error)
	MountExists(ctx context.Context, path string) (bool, error)
	EnableSecretsEngine(ctx context.Context, path, engineType, maxLeaseTTL string) error
	GenerateIntermediateCSR(ctx context.Context, mount, commonName string) (string, error)
	SetSignedIntermediate(ctx context.Context, mount, chainPEM string) error
	CAChain(ctx context.Context, mount string) (string, error)
	WriteRole(ctx context.Context, mount, role string, params map[string]any) error
	WritePolicy(ctx context.Context, name, policy string) error
	AuthEnabled(ctx context.Context, path string) (bool, error)
	EnableAuth(ctx context.Context, path, authType string) error
	WriteAuthConfig(ctx context.Context, path string, params map[string]any) error
	WriteAuthRole(ctx context.Context, path, role string, params map[string]any) error
}

// AuthBackend describes the identity federation against the orchestration
// API. Token must be a long-lived service token, not an ephemeral default.
type AuthBackend struct {
	Path           string // auth mount path, e.g. "kubernetes"
	Host           string
	CACert         string
	Token          string
	ServiceAccount string
	Namespace      string
}

// Machine brings the replicated secret store from any state to
// AuthBackendConfigured. Replicas[0] is the primary.
type Machine struct {
	Replicas []StoreClient

	// InternalAddr is the primary's in-cluster address, the target of
	// consensus joins from the other replicas.
	InternalAddr string

	Shares          int
	Threshold       int
	KeyMaterialPath string

	Root   *RootSource
	Mount  string // PKI engine mount path
	Role   string // issuance role name
	Domain string // domain suffix the role may issue under

	Auth *AuthBackend

	Observer pipeline.Observer

	// RaftWait bounds how long consensus formation may take. Exceeding it
	// is fatal: nothing downstream works on a partial cluster.
	RaftWait poll.Spec
}

// Run drives the machine to completion. Safe to invoke repeatedly; each
// transition probes before acting.
func (m *Machine) Run(ctx context.Context) error {
	if len(m.Replicas) == 0 {
		return fmt.Errorf("no store replicas configured")
	}

	km, err := m.ensureInitialized(ctx)
	if err != nil {
		return err
	}
	for _, replica := range m.Replicas {
		replica.SetToken(km.RootToken)
	}

	if err := m.unsealReplica(ctx, m.Replicas[0], km); err != nil {
		return fmt.Errorf("primary: %w", err)
	}

	for i, replica := range m.Replicas[1:] {
		if err := m.joinAndUnseal(ctx, replica, km); err != nil {
			return fmt.Errorf("replica %d: %w", i+1, err)
		}
	}

	if err := m.awaitConsensus(ctx); err != nil {
		return err
	}

	root, err := m.establishRoot(ctx)
	if err != nil {
		return err
	}

	if err := m.establishIntermediate(ctx, root); err != nil {
		return err
	}

	if m.Auth != nil {
		if err := m.configureAuth(ctx); err != nil {
			return err
		}
	}

	return nil
}

// ensureInitialized initializes the primary exactly once and returns the
// key material either way. An already-initialized store without local key
// material cannot be administered, which is fatal.
func (m *Machine) ensureInitialized(ctx context.Context) (*KeyMaterial, error) {
	primary := m.Replicas[0]
	status, err := primary.Health(ctx)
	if err != nil {
		return nil, fmt.Errorf("probe primary: %w", err)
	}

	if status.Initialized {
		km, err := LoadKeyMaterial(m.KeyMaterialPath)
		if os.IsNotExist(err) {
			return nil, pipeline.Fatal(fmt.Errorf(
				"store is initialized but key material %s is missing; restore it from backup to continue",
				m.KeyMaterialPath))
		}
		if err != nil {
			return nil, err
		}
		m.Observer.Printf("store already initialized, key material loaded")
		return km, nil
	}

	m.Observer.Printf("initializing store (%d shares, threshold %d)", m.Shares, m.Threshold)
	result, err := primary.Init(ctx, m.Shares, m.Threshold)
	if err != nil {
		return nil, fmt.Errorf("initialize store: %w", err)
	}

	// Protocol skew can silently change the share count. Trusting the
	// response here would persist unusable key material.
	if len(result.Keys) != m.Shares {
		return nil, pipeline.Fatal(fmt.Errorf(
			"store returned %d key shares, expected %d", len(result.Keys), m.Shares))
	}
	if result.RootToken == "" {
		return nil, pipeline.Fatal(fmt.Errorf("store returned no root token"))
	}

	km := &KeyMaterial{
		UnsealKeys: result.Keys,
		Threshold:  m.Threshold,
		RootToken:  result.RootToken,
	}
	if err := km.Save(m.KeyMaterialPath); err != nil {
		return nil, err
	}
	m.Observer.Printf("key material persisted to %s", m.KeyMaterialPath)
	return km, nil
}

// unsealReplica submits threshold shares one at a time. An already-unsealed
// replica is a no-op.
func (m *Machine) unsealReplica(ctx context.Context, replica StoreClient, km *KeyMaterial) error {
	status, err := replica.Health(ctx)
	if err != nil {
		return fmt.Errorf("probe seal status: %w", err)
	}
	if !status.Sealed {
		return nil
	}

	for i := 0; i < km.Threshold; i++ {
		status, err = replica.Unseal(ctx, km.UnsealKeys[i])
		if err != nil {
			return err
		}
		if !status.Sealed {
			m.Observer.Printf("replica %s unsealed", replica.Address())
			return nil
		}
	}
	return fmt.Errorf("replica %s still sealed after %d shares", replica.Address(), km.Threshold)
}

// joinAndUnseal points a non-primary replica at the consensus leader and
// unseals it. An initialized replica has already joined.
func (m *Machine) joinAndUnseal(ctx context.Context, replica StoreClient, km *KeyMaterial) error {
	status, err := replica.Health(ctx)
	if err != nil {
		return fmt.Errorf("probe seal status: %w", err)
	}

	if !status.Initialized {
		if err := replica.RaftJoin(ctx, m.InternalAddr); err != nil {
			return err
		}
		m.Observer.Printf("replica %s joined consensus via %s", replica.Address(), m.InternalAddr)
	}

	return m.unsealReplica(ctx, replica, km)
}

// awaitConsensus waits for the configuration to list every replica as a
// voter with a leader elected. A partial cluster is unrecoverable from
// here, so the timeout is fatal.
func (m *Machine) awaitConsensus(ctx context.Context) error {
	want := len(m.Replicas)
	result := poll.Await(ctx, m.RaftWait, func(ctx context.Context) (bool, error) {
		servers, err := m.Replicas[0].RaftConfiguration(ctx)
		if err != nil {
			return false, err
		}
		if len(servers) != want {
			return false, nil
		}
		var hasLeader bool
		for _, s := range servers {
			if !s.Voter {
				return false, nil
			}
			if s.Leader {
				hasLeader = true
			}
		}
		return hasLeader, nil
	})

	switch result.Outcome {
	case poll.Satisfied:
		m.Observer.Printf("consensus formed with %d voters after %v", want, result.Waited.Round(time.Second))
		return nil
	case poll.Cancelled:
		return result.LastErr
	default:
		return pipeline.Fatal(fmt.Errorf(
			"consensus cluster never formed within %v (last error: %v)", m.RaftWait.Timeout, result.LastErr))
	}
}

func (m *Machine) establishRoot(ctx context.Context) (*pki.RootCA, error) {
	root, created, err := m.Root.Establish(ctx)
	if err != nil {
		return nil, fmt.Errorf("establish root CA: %w", err)
	}
	if created {
		m.Observer.Printf("generated new root CA (%s)", root.Cert.Subject.CommonName)
	} else {
		m.Observer.Printf("reusing root CA (%s)", root.Cert.Subject.CommonName)
	}
	return root, nil
}

// establishIntermediate mounts the PKI engine, has the store create an
// intermediate key internally, signs its CSR with the offline root, and
// imports the chain back. Only certificate material crosses the boundary.
func (m *Machine) establishIntermediate(ctx context.Context, root *pki.RootCA) error {
	primary := m.Replicas[0]

	mounted, err := primary.MountExists(ctx, m.Mount)
	if err != nil {
		return err
	}
	if !mounted {
		if err := primary.EnableSecretsEngine(ctx, m.Mount, "pki", "87600h"); err != nil {
			return err
		}
		m.Observer.Printf("mounted PKI engine at %s/", m.Mount)
	}

	chain, err := primary.CAChain(ctx, m.Mount)
	if err != nil {
		return err
	}
	if strings.TrimSpace(chain) == "" {
		commonName := fmt.Sprintf("%s Intermediate CA", m.Domain)
		csr, err := primary.GenerateIntermediateCSR(ctx, m.Mount, commonName)
		if err != nil {
			return err
		}

		signed, err := root.SignIntermediateCSR([]byte(csr), intermediateValidity)
		if err != nil {
			return pipeline.Fatal(fmt.Errorf("sign intermediate: %w", err))
		}

		chainPEM := string(signed) + string(root.CertPEM)
		if err := primary.SetSignedIntermediate(ctx, m.Mount, chainPEM); err != nil {
			return pipeline.Fatal(fmt.Errorf("import intermediate chain: %w", err))
		}
		m.Observer.Printf("intermediate CA established under %s", root.Cert.Subject.CommonName)
	}

	return primary.WriteRole(ctx, m.Mount, m.Role, map[string]any{
		"allowed_domains":    []string{m.Domain},
		"allow_subdomains":   true,
		"allow_bare_domains": true,
		"require_cn":         false,
		"max_ttl":            roleMaxTTL,
	})
}

// configureAuth enables identity federation and scopes a policy to
// issuance under the established role only.
func (m *Machine) configureAuth(ctx context.Context) error {
	primary := m.Replicas[0]

	enabled, err := primary.AuthEnabled(ctx, m.Auth.Path)
	if err != nil {
		return err
	}
	if !enabled {
		if err := primary.EnableAuth(ctx, m.Auth.Path, "kubernetes"); err != nil {
			return err
		}
		m.Observer.Printf("enabled %s auth", m.Auth.Path)
	}

	if err := primary.WriteAuthConfig(ctx, m.Auth.Path, map[string]any{
		"kubernetes_host":    m.Auth.Host,
		"kubernetes_ca_cert": m.Auth.CACert,
		"token_reviewer_jwt": m.Auth.Token,
	}); err != nil {
		return err
	}

	policyName := m.Role + "-issuer"
	policy := fmt.Sprintf(`path %q {
  capabilities = ["create", "update"]
}
path %q {
  capabilities = ["create", "update"]
}
`, m.Mount+"/issue/"+m.Role, m.Mount+"/sign/"+m.Role)
	if err := primary.WritePolicy(ctx, policyName, policy); err != nil {
		return err
	}

	return primary.WriteAuthRole(ctx, m.Auth.Path, m.Role, map[string]any{
		"bound_service_account_names":      []string{m.Auth.ServiceAccount},
		"bound_service_account_namespaces": []string{m.Auth.Namespace},
		"policies":                         []string{policyName},
		"ttl":                              "1h",
	})
}

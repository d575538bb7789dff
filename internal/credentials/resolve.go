package credentials

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/platforge/platforge/internal/config"
)

// Logical names of generated secrets. Values already present in the store
// are kept verbatim so workloads that trust them keep working.
const (
	KeycloakAdminPassword  = "KEYCLOAK_ADMIN_PASSWORD"
	HarborAdminPassword    = "HARBOR_ADMIN_PASSWORD"
	GiteaAdminPassword     = "GITEA_ADMIN_PASSWORD"
	GiteaAdminToken        = "GITEA_ADMIN_TOKEN"
	OIDCClientSecretHarbor = "OIDC_CLIENT_SECRET_HARBOR"
	OIDCClientSecretGitea  = "OIDC_CLIENT_SECRET_GITEA"
)

// Logical names of derived identifiers, computed from configuration.
const (
	ClusterName   = "CLUSTER_NAME"
	Domain        = "DOMAIN"
	VaultAddr     = "VAULT_ADDR"
	OIDCIssuerURL = "OIDC_ISSUER_URL"
	RegistryURL   = "REGISTRY_URL"
	GitURL        = "GIT_URL"
)

var secretNames = []string{
	KeycloakAdminPassword,
	HarborAdminPassword,
	GiteaAdminPassword,
	GiteaAdminToken,
	OIDCClientSecretHarbor,
	OIDCClientSecretGitea,
}

// Resolve loads the persisted credential store, fills every unresolved
// logical name (random for secrets, computed for derived identifiers),
// rewrites the store and exports it to the process environment.
//
// Existing values are never regenerated, so re-running converges to the
// same credential set.
func Resolve(cfg *config.Config) (*Set, error) {
	set, err := Load(cfg.CredentialsPath())
	if err != nil {
		return nil, err
	}

	for _, name := range secretNames {
		if err := set.Ensure(name, randomSecret); err != nil {
			return nil, err
		}
	}

	derived := map[string]string{
		ClusterName:   cfg.ClusterName,
		Domain:        cfg.Domain,
		VaultAddr:     fmt.Sprintf("https://vault.%s", cfg.Domain),
		OIDCIssuerURL: fmt.Sprintf("https://auth.%s/realms/platform", cfg.Domain),
		RegistryURL:   fmt.Sprintf("https://registry.%s", cfg.Domain),
		GitURL:        fmt.Sprintf("https://git.%s", cfg.Domain),
	}
	for _, name := range []string{ClusterName, Domain, VaultAddr, OIDCIssuerURL, RegistryURL, GitURL} {
		value := derived[name]
		if err := set.Ensure(name, func() (string, error) { return value, nil }); err != nil {
			return nil, err
		}
	}

	if err := set.Write(cfg.CredentialsPath()); err != nil {
		return nil, err
	}
	if err := set.Export(); err != nil {
		return nil, err
	}

	return set, nil
}

// randomSecret returns 32 bytes of entropy, hex-encoded.
func randomSecret() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}

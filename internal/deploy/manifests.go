package deploy

// issuerManifests wires the in-cluster certificate issuer to the secret
// store's PKI mount. Placeholder tokens are resolved by the substitution
// pass before submission; %s is the secret-store namespace.
const issuerManifests = `apiVersion: v1
kind: ServiceAccount
metadata:
  name: platform-issuer
  namespace: %s
---
apiVersion: cert-manager.io/v1
kind: ClusterIssuer
metadata:
  name: platform-issuer
spec:
  vault:
    server: ${VAULT_ADDR}
    path: pki/sign/platform
    auth:
      kubernetes:
        mountPath: /v1/auth/kubernetes
        role: platform
        serviceAccountRef:
          name: platform-issuer
---
apiVersion: cert-manager.io/v1
kind: Certificate
metadata:
  name: wildcard-platform
  namespace: %s
spec:
  secretName: wildcard-platform-tls
  issuerRef:
    name: platform-issuer
    kind: ClusterIssuer
  dnsNames:
    - "${DOMAIN}"
    - "*.${DOMAIN}"
`

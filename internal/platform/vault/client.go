// Package vault is a minimal admin client for the consensus-backed secret store.
//
// Each Client addresses one replica. Calls return structured outcomes:
// not-found is ErrNotFound, an already-unsealed replica reports its status
// instead of failing. Only certificate material ever crosses this boundary
// for PKI operations; private keys stay on their respective side.
package vault

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrNotFound is returned when the store answers 404 for a read.
var ErrNotFound = errors.New("not found")

// Client is an administrative client for a single store replica.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the replica at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Address returns the replica's base URL.
func (c *Client) Address() string {
	return c.baseURL
}

// SetToken sets the privileged token sent on subsequent calls.
func (c *Client) SetToken(token string) {
	c.token = token
}

// SealStatus reports a replica's initialization and seal state.
// This endpoint answers without authentication.
type SealStatus struct {
	Initialized bool `json:"initialized"`
	Sealed      bool `json:"sealed"`
	Threshold   int  `json:"t"`
	Shares      int  `json:"n"`
	Progress    int  `json:"progress"`
}

// Health probes the replica's seal status.
func (c *Client) Health(ctx context.Context) (*SealStatus, error) {
	var status SealStatus
	if err := c.do(ctx, http.MethodGet, "/v1/sys/seal-status", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// InitResult is the one-time output of cluster initialization.
type InitResult struct {
	Keys      []string `json:"keys_base64"`
	RootToken string   `json:"root_token"`
}

// Init initializes the store, returning the unseal key shares and the
// privileged token. Valid exactly once per cluster.
func (c *Client) Init(ctx context.Context, shares, threshold int) (*InitResult, error) {
	body := map[string]int{
		"secret_shares":    shares,
		"secret_threshold": threshold,
	}
	var result InitResult
	if err := c.do(ctx, http.MethodPut, "/v1/sys/init", body, &result); err != nil {
		return nil, fmt.Errorf("init: %w", err)
	}
	return &result, nil
}

// Unseal submits one key share. The returned status reports remaining
// progress; an already-unsealed replica reports Sealed=false immediately.
func (c *Client) Unseal(ctx context.Context, key string) (*SealStatus, error) {
	var status SealStatus
	if err := c.do(ctx, http.MethodPut, "/v1/sys/unseal", map[string]string{"key": key}, &status); err != nil {
		return nil, fmt.Errorf("unseal: %w", err)
	}
	return &status, nil
}

// RaftJoin points this replica at the consensus leader. An initialized
// replica has already joined; the store answers joined=false then.
func (c *Client) RaftJoin(ctx context.Context, leaderAPIAddr string) error {
	body := map[string]string{"leader_api_addr": leaderAPIAddr}
	if err := c.do(ctx, http.MethodPost, "/v1/sys/storage/raft/join", body, nil); err != nil {
		return fmt.Errorf("raft join: %w", err)
	}
	return nil
}

// RaftServer is one member of the consensus configuration.
type RaftServer struct {
	NodeID string `json:"node_id"`
	Leader bool   `json:"leader"`
	Voter  bool   `json:"voter"`
}

// RaftConfiguration lists the current consensus members.
func (c *Client) RaftConfiguration(ctx context.Context) ([]RaftServer, error) {
	var resp struct {
		Data struct {
			Config struct {
				Servers []RaftServer `json:"servers"`
			} `json:"config"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sys/storage/raft/configuration", nil, &resp); err != nil {
		return nil, fmt.Errorf("raft configuration: %w", err)
	}
	return resp.Data.Config.Servers, nil
}

// MountExists reports whether a secrets engine is mounted at path.
func (c *Client) MountExists(ctx context.Context, path string) (bool, error) {
	err := c.do(ctx, http.MethodGet, "/v1/sys/mounts/"+path+"/tune", nil, nil)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("mount lookup: %w", err)
	}
	return true, nil
}

// EnableSecretsEngine mounts a secrets engine with a maximum lease TTL.
func (c *Client) EnableSecretsEngine(ctx context.Context, path, engineType, maxLeaseTTL string) error {
	body := map[string]any{
		"type": engineType,
		"config": map[string]string{
			"max_lease_ttl": maxLeaseTTL,
		},
	}
	if err := c.do(ctx, http.MethodPost, "/v1/sys/mounts/"+path, body, nil); err != nil {
		return fmt.Errorf("enable %s engine: %w", engineType, err)
	}
	return nil
}

// GenerateIntermediateCSR has the store create an intermediate key pair
// internally and return only the signing request. The private key is
// retained inside the store and never exported.
func (c *Client) GenerateIntermediateCSR(ctx context.Context, mount, commonName string) (string, error) {
	body := map[string]any{
		"common_name": commonName,
		"key_type":    "ec",
		"key_bits":    256,
	}
	var resp struct {
		Data struct {
			CSR string `json:"csr"`
		} `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/"+mount+"/intermediate/generate/internal", body, &resp); err != nil {
		return "", fmt.Errorf("generate intermediate CSR: %w", err)
	}
	return resp.Data.CSR, nil
}

// SetSignedIntermediate imports the locally signed certificate chain.
func (c *Client) SetSignedIntermediate(ctx context.Context, mount, chainPEM string) error {
	body := map[string]string{"certificate": chainPEM}
	if err := c.do(ctx, http.MethodPost, "/v1/"+mount+"/intermediate/set-signed", body, nil); err != nil {
		return fmt.Errorf("set signed intermediate: %w", err)
	}
	return nil
}

// CAChain reads the mount's current certificate chain, empty when unset.
func (c *Client) CAChain(ctx context.Context, mount string) (string, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/v1/"+mount+"/ca_chain", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ca chain: %w", err)
	}
	defer resp.Body.Close()

	// The chain endpoint returns raw PEM, 204 when no chain is configured.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ca chain: unexpected status %d", resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ca chain: %w", err)
	}
	return string(raw), nil
}

// WriteRole creates or updates an issuance role on a PKI mount.
func (c *Client) WriteRole(ctx context.Context, mount, role string, params map[string]any) error {
	if err := c.do(ctx, http.MethodPost, "/v1/"+mount+"/roles/"+role, params, nil); err != nil {
		return fmt.Errorf("write role %s: %w", role, err)
	}
	return nil
}

// IssuedCertificate is a leaf certificate issued under a role.
type IssuedCertificate struct {
	Certificate string   `json:"certificate"`
	PrivateKey  string   `json:"private_key"`
	CAChain     []string `json:"ca_chain"`
}

// IssueCertificate requests a leaf certificate from a role.
func (c *Client) IssueCertificate(ctx context.Context, mount, role string, params map[string]any) (*IssuedCertificate, error) {
	var resp struct {
		Data IssuedCertificate `json:"data"`
	}
	if err := c.do(ctx, http.MethodPost, "/v1/"+mount+"/issue/"+role, params, &resp); err != nil {
		return nil, fmt.Errorf("issue certificate: %w", err)
	}
	return &resp.Data, nil
}

// WritePolicy creates or updates an ACL policy.
func (c *Client) WritePolicy(ctx context.Context, name, policy string) error {
	body := map[string]string{"policy": policy}
	if err := c.do(ctx, http.MethodPut, "/v1/sys/policies/acl/"+name, body, nil); err != nil {
		return fmt.Errorf("write policy %s: %w", name, err)
	}
	return nil
}

// AuthEnabled reports whether an auth method is enabled at path.
func (c *Client) AuthEnabled(ctx context.Context, path string) (bool, error) {
	var resp struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/v1/sys/auth", nil, &resp); err != nil {
		return false, fmt.Errorf("auth lookup: %w", err)
	}
	_, ok := resp.Data[path+"/"]
	return ok, nil
}

// EnableAuth enables an auth method at path.
func (c *Client) EnableAuth(ctx context.Context, path, authType string) error {
	body := map[string]string{"type": authType}
	if err := c.do(ctx, http.MethodPost, "/v1/sys/auth/"+path, body, nil); err != nil {
		return fmt.Errorf("enable %s auth: %w", authType, err)
	}
	return nil
}

// WriteAuthConfig configures an enabled auth method.
func (c *Client) WriteAuthConfig(ctx context.Context, path string, params map[string]any) error {
	if err := c.do(ctx, http.MethodPost, "/v1/auth/"+path+"/config", params, nil); err != nil {
		return fmt.Errorf("configure %s auth: %w", path, err)
	}
	return nil
}

// WriteAuthRole creates or updates a role under an auth method.
func (c *Client) WriteAuthRole(ctx context.Context, path, role string, params map[string]any) error {
	if err := c.do(ctx, http.MethodPost, "/v1/auth/"+path+"/role/"+role, params, nil); err != nil {
		return fmt.Errorf("write auth role %s: %w", role, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("X-Vault-Token", c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode >= 400 {
		var apiErr struct {
			Errors []string `json:"errors"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &apiErr) == nil && len(apiErr.Errors) > 0 {
			return fmt.Errorf("status %d: %s", resp.StatusCode, strings.Join(apiErr.Errors, "; "))
		}
		return fmt.Errorf("status %d", resp.StatusCode)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

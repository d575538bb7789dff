// Package keycloak is a minimal admin client for the identity provider.
package keycloak

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client is an administrative client authenticated via the admin-cli flow.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a client for the identity provider at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Login obtains an admin bearer token via the password grant.
func (c *Client) Login(ctx context.Context, username, password string) error {
	form := url.Values{
		"grant_type": {"password"},
		"client_id":  {"admin-cli"},
		"username":   {username},
		"password":   {password},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/realms/master/protocol/openid-connect/token",
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("login: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login: unexpected status %d", resp.StatusCode)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return fmt.Errorf("login: failed to decode token response: %w", err)
	}

	c.token = tokenResp.AccessToken
	return nil
}

// EnsureRealm creates a realm; an existing realm is a success.
func (c *Client) EnsureRealm(ctx context.Context, realm string) error {
	body := map[string]any{
		"realm":   realm,
		"enabled": true,
	}
	status, err := c.post(ctx, "/admin/realms", body)
	if err != nil {
		return fmt.Errorf("ensure realm %s: %w", realm, err)
	}
	if status == http.StatusConflict {
		return nil
	}
	if status >= 400 {
		return fmt.Errorf("ensure realm %s: unexpected status %d", realm, status)
	}
	return nil
}

// ClientSpec describes an OIDC client registration.
type ClientSpec struct {
	ClientID     string
	Secret       string
	RedirectURIs []string
}

// EnsureClient registers an OIDC client in a realm; an existing client is
// a success.
func (c *Client) EnsureClient(ctx context.Context, realm string, spec ClientSpec) error {
	body := map[string]any{
		"clientId":     spec.ClientID,
		"secret":       spec.Secret,
		"enabled":      true,
		"protocol":     "openid-connect",
		"redirectUris": spec.RedirectURIs,
	}
	status, err := c.post(ctx, "/admin/realms/"+realm+"/clients", body)
	if err != nil {
		return fmt.Errorf("ensure client %s: %w", spec.ClientID, err)
	}
	if status == http.StatusConflict {
		return nil
	}
	if status >= 400 {
		return fmt.Errorf("ensure client %s: unexpected status %d", spec.ClientID, status)
	}
	return nil
}

func (c *Client) post(ctx context.Context, path string, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

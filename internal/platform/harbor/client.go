// Package harbor is a minimal admin client for the container registry.
package harbor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client is an administrative registry client using basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a client for the registry at baseURL.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureProject creates a project; an existing project is a success.
func (c *Client) EnsureProject(ctx context.Context, name string, public bool) error {
	body := map[string]any{
		"project_name": name,
		"metadata": map[string]string{
			"public": fmt.Sprintf("%t", public),
		},
	}
	status, err := c.do(ctx, http.MethodPost, "/api/v2.0/projects", body)
	if err != nil {
		return fmt.Errorf("ensure project %s: %w", name, err)
	}
	if status == http.StatusConflict {
		return nil
	}
	if status >= 400 {
		return fmt.Errorf("ensure project %s: unexpected status %d", name, status)
	}
	return nil
}

// OIDCSettings configures single sign-on against the identity provider.
type OIDCSettings struct {
	Name         string
	Endpoint     string
	ClientID     string
	ClientSecret string
}

// ConfigureOIDC switches the registry's auth mode to OIDC. The call is
// idempotent: the registry replaces the whole configuration section.
func (c *Client) ConfigureOIDC(ctx context.Context, settings OIDCSettings) error {
	body := map[string]any{
		"auth_mode":          "oidc_auth",
		"oidc_name":          settings.Name,
		"oidc_endpoint":      settings.Endpoint,
		"oidc_client_id":     settings.ClientID,
		"oidc_client_secret": settings.ClientSecret,
		"oidc_scope":         "openid,profile,email",
		"oidc_auto_onboard":  true,
	}
	status, err := c.do(ctx, http.MethodPut, "/api/v2.0/configurations", body)
	if err != nil {
		return fmt.Errorf("configure oidc: %w", err)
	}
	if status >= 400 {
		return fmt.Errorf("configure oidc: unexpected status %d", status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return 0, fmt.Errorf("failed to encode request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

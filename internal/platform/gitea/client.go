// Package gitea is a minimal admin client for the source-control host.
package gitea

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

// Client is an administrative client using basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	httpClient *http.Client
}

// NewClient creates a client for the source-control host at baseURL.
func NewClient(baseURL, username, password string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		username:   username,
		password:   password,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// EnsureOrg creates an organization; an existing one is a success.
func (c *Client) EnsureOrg(ctx context.Context, name string) error {
	exists, err := c.exists(ctx, "/api/v1/orgs/"+name)
	if err != nil {
		return fmt.Errorf("ensure org %s: %w", name, err)
	}
	if exists {
		return nil
	}

	status, err := c.do(ctx, http.MethodPost, "/api/v1/orgs", map[string]string{"username": name})
	if err != nil {
		return fmt.Errorf("ensure org %s: %w", name, err)
	}
	if status >= 400 {
		return fmt.Errorf("ensure org %s: unexpected status %d", name, status)
	}
	return nil
}

// EnsureRepo creates a repository under an organization; an existing one is
// a success.
func (c *Client) EnsureRepo(ctx context.Context, org, name string) error {
	exists, err := c.exists(ctx, "/api/v1/repos/"+org+"/"+name)
	if err != nil {
		return fmt.Errorf("ensure repo %s/%s: %w", org, name, err)
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"name":      name,
		"private":   true,
		"auto_init": true,
	}
	status, err := c.do(ctx, http.MethodPost, "/api/v1/orgs/"+org+"/repos", body)
	if err != nil {
		return fmt.Errorf("ensure repo %s/%s: %w", org, name, err)
	}
	if status >= 400 {
		return fmt.Errorf("ensure repo %s/%s: unexpected status %d", org, name, status)
	}
	return nil
}

// AddDeployKey registers a read-write deploy key on a repository. A key
// already registered (422) is a success.
func (c *Client) AddDeployKey(ctx context.Context, org, repo, title, publicKey string) error {
	body := map[string]any{
		"title":     title,
		"key":       publicKey,
		"read_only": false,
	}
	status, err := c.do(ctx, http.MethodPost, "/api/v1/repos/"+org+"/"+repo+"/keys", body)
	if err != nil {
		return fmt.Errorf("add deploy key to %s/%s: %w", org, repo, err)
	}
	if status == http.StatusUnprocessableEntity {
		// The host rejects duplicate key material.
		return nil
	}
	if status >= 400 {
		return fmt.Errorf("add deploy key to %s/%s: unexpected status %d", org, repo, status)
	}
	return nil
}

func (c *Client) exists(ctx context.Context, path string) (bool, error) {
	status, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return false, err
	}
	if status == http.StatusNotFound {
		return false, nil
	}
	if status >= 400 {
		return false, fmt.Errorf("unexpected status %d", status)
	}
	return true, nil
}

func (c *Client) do(ctx context.Context, method, path string, body any) (int, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

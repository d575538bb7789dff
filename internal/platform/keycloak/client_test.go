package keycloak

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loginAnd(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/realms/master/protocol/openid-connect/token" {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "password", r.Form.Get("grant_type"))
			json.NewEncoder(w).Encode(map[string]string{"access_token": "admin-token"})
			return
		}
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	c := NewClient(srv.URL)
	require.NoError(t, c.Login(context.Background(), "admin", "secret"))
	return c
}

func TestEnsureRealm_Creates(t *testing.T) {
	t.Parallel()
	c := loginAnd(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/realms", r.URL.Path)
		assert.Equal(t, "Bearer admin-token", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.EnsureRealm(context.Background(), "platform"))
}

func TestEnsureRealm_ExistingIsSuccess(t *testing.T) {
	t.Parallel()
	c := loginAnd(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	require.NoError(t, c.EnsureRealm(context.Background(), "platform"))
}

func TestEnsureRealm_ServerError(t *testing.T) {
	t.Parallel()
	c := loginAnd(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	require.Error(t, c.EnsureRealm(context.Background(), "platform"))
}

func TestEnsureClient(t *testing.T) {
	t.Parallel()
	c := loginAnd(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/realms/platform/clients", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "harbor", body["clientId"])
		assert.Equal(t, "openid-connect", body["protocol"])

		w.WriteHeader(http.StatusCreated)
	})

	require.NoError(t, c.EnsureClient(context.Background(), "platform", ClientSpec{
		ClientID:     "harbor",
		Secret:       "s3cret",
		RedirectURIs: []string{"https://registry.cloud.example.com/c/oidc/callback"},
	}))
}

func TestLogin_BadCredentials(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	require.Error(t, c.Login(context.Background(), "admin", "wrong"))
}

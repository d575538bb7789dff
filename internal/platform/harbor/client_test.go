package harbor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureProject(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v2.0/projects", r.URL.Path)

		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "admin", user)
		assert.Equal(t, "secret", pass)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "platform", body["project_name"])

		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	require.NoError(t, c.EnsureProject(context.Background(), "platform", false))
}

func TestEnsureProject_ExistingIsSuccess(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusConflict)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	require.NoError(t, c.EnsureProject(context.Background(), "platform", false))
}

func TestConfigureOIDC(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/api/v2.0/configurations", r.URL.Path)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "oidc_auth", body["auth_mode"])
		assert.Equal(t, "https://auth.cloud.example.com/realms/platform", body["oidc_endpoint"])

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	require.NoError(t, c.ConfigureOIDC(context.Background(), OIDCSettings{
		Name:         "keycloak",
		Endpoint:     "https://auth.cloud.example.com/realms/platform",
		ClientID:     "harbor",
		ClientSecret: "s3cret",
	}))
}

func TestConfigureOIDC_ServerError(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "admin", "secret")
	require.Error(t, c.ConfigureOIDC(context.Background(), OIDCSettings{}))
}

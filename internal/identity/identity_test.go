package identity_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/identity"
	"inkwell/internal/users"
)

func newProviderServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *identity.Client) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, identity.NewClient(server.URL, "test-api-key")
}

func TestCurrentSession(t *testing.T) {
	var gotAuth string
	_, client := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/v1/sessions/valid-token":
			json.NewEncoder(w).Encode(identity.Session{UserID: 7, ClerkID: "clerk_7", Role: users.RoleAdmin})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})

	session, err := client.CurrentSession(context.Background(), "valid-token")
	require.NoError(t, err)
	assert.Equal(t, uint(7), session.UserID)
	assert.Equal(t, users.RoleAdmin, session.Role)
	assert.Equal(t, "Bearer test-api-key", gotAuth)

	_, err = client.CurrentSession(context.Background(), "expired-token")
	assert.ErrorIs(t, err, identity.ErrNoSession)

	// A blank token never reaches the wire.
	_, err = client.CurrentSession(context.Background(), "  ")
	assert.ErrorIs(t, err, identity.ErrNoSession)
}

func TestCreateUser(t *testing.T) {
	_, client := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/v1/users", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "new@example.com", payload["email"])
		assert.Equal(t, "AUTHOR", payload["role"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(identity.RemoteUser{ClerkID: "clerk_new", Email: payload["email"], Role: payload["role"]})
	})

	remote, err := client.CreateUser(context.Background(), "new@example.com", users.RoleAuthor)
	require.NoError(t, err)
	assert.Equal(t, "clerk_new", remote.ClerkID)
}

func TestDeleteUser(t *testing.T) {
	_, client := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		switch r.URL.Path {
		case "/v1/users/clerk_known":
			w.WriteHeader(http.StatusNoContent)
		case "/v1/users/clerk_unknown":
			w.WriteHeader(http.StatusNotFound)
		default:
			w.WriteHeader(http.StatusInternalServerError)
		}
	})

	assert.NoError(t, client.DeleteUser(context.Background(), "clerk_known"))
	assert.ErrorIs(t, client.DeleteUser(context.Background(), "clerk_unknown"), identity.ErrUserNotFound)
	assert.Error(t, client.DeleteUser(context.Background(), "clerk_boom"))
}

func TestUpdateRole(t *testing.T) {
	_, client := newProviderServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.Equal(t, "/v1/users/clerk_7/metadata", r.URL.Path)

		var payload map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "ADMIN", payload["role"])
		w.WriteHeader(http.StatusOK)
	})

	assert.NoError(t, client.UpdateRole(context.Background(), "clerk_7", users.RoleAdmin))
}

package http_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/testsupport"
	"inkwell/internal/users"
)

func TestWebhookUserCreated(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	payload := map[string]interface{}{
		"type": "user.created",
		"data": map[string]string{"id": "clerk_hook", "email": "hook@example.com", "role": "AUTHOR"},
	}
	resp := adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Received bool `json:"received"`
	}
	decodeBody(t, resp, &body)
	assert.True(t, body.Received)

	user, err := users.FindByClerkID(db, "clerk_hook")
	require.NoError(t, err)
	assert.Equal(t, "hook@example.com", user.Email)
	assert.Equal(t, users.RoleAuthor, user.Role)
}

func TestWebhookReplayIsIdempotent(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	payload := map[string]interface{}{
		"type": "user.created",
		"data": map[string]string{"id": "clerk_replay", "email": "first@example.com", "role": "USER"},
	}
	resp := adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Same event again, updated email: one row, latest data.
	payload["data"] = map[string]string{"id": "clerk_replay", "email": "second@example.com", "role": "USER"}
	resp = adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	list, err := users.List(db)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "second@example.com", list[0].Email)
}

func TestWebhookUnknownRoleDefaultsToUser(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	payload := map[string]interface{}{
		"type": "user.updated",
		"data": map[string]string{"id": "clerk_norole", "email": "x@example.com", "role": "SUPERADMIN"},
	}
	resp := adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	user, err := users.FindByClerkID(db, "clerk_norole")
	require.NoError(t, err)
	assert.Equal(t, users.RoleUser, user.Role)
}

func TestWebhookUserDeleted(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	testsupport.CreateTestUser(t, db, "clerk_bye", users.RoleUser, time.Now().UTC())

	payload := map[string]interface{}{
		"type": "user.deleted",
		"data": map[string]string{"id": "clerk_bye"},
	}
	resp := adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err := users.FindByClerkID(db, "clerk_bye")
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	// Replaying the deletion stays 200.
	resp = adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestWebhookValidation(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	// Missing user id.
	payload := map[string]interface{}{
		"type": "user.created",
		"data": map[string]string{"email": "x@example.com"},
	}
	resp := adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// Unhandled event types are acknowledged, not rejected.
	payload = map[string]interface{}{
		"type": "session.created",
		"data": map[string]string{"id": "clerk_x"},
	}
	resp = adminJSON(t, app, http.MethodPost, "/api/webhooks/identity", payload)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

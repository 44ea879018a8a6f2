package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/identity"
	"inkwell/internal/testsupport"
	"inkwell/internal/users"
)

func TestSignupUserHappyPath(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	provider := testsupport.NewFakeIdentityProvider()

	user, err := identity.SignupUser(context.Background(), provider, logger, db, "new@example.com", users.RoleAuthor)
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotEmpty(t, user.ClerkID)
	assert.Equal(t, users.RoleAuthor, user.Role)

	// Both sides exist: the identity and the local row.
	assert.Contains(t, provider.Users, user.ClerkID)
	local, err := users.FindByClerkID(db, user.ClerkID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", local.Email)
}

func TestSignupUserRejectsInvalidRole(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	provider := testsupport.NewFakeIdentityProvider()

	_, err := identity.SignupUser(context.Background(), provider, testsupport.GetLogger(), db, "x@example.com", "WIZARD")
	assert.ErrorIs(t, err, users.ErrInvalidRole)
	// Validation happens before phase 1; no identity was created.
	assert.Empty(t, provider.Users)
}

func TestSignupUserPhaseOneFailure(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	provider := testsupport.NewFakeIdentityProvider()
	provider.FailCreate = true

	_, err := identity.SignupUser(context.Background(), provider, testsupport.GetLogger(), db, "x@example.com", users.RoleUser)
	require.Error(t, err)

	list, listErr := users.List(db)
	require.NoError(t, listErr)
	assert.Empty(t, list)
}

func TestSignupUserCompensatesOnPhaseTwoFailure(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	provider := testsupport.NewFakeIdentityProvider()

	// The fake provider hands out clerk_1 first; a pre-existing local row
	// with that id makes the local sync hit the unique index.
	testsupport.CreateTestUser(t, db, "clerk_1", users.RoleUser, time.Now().UTC())

	_, err := identity.SignupUser(context.Background(), provider, logger, db, "dup@example.com", users.RoleUser)
	require.Error(t, err)

	// The compensating delete removed the just-created identity.
	assert.Equal(t, []string{"clerk_1"}, provider.DeleteCalls)
	assert.NotContains(t, provider.Users, "clerk_1")
}

func TestSignupUserSwallowsCompensationFailure(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	provider := testsupport.NewFakeIdentityProvider()
	provider.FailDelete = true

	testsupport.CreateTestUser(t, db, "clerk_1", users.RoleUser, time.Now().UTC())

	_, err := identity.SignupUser(context.Background(), provider, logger, db, "dup@example.com", users.RoleUser)
	require.Error(t, err)
	// The caller sees the sync failure, not the compensation failure.
	assert.Contains(t, err.Error(), "syncing local user")
	// The orphaned identity stays behind; that is the accepted outcome.
	assert.Contains(t, provider.Users, "clerk_1")
}

func TestRemoveUserHappyPath(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	provider := testsupport.NewFakeIdentityProvider()

	user, err := identity.SignupUser(context.Background(), provider, logger, db, "gone@example.com", users.RoleUser)
	require.NoError(t, err)

	require.NoError(t, identity.RemoveUser(context.Background(), provider, logger, db, user))

	_, err = users.FindByClerkID(db, user.ClerkID)
	assert.ErrorIs(t, err, users.ErrUserNotFound)
	assert.NotContains(t, provider.Users, user.ClerkID)

	pending, err := users.UnresolvedDeletions(db, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRemoveUserProviderAbsenceIsBenign(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	provider := testsupport.NewFakeIdentityProvider()

	// Local row exists but the provider never heard of it.
	user := testsupport.CreateTestUser(t, db, "clerk_orphan", users.RoleUser, time.Now().UTC())

	require.NoError(t, identity.RemoveUser(context.Background(), provider, logger, db, &user))

	pending, err := users.UnresolvedDeletions(db, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRemoveUserSoftFailsProviderErrors(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()
	provider := testsupport.NewFakeIdentityProvider()
	provider.FailDelete = true

	user := testsupport.CreateTestUser(t, db, "clerk_stuck", users.RoleUser, time.Now().UTC())

	// Deletion reports success to the caller despite the provider failure.
	require.NoError(t, identity.RemoveUser(context.Background(), provider, logger, db, &user))

	// The local row is gone and the failure is on the audit trail.
	_, err := users.FindByClerkID(db, "clerk_stuck")
	assert.ErrorIs(t, err, users.ErrUserNotFound)

	pending, err := users.UnresolvedDeletions(db, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "clerk_stuck", pending[0].ClerkID)
}

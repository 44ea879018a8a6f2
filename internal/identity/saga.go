package identity

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"gorm.io/gorm"

	"inkwell/internal/users"
)

// SignupUser provisions an identity and syncs the local user record as a
// two-phase saga. Phase 1 creates the external identity; phase 2 writes the
// local row. When phase 2 fails, the just-created identity is deleted as a
// compensating action. Compensation failures are logged and swallowed; the
// phase-2 error is what the caller sees either way.
func SignupUser(ctx context.Context, provider Provider, logger *slog.Logger, db *gorm.DB, email string, role users.Role) (*users.User, error) {
	if !users.ValidRole(role) {
		return nil, users.ErrInvalidRole
	}

	remote, err := provider.CreateUser(ctx, email, role)
	if err != nil {
		return nil, fmt.Errorf("creating identity: %w", err)
	}

	user := &users.User{
		ClerkID: remote.ClerkID,
		Email:   email,
		Role:    role,
	}
	if err := users.Create(logger, db, user); err != nil {
		logger.Error("Local user sync failed, rolling back identity",
			slog.String("clerkId", remote.ClerkID),
			slog.Any("error", err))

		if rollbackErr := provider.DeleteUser(ctx, remote.ClerkID); rollbackErr != nil {
			logger.Error("Compensating identity delete failed",
				slog.String("clerkId", remote.ClerkID),
				slog.Any("error", rollbackErr))
		}
		return nil, fmt.Errorf("syncing local user: %w", err)
	}

	return user, nil
}

// RemoveUser deletes a user locally and at the provider. A locally absent
// record is benign and only logged. A provider failure is soft-failed into
// a FailedUserDeletion audit row for admin review and background retry.
func RemoveUser(ctx context.Context, provider Provider, logger *slog.Logger, db *gorm.DB, user *users.User) error {
	found, err := users.DeleteByClerkID(logger, db, user.ClerkID)
	if err != nil {
		return fmt.Errorf("deleting local user: %w", err)
	}
	if !found {
		logger.Warn("Local user already absent during deletion",
			slog.String("clerkId", user.ClerkID))
	}

	if err := provider.DeleteUser(ctx, user.ClerkID); err != nil {
		if errors.Is(err, ErrUserNotFound) {
			logger.Warn("Identity already absent during deletion",
				slog.String("clerkId", user.ClerkID))
			return nil
		}

		logger.Error("Identity deletion failed, recording for retry",
			slog.String("clerkId", user.ClerkID),
			slog.Any("error", err))
		if auditErr := users.RecordFailedDeletion(logger, db, user.ClerkID, err); auditErr != nil {
			return fmt.Errorf("recording failed deletion: %w", auditErr)
		}
	}

	return nil
}

package jobs

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"inkwell/internal/identity"
	"inkwell/internal/users"
)

// retryBatchSize caps how many audit rows one run retries.
const retryBatchSize = 50

// DeletionRetryJob retries identity deletions that previously failed and
// were parked in the failed_user_deletions audit table.
type DeletionRetryJob struct {
	dbManager cartridge.DBManager
	provider  identity.Provider
	logger    *slog.Logger
}

func NewDeletionRetryJob(dbManager cartridge.DBManager, provider identity.Provider, logger *slog.Logger) *DeletionRetryJob {
	return &DeletionRetryJob{
		dbManager: dbManager,
		provider:  provider,
		logger:    logger,
	}
}

// Run retries every unresolved deletion once. An identity the provider no
// longer knows counts as resolved.
func (j *DeletionRetryJob) Run() error {
	db := j.dbManager.GetConnection()

	pending, err := users.UnresolvedDeletions(db, retryBatchSize)
	if err != nil {
		return err
	}
	if len(pending) == 0 {
		j.logger.Debug("No failed deletions to retry")
		return nil
	}

	j.logger.Info("Retrying failed identity deletions", slog.Int("count", len(pending)))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	for _, row := range pending {
		err := j.provider.DeleteUser(ctx, row.ClerkID)
		if err != nil && !errors.Is(err, identity.ErrUserNotFound) {
			j.logger.Warn("Identity deletion retry failed",
				slog.String("clerkId", row.ClerkID),
				slog.Any("error", err))
			continue
		}

		if err := users.MarkDeletionResolved(j.logger, db, row.ID); err != nil {
			j.logger.Error("Failed to mark deletion resolved",
				slog.Uint64("id", uint64(row.ID)),
				slog.Any("error", err))
			continue
		}
		j.logger.Info("Resolved failed identity deletion",
			slog.String("clerkId", row.ClerkID))
	}

	return nil
}

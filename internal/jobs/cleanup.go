package jobs

import (
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"

	"inkwell/internal/config"
	"inkwell/internal/users"
)

// CleanupJob purges resolved deletion audit rows past the retention window.
type CleanupJob struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
	cfg       *config.Config
}

func NewCleanupJob(dbManager cartridge.DBManager, logger *slog.Logger, cfg *config.Config) *CleanupJob {
	return &CleanupJob{
		dbManager: dbManager,
		logger:    logger,
		cfg:       cfg,
	}
}

// Run removes resolved audit rows older than the retention period.
func (j *CleanupJob) Run() error {
	retentionDays := j.cfg.ResolvedDeletionsRetentionDays
	db := j.dbManager.GetConnection()
	cutoffDate := time.Now().AddDate(0, 0, -retentionDays)

	j.logger.Info("Starting cleanup of resolved deletion records",
		slog.Int("retention_days", retentionDays),
		slog.Time("cutoff_date", cutoffDate))

	var countToDelete int64
	if err := db.Model(&users.FailedUserDeletion{}).
		Where("resolved = 1 AND created_at < ?", cutoffDate).
		Count(&countToDelete).Error; err != nil {
		j.logger.Error("Failed to count resolved deletion records", slog.Any("error", err))
		return err
	}

	if countToDelete == 0 {
		j.logger.Debug("No resolved deletion records to clean up")
		return nil
	}

	// Delete in batches to avoid locking the database for too long
	batchSize := 1000
	totalDeleted := int64(0)

	for {
		result := db.Where("resolved = 1 AND created_at < ?", cutoffDate).
			Limit(batchSize).
			Delete(&users.FailedUserDeletion{})

		if result.Error != nil {
			j.logger.Error("Failed to delete resolved deletion records",
				slog.Any("error", result.Error),
				slog.Int64("deleted_so_far", totalDeleted))
			return result.Error
		}

		totalDeleted += result.RowsAffected

		if result.RowsAffected < int64(batchSize) {
			break
		}

		// Small delay between batches to prevent database lock contention
		time.Sleep(100 * time.Millisecond)
	}

	j.logger.Info("Cleaned up resolved deletion records",
		slog.Int64("deleted_count", totalDeleted),
		slog.Int("retention_days", retentionDays))
	return nil
}

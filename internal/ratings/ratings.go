// Package ratings owns the Rating entity and its aggregations.
package ratings

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"inkwell/internal/timerange"
)

// Rating is a 1-5 score left on a post.
type Rating struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Value     float64   `gorm:"not null" json:"value"`
	PostID    uint      `gorm:"index;not null" json:"postId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// ErrInvalidValue is returned when a rating value falls outside 1-5.
var ErrInvalidValue = errors.New("rating value must be between 1 and 5")

// AverageForPostsCreatedIn returns the mean rating value over ratings whose
// parent post was created inside the interval. An empty set averages to 0.
func AverageForPostsCreatedIn(db *gorm.DB, interval *timerange.Interval) (float64, error) {
	query := db.Model(&Rating{}).
		Joins("JOIN posts ON posts.id = ratings.post_id")
	if interval != nil {
		query = query.Where("posts.created_at >= ? AND posts.created_at < ?", interval.From, interval.To)
	}

	var result struct {
		Average float64
	}
	err := query.Select("COALESCE(AVG(ratings.value), 0) AS average").Scan(&result).Error
	if err != nil {
		return 0, fmt.Errorf("error averaging ratings: %w", err)
	}
	return result.Average, nil
}

// CountForPostsCreatedIn counts ratings whose parent post was created
// inside the interval.
func CountForPostsCreatedIn(db *gorm.DB, interval *timerange.Interval) (int64, error) {
	query := db.Model(&Rating{}).
		Joins("JOIN posts ON posts.id = ratings.post_id")
	if interval != nil {
		query = query.Where("posts.created_at >= ? AND posts.created_at < ?", interval.From, interval.To)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting ratings: %w", err)
	}
	return count, nil
}

// Create inserts a rating and refreshes the parent post's denormalized
// average and count in the same transaction.
func Create(logger *slog.Logger, db *gorm.DB, rating *Rating) error {
	if rating.Value < 1 || rating.Value > 5 {
		return ErrInvalidValue
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		if err := tx.Create(rating).Error; err != nil {
			return err
		}
		return tx.Exec(`
            UPDATE posts SET
                average_rating = (SELECT AVG(value) FROM ratings WHERE post_id = ?),
                rating_count = (SELECT COUNT(*) FROM ratings WHERE post_id = ?)
            WHERE id = ?
        `, rating.PostID, rating.PostID, rating.PostID).Error
	})
}

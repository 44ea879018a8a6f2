// Package comments owns the Comment entity, its reactions, and the
// interval-scoped queries the dashboard runs.
package comments

import (
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"inkwell/internal/timerange"
)

// Comment is a reader comment on a post.
type Comment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Content   string    `gorm:"not null" json:"content"`
	PostID    uint      `gorm:"index;not null" json:"postId"`
	AuthorID  uint      `gorm:"index" json:"authorId"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Reaction is a like or dislike on a comment, one per user per comment.
type Reaction struct {
	ID        uint `gorm:"primaryKey"`
	CommentID uint `gorm:"uniqueIndex:idx_reaction_unique;not null"`
	UserID    uint `gorm:"uniqueIndex:idx_reaction_unique;not null"`
	Positive  bool `gorm:"not null"`
	CreatedAt time.Time
}

// CountForPostsCreatedIn counts comments whose parent post was created
// inside the interval. The dashboard scopes comment activity by post
// cohort, not by comment timestamp.
func CountForPostsCreatedIn(db *gorm.DB, interval *timerange.Interval) (int64, error) {
	query := db.Model(&Comment{}).
		Joins("JOIN posts ON posts.id = comments.post_id")
	if interval != nil {
		query = query.Where("posts.created_at >= ? AND posts.created_at < ?", interval.From, interval.To)
	}

	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, fmt.Errorf("error counting comments: %w", err)
	}
	return count, nil
}

// ListEntry is one row of the paginated comment listing with derived
// reaction counts.
type ListEntry struct {
	ID        uint      `json:"id"`
	Content   string    `json:"content"`
	PostID    uint      `json:"postId"`
	PostTitle string    `json:"postTitle"`
	AuthorID  uint      `json:"authorId"`
	Likes     int64     `json:"likes"`
	Dislikes  int64     `json:"dislikes"`
	CreatedAt time.Time `json:"createdAt"`
}

// List returns comments newest first with like/dislike counts, paginated.
func List(db *gorm.DB, page, perPage int) ([]ListEntry, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 20
	}

	var total int64
	if err := db.Model(&Comment{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting comments: %w", err)
	}

	var rows []ListEntry
	err := db.Model(&Comment{}).
		Select(`comments.id, comments.content, comments.post_id, posts.title AS post_title,
			comments.author_id, comments.created_at,
			(SELECT COUNT(*) FROM reactions WHERE reactions.comment_id = comments.id AND reactions.positive = 1) AS likes,
			(SELECT COUNT(*) FROM reactions WHERE reactions.comment_id = comments.id AND reactions.positive = 0) AS dislikes`).
		Joins("JOIN posts ON posts.id = comments.post_id").
		Order("comments.created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error listing comments: %w", err)
	}
	return rows, total, nil
}

// Create inserts a comment.
func Create(logger *slog.Logger, db *gorm.DB, comment *Comment) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(comment).Error
	})
}

// Package posts owns the Post entity and the queries the dashboard and
// public pages run against it.
package posts

import (
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"inkwell/internal/timerange"
)

// Post is a blog article. Published posts always carry a PublishedAt
// timestamp; ViewCount never goes below zero.
type Post struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Title         string     `gorm:"not null" json:"title"`
	Slug          string     `gorm:"uniqueIndex;not null" json:"slug"`
	Body          string     `json:"body"`
	Published     bool       `gorm:"not null;default:false;index" json:"published"`
	ViewCount     int64      `gorm:"not null;default:0" json:"viewCount"`
	AverageRating *float64   `json:"averageRating"`
	RatingCount   int        `gorm:"not null;default:0" json:"ratingCount"`
	PublishedAt   *time.Time `json:"publishedAt"`
	CategoryID    uint       `gorm:"index" json:"categoryId"`
	AuthorID      uint       `gorm:"index" json:"authorId"`
	CreatedAt     time.Time  `gorm:"index" json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

// PostView records a single tracked view for audit and per-country
// reporting. The authoritative counter is Post.ViewCount.
type PostView struct {
	ID        uint   `gorm:"primaryKey"`
	PostID    uint   `gorm:"index;not null"`
	VisitorID string `gorm:"size:64;index"`
	Country   string `gorm:"size:2"`
	CreatedAt time.Time
}

// ErrPostNotFound is returned when a post lookup fails.
var ErrPostNotFound = gorm.ErrRecordNotFound

// FindBySlug retrieves a post by slug.
func FindBySlug(db *gorm.DB, slug string) (*Post, error) {
	var post Post
	if err := db.Where("slug = ?", slug).First(&post).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// ListPublished returns published posts, newest first, paginated.
func ListPublished(db *gorm.DB, page, perPage int) ([]Post, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	var total int64
	if err := db.Model(&Post{}).Where("published = ?", true).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("error counting published posts: %w", err)
	}

	var result []Post
	err := db.Where("published = ?", true).
		Order("published_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&result).Error
	if err != nil {
		return nil, 0, fmt.Errorf("error listing published posts: %w", err)
	}
	return result, total, nil
}

// CountInInterval counts posts created inside the interval (all posts when
// the interval is nil).
func CountInInterval(db *gorm.DB, interval *timerange.Interval) (int64, error) {
	var count int64
	err := timerange.Scope(db.Model(&Post{}), interval).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting posts: %w", err)
	}
	return count, nil
}

// CountPublishedInInterval counts published posts created inside the
// interval.
func CountPublishedInInterval(db *gorm.DB, interval *timerange.Interval) (int64, error) {
	var count int64
	err := timerange.Scope(db.Model(&Post{}), interval).
		Where("published = ?", true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("error counting published posts: %w", err)
	}
	return count, nil
}

// SumViewsInInterval sums the view counters of posts created inside the
// interval. Rows are loaded and summed client-side to match the view
// counter's read path elsewhere.
func SumViewsInInterval(db *gorm.DB, interval *timerange.Interval) (int64, error) {
	var rows []Post
	err := timerange.Scope(db.Model(&Post{}), interval).
		Select("view_count").
		Find(&rows).Error
	if err != nil {
		return 0, fmt.Errorf("error loading post views: %w", err)
	}

	var total int64
	for _, row := range rows {
		total += row.ViewCount
	}
	return total, nil
}

// PopularPost is one entry of the popular-posts ranking.
type PopularPost struct {
	ID           uint       `json:"id"`
	Title        string     `json:"title"`
	Views        int64      `json:"views"`
	Rating       float64    `json:"rating"`
	CommentCount int64      `json:"commentCount"`
	Published    bool       `json:"published"`
	PublishedAt  *time.Time `json:"publishedAt"`
}

// Popular returns the top posts by view count, each annotated with its live
// comment count. Unlike the comparative metrics this is a single-interval
// top-N query.
func Popular(db *gorm.DB, interval *timerange.Interval, limit int) ([]PopularPost, error) {
	if limit < 1 {
		limit = 3
	}

	var rows []PopularPost
	err := timerange.Scope(db.Model(&Post{}), interval).
		Select(`posts.id, posts.title, posts.view_count AS views,
			COALESCE(posts.average_rating, 0) AS rating,
			(SELECT COUNT(*) FROM comments WHERE comments.post_id = posts.id) AS comment_count,
			posts.published, posts.published_at`).
		Order("posts.view_count DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error loading popular posts: %w", err)
	}
	return rows, nil
}

// IncrementViews atomically bumps a post's view counter and records the
// view. The increment is a single-row UPDATE, so concurrent views never
// race a read-modify-write.
func IncrementViews(logger *slog.Logger, db *gorm.DB, postID uint, visitorID, country string) error {
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Post{}).
			Where("id = ?", postID).
			Update("view_count", gorm.Expr("view_count + 1"))
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrPostNotFound
		}

		view := PostView{PostID: postID, VisitorID: visitorID, Country: country}
		return tx.Create(&view).Error
	})
}

// ViewsByCountry aggregates recorded views per country inside the interval.
// Views without a resolved country are reported under the empty code.
func ViewsByCountry(db *gorm.DB, interval *timerange.Interval) (map[string]int64, error) {
	var rows []struct {
		Country string
		Count   int64
	}
	err := timerange.Scope(db.Model(&PostView{}), interval).
		Select("country, COUNT(*) AS count").
		Group("country").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error aggregating views by country: %w", err)
	}

	byCountry := make(map[string]int64, len(rows))
	for _, row := range rows {
		byCountry[row.Country] = row.Count
	}
	return byCountry, nil
}

// Create inserts a post. Publishing without a timestamp stamps it now.
func Create(logger *slog.Logger, db *gorm.DB, post *Post) error {
	if post.Published && post.PublishedAt == nil {
		now := time.Now().UTC()
		post.PublishedAt = &now
	}
	if post.Slug == "" {
		return errors.New("post slug cannot be empty")
	}
	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(post).Error
	})
}

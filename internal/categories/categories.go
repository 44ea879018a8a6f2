// Package categories owns the Category entity and the popular-categories
// aggregation.
package categories

import (
	"fmt"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gorm.io/gorm"

	"inkwell/internal/timerange"
)

// Category groups posts under a named topic.
type Category struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"uniqueIndex;not null" json:"name"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

var titleCaser = cases.Title(language.English)

// Summary is a category with its total post count.
type Summary struct {
	ID        uint   `json:"id"`
	Name      string `json:"name"`
	Slug      string `json:"slug"`
	PostCount int64  `json:"postCount"`
}

// ListWithCounts returns all categories with their total post counts.
func ListWithCounts(db *gorm.DB) ([]Summary, error) {
	var rows []Summary
	err := db.Model(&Category{}).
		Select(`categories.id, categories.name, categories.slug,
			(SELECT COUNT(*) FROM posts WHERE posts.category_id = categories.id) AS post_count`).
		Order("categories.name ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error listing categories: %w", err)
	}
	return rows, nil
}

// PopularCategory is one row of the popular-categories ranking.
type PopularCategory struct {
	Name            string  `json:"name"`
	PostCount       int64   `json:"postCount"`
	TotalViews      int64   `json:"totalViews"`
	ViewsPercentage float64 `json:"viewsPercentage"`
}

// Popular aggregates per-category post counts and view totals for posts
// created inside the interval, sorted by views descending. Percentages are
// computed against the grand total across all categories, so they sum to
// 100 whenever any views exist.
func Popular(db *gorm.DB, interval *timerange.Interval) ([]PopularCategory, error) {
	query := db.Model(&Category{}).
		Select(`categories.name,
			COUNT(posts.id) AS post_count,
			COALESCE(SUM(posts.view_count), 0) AS total_views`).
		Joins("LEFT JOIN posts ON posts.category_id = categories.id")
	if interval != nil {
		query = db.Model(&Category{}).
			Select(`categories.name,
				COUNT(posts.id) AS post_count,
				COALESCE(SUM(posts.view_count), 0) AS total_views`).
			Joins("LEFT JOIN posts ON posts.category_id = categories.id AND posts.created_at >= ? AND posts.created_at < ?",
				interval.From, interval.To)
	}

	var rows []PopularCategory
	err := query.
		Group("categories.id").
		Order("total_views DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("error aggregating popular categories: %w", err)
	}

	var grandTotal int64
	for _, row := range rows {
		grandTotal += row.TotalViews
	}

	for i := range rows {
		rows[i].Name = titleCaser.String(rows[i].Name)
		if grandTotal > 0 {
			rows[i].ViewsPercentage = float64(rows[i].TotalViews) / float64(grandTotal) * 100
		}
	}
	return rows, nil
}

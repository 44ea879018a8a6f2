package seeder

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"inkwell/internal/categories"
	"inkwell/internal/comments"
	"inkwell/internal/posts"
	"inkwell/internal/ratings"
	"inkwell/internal/users"
)

// Seeder fills a development database with an admin user, categories, and a
// spread of posts with views, comments, and ratings across the last year so
// every dashboard range has data on both sides of the comparison.
type Seeder struct {
	DBManager cartridge.DBManager
	Logger    *slog.Logger
	PostCount int
}

// NewSeeder creates a new seeder instance
func NewSeeder(dbManager cartridge.DBManager, logger *slog.Logger, postCount int) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	if postCount < 1 {
		postCount = 40
	}
	return &Seeder{
		DBManager: dbManager,
		Logger:    logger,
		PostCount: postCount,
	}
}

// Run executes the seeding process
func (s *Seeder) Run(ctx context.Context) error {
	start := time.Now()
	s.Logger.Info("Starting database seeding...", slog.Int("postCount", s.PostCount))

	admin, err := s.seedAdmin()
	if err != nil {
		return fmt.Errorf("failed to seed admin user: %w", err)
	}

	categoryList, err := s.seedCategories()
	if err != nil {
		return fmt.Errorf("failed to seed categories: %w", err)
	}

	if err := s.seedPosts(ctx, admin, categoryList); err != nil {
		return fmt.Errorf("failed to seed posts: %w", err)
	}

	s.Logger.Info("Seeding completed successfully", slog.Duration("elapsed", time.Since(start)))
	return nil
}

// seedAdmin ensures the default admin user exists
func (s *Seeder) seedAdmin() (*users.User, error) {
	db := s.DBManager.GetConnection()

	user, err := users.FindByClerkID(db, "seed_admin")
	if err == nil {
		s.Logger.Info("Admin user already exists", slog.String("email", user.Email))
		return user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check for existing user: %w", err)
	}

	s.Logger.Info("Creating admin user")
	user = &users.User{ClerkID: "seed_admin", Email: "admin@example.com", Role: users.RoleAdmin}
	if err := users.Create(s.Logger, db, user); err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	s.Logger.Info("Admin user created successfully", slog.Uint64("id", uint64(user.ID)))
	return user, nil
}

// seedCategories creates the default category set
func (s *Seeder) seedCategories() ([]categories.Category, error) {
	db := s.DBManager.GetConnection()

	names := []struct {
		name string
		slug string
	}{
		{"engineering", "engineering"},
		{"product", "product"},
		{"design", "design"},
		{"company news", "company-news"},
	}

	var list []categories.Category
	for _, n := range names {
		var category categories.Category
		if err := db.Where("slug = ?", n.slug).First(&category).Error; err == nil {
			list = append(list, category)
			continue
		}

		category = categories.Category{Name: n.name, Slug: n.slug}
		err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
			return tx.Create(&category).Error
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create category %s: %w", n.slug, err)
		}
		list = append(list, category)
	}

	s.Logger.Info("Categories seeded", slog.Int("count", len(list)))
	return list, nil
}

// seedPosts generates posts spread over the last 13 months so week, month,
// and year comparisons all have both a current and a previous population.
func (s *Seeder) seedPosts(ctx context.Context, author *users.User, categoryList []categories.Category) error {
	db := s.DBManager.GetConnection()
	now := time.Now().UTC()

	titles := []string{
		"Incident review", "Release notes", "Roadmap update", "Design deep dive",
		"Profiling story", "Migration postmortem", "Hiring update", "Architecture notes",
	}
	commentBodies := []string{
		"Great read, thanks for sharing.",
		"This matches what we saw in production.",
		"Could you expand on the failure mode?",
		"Bookmarked for the next on-call rotation.",
	}

	created := 0
	for i := 0; i < s.PostCount; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		// Spread creation over the last ~13 months, skewed toward recent.
		var ageDays int
		switch {
		case i%4 == 0:
			ageDays = rand.IntN(7)
		case i%4 == 1:
			ageDays = 7 + rand.IntN(24)
		case i%4 == 2:
			ageDays = 31 + rand.IntN(330)
		default:
			ageDays = 366 + rand.IntN(30)
		}
		createdAt := now.AddDate(0, 0, -ageDays)

		category := categoryList[rand.IntN(len(categoryList))]
		published := rand.Float64() < 0.7

		post := posts.Post{
			Title:      fmt.Sprintf("%s #%d", titles[rand.IntN(len(titles))], i+1),
			Slug:       fmt.Sprintf("seed-post-%d", i+1),
			Body:       "## Summary\n\nSeeded content for local development.",
			Published:  published,
			ViewCount:  int64(rand.IntN(500)),
			CategoryID: category.ID,
			AuthorID:   author.ID,
		}
		if published {
			publishedAt := createdAt.Add(time.Hour)
			post.PublishedAt = &publishedAt
		}

		err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
			if err := tx.Create(&post).Error; err != nil {
				return err
			}
			return tx.Model(&post).Update("created_at", createdAt).Error
		})
		if err != nil {
			return fmt.Errorf("failed to create post %s: %w", post.Slug, err)
		}
		created++

		for c := 0; c < rand.IntN(4); c++ {
			comment := comments.Comment{
				Content:  commentBodies[rand.IntN(len(commentBodies))],
				PostID:   post.ID,
				AuthorID: author.ID,
			}
			err := sqlite.PerformWrite(s.Logger, db, func(tx *gorm.DB) error {
				return tx.Create(&comment).Error
			})
			if err != nil {
				s.Logger.Error("Failed to seed comment", slog.Any("error", err))
			}
		}

		for r := 0; r < rand.IntN(5); r++ {
			rating := &ratings.Rating{Value: float64(rand.IntN(5) + 1), PostID: post.ID}
			if err := ratings.Create(s.Logger, db, rating); err != nil {
				s.Logger.Error("Failed to seed rating", slog.Any("error", err))
			}
		}
	}

	s.Logger.Info("Posts seeded", slog.Int("created", created))
	return nil
}

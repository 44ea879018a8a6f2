package testsupport

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	ctestsupport "github.com/karloscodes/cartridge/testsupport"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"inkwell/internal/categories"
	"inkwell/internal/comments"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/identity"
	inkhttp "inkwell/internal/http"
	"inkwell/internal/http/middleware"
	"inkwell/internal/posts"
	"inkwell/internal/ratings"
	"inkwell/internal/timerange"
	"inkwell/internal/users"
)

// testDBCache caches test databases by test name to allow multiple calls
// within the same test to share the same database
var testDBCache = make(map[string]*gorm.DB)
var testDBCacheMu sync.Mutex

// TestDBManager wraps cartridge's TestDBManager with inkwell's interface
type TestDBManager struct {
	*ctestsupport.TestDBManager
}

// NewTestDBManager creates a TestDBManager that implements cartridge.DBManager
func NewTestDBManager(db *gorm.DB) *TestDBManager {
	return &TestDBManager{
		TestDBManager: ctestsupport.NewTestDBManager(db),
	}
}

// Ensure TestDBManager implements cartridge.DBManager
var _ cartridge.DBManager = (*TestDBManager)(nil)

// SetupTestDB creates a test database with all inkwell models migrated.
// Uses a named in-memory database with cache=shared to allow multiple
// connections to share the same database within a test. Caches the database
// by test name so multiple calls within the same test return the same
// database.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	testName := t.Name()

	// Use root test name for caching to handle closure issues where
	// setup functions capture the outer t while t.Run has subtest t
	rootName := testName
	if idx := strings.Index(testName, "/"); idx > 0 {
		rootName = testName[:idx]
	}

	testDBCacheMu.Lock()
	if db, exists := testDBCache[rootName]; exists {
		testDBCacheMu.Unlock()
		return db
	}
	testDBCacheMu.Unlock()

	sanitizedName := strings.ReplaceAll(rootName, "/", "_")
	dsn := fmt.Sprintf("file:test_%s_%d?mode=memory&cache=shared", sanitizedName, time.Now().UnixNano())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("testsupport: failed to open test database: %v", err)
	}

	db.Exec("PRAGMA foreign_keys = ON")

	if err := db.AutoMigrate(database.Models()...); err != nil {
		t.Fatalf("testsupport: failed to migrate models: %v", err)
	}

	testDBCacheMu.Lock()
	testDBCache[rootName] = db
	testDBCacheMu.Unlock()

	t.Cleanup(func() {
		testDBCacheMu.Lock()
		delete(testDBCache, rootName)
		testDBCacheMu.Unlock()
		sqlDB, err := db.DB()
		if err == nil {
			sqlDB.Close()
		}
	})

	return db
}

// GetLogger returns a test logger
func GetLogger() *slog.Logger {
	handler := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError})
	return slog.New(handler)
}

// FixedTimeProvider pins "now" for deterministic interval tests.
type FixedTimeProvider struct {
	Time time.Time
}

// Now implements timerange.TimeProvider.
func (p *FixedTimeProvider) Now() time.Time {
	return p.Time
}

// FakeIdentityProvider is an in-memory identity.Provider for tests.
type FakeIdentityProvider struct {
	mu       sync.Mutex
	nextID   int
	Sessions map[string]*identity.Session
	Users    map[string]*identity.RemoteUser
	Roles    map[string]users.Role

	// FailCreate / FailDelete force the corresponding calls to error.
	FailCreate bool
	FailDelete bool

	DeleteCalls []string
}

// NewFakeIdentityProvider returns an empty fake provider.
func NewFakeIdentityProvider() *FakeIdentityProvider {
	return &FakeIdentityProvider{
		Sessions: make(map[string]*identity.Session),
		Users:    make(map[string]*identity.RemoteUser),
		Roles:    make(map[string]users.Role),
	}
}

// AddSession registers a session token.
func (p *FakeIdentityProvider) AddSession(token string, session *identity.Session) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Sessions[token] = session
}

// CurrentSession implements identity.Provider.
func (p *FakeIdentityProvider) CurrentSession(_ context.Context, token string) (*identity.Session, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	session, ok := p.Sessions[token]
	if !ok {
		return nil, identity.ErrNoSession
	}
	return session, nil
}

// CreateUser implements identity.Provider.
func (p *FakeIdentityProvider) CreateUser(_ context.Context, email string, role users.Role) (*identity.RemoteUser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailCreate {
		return nil, fmt.Errorf("identity: forced create failure")
	}
	p.nextID++
	remote := &identity.RemoteUser{
		ClerkID: fmt.Sprintf("clerk_%d", p.nextID),
		Email:   email,
		Role:    string(role),
	}
	p.Users[remote.ClerkID] = remote
	return remote, nil
}

// DeleteUser implements identity.Provider.
func (p *FakeIdentityProvider) DeleteUser(_ context.Context, clerkID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.DeleteCalls = append(p.DeleteCalls, clerkID)
	if p.FailDelete {
		return fmt.Errorf("identity: forced delete failure")
	}
	if _, ok := p.Users[clerkID]; !ok {
		return identity.ErrUserNotFound
	}
	delete(p.Users, clerkID)
	return nil
}

// UpdateRole implements identity.Provider.
func (p *FakeIdentityProvider) UpdateRole(_ context.Context, clerkID string, role users.Role) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Roles[clerkID] = role
	return nil
}

// CreateTestApp builds a fiber app with all routes mounted against the test
// database and fake identity provider. A nil resolver uses the system
// clock.
func CreateTestApp(t *testing.T, db *gorm.DB, provider identity.Provider, resolver *timerange.Resolver) *fiber.App {
	t.Helper()

	cfg := config.GetConfig()
	dbManager := NewTestDBManager(db)
	handlers := inkhttp.NewHandlers(dbManager, provider, GetLogger(), cfg, resolver)

	app := fiber.New()
	mountTestRoutes(app, handlers, provider)
	return app
}

// mountTestRoutes mirrors internal.MountAppRoutes without importing the
// internal root package (which would create an import cycle through
// testsupport).
func mountTestRoutes(app *fiber.App, h *inkhttp.Handlers, provider identity.Provider) {
	adminOnly := middleware.RequireRole(provider, GetLogger(), users.RoleAdmin)

	app.Get("/_health", h.HealthIndexAction)

	app.Get("/api/posts", h.PostsIndexAction)
	app.Get("/api/posts/:slug", h.PostShowAction)
	app.Post("/api/posts/:slug/view", h.PostViewAction)
	app.Get("/api/categories", h.CategoriesIndexAction)
	app.Post("/api/webhooks/identity", h.IdentityWebhookAction)

	dashboard := app.Group("/api/dashboard", adminOnly)
	dashboard.Get("/posts", h.DashboardPostsAction)
	dashboard.Get("/total-views", h.DashboardTotalViewsAction)
	dashboard.Get("/ratings", h.DashboardRatingsAction)
	dashboard.Get("/comments", h.DashboardCommentsAction)
	dashboard.Get("/users", h.DashboardUsersAction)
	dashboard.Get("/efficiency", h.DashboardEfficiencyAction)
	dashboard.Get("/popular-categories", h.DashboardPopularCategoriesAction)
	dashboard.Get("/popular-posts", h.DashboardPopularPostsAction)
	dashboard.Get("/views-by-country", h.DashboardViewsByCountryAction)

	admin := app.Group("/api/admin", adminOnly)
	admin.Get("/users", h.UsersIndexAction)
	admin.Post("/users", h.UserCreateAction)
	admin.Patch("/users/:id/role", h.UserRoleUpdateAction)
	admin.Delete("/users/:id", h.UserDeleteAction)
}

// CreateTestCategory inserts a category.
func CreateTestCategory(t *testing.T, db *gorm.DB, name, slug string) categories.Category {
	t.Helper()
	category := categories.Category{Name: name, Slug: slug}
	if err := db.Create(&category).Error; err != nil {
		t.Fatalf("testsupport: failed to create category: %v", err)
	}
	return category
}

// CreateTestPost inserts a post with an explicit creation time.
func CreateTestPost(t *testing.T, db *gorm.DB, title, slug string, published bool, viewCount int64, categoryID uint, createdAt time.Time) posts.Post {
	t.Helper()
	post := posts.Post{
		Title:      title,
		Slug:       slug,
		Body:       "# " + title,
		Published:  published,
		ViewCount:  viewCount,
		CategoryID: categoryID,
	}
	if published {
		publishedAt := createdAt
		post.PublishedAt = &publishedAt
	}
	if err := db.Create(&post).Error; err != nil {
		t.Fatalf("testsupport: failed to create post: %v", err)
	}
	// gorm stamps CreatedAt on insert; pin it explicitly for interval tests
	if err := db.Model(&post).Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("testsupport: failed to pin post created_at: %v", err)
	}
	post.CreatedAt = createdAt
	return post
}

// CreateTestComment inserts a comment on a post.
func CreateTestComment(t *testing.T, db *gorm.DB, postID uint, content string) comments.Comment {
	t.Helper()
	comment := comments.Comment{Content: content, PostID: postID, AuthorID: 1}
	if err := db.Create(&comment).Error; err != nil {
		t.Fatalf("testsupport: failed to create comment: %v", err)
	}
	return comment
}

// CreateTestRating inserts a rating on a post.
func CreateTestRating(t *testing.T, db *gorm.DB, postID uint, value float64) ratings.Rating {
	t.Helper()
	rating := ratings.Rating{Value: value, PostID: postID}
	if err := db.Create(&rating).Error; err != nil {
		t.Fatalf("testsupport: failed to create rating: %v", err)
	}
	return rating
}

// CreateTestUser inserts a local user record with an explicit creation time.
func CreateTestUser(t *testing.T, db *gorm.DB, clerkID string, role users.Role, createdAt time.Time) users.User {
	t.Helper()
	user := users.User{ClerkID: clerkID, Email: clerkID + "@example.com", Role: role}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("testsupport: failed to create user: %v", err)
	}
	if err := db.Model(&user).Update("created_at", createdAt).Error; err != nil {
		t.Fatalf("testsupport: failed to pin user created_at: %v", err)
	}
	user.CreatedAt = createdAt
	return user
}

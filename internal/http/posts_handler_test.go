package http_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/posts"
	"inkwell/internal/testsupport"
)

func TestPostsIndexListsOnlyPublished(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")

	testsupport.CreateTestPost(t, db, "Published", "published", true, 0, category.ID, fixedNow.AddDate(0, 0, -1))
	testsupport.CreateTestPost(t, db, "Draft", "draft", false, 0, category.ID, fixedNow.AddDate(0, 0, -1))

	resp := dashboardGet(t, app, "/api/posts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Posts []struct {
			Slug string `json:"slug"`
		} `json:"posts"`
		Total int64 `json:"total"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, int64(1), body.Total)
	require.Len(t, body.Posts, 1)
	assert.Equal(t, "published", body.Posts[0].Slug)
}

func TestPostShowRendersMarkdown(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")

	post := testsupport.CreateTestPost(t, db, "Shown", "shown", true, 0, category.ID, fixedNow.AddDate(0, 0, -1))
	require.NoError(t, db.Model(&posts.Post{}).Where("id = ?", post.ID).
		Update("body", "# Heading\n\n<script>alert(1)</script>Some *emphasis*.").Error)

	resp := dashboardGet(t, app, "/api/posts/shown", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Title string `json:"title"`
		HTML  string `json:"html"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "Shown", body.Title)
	assert.Contains(t, body.HTML, "<h1")
	assert.Contains(t, body.HTML, "<em>emphasis</em>")
	// Sanitizer strips script tags.
	assert.NotContains(t, body.HTML, "<script>")
}

func TestPostShowUnknownSlug(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	resp := dashboardGet(t, app, "/api/posts/missing", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPostViewIncrementsAndSetsVisitorCookie(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")

	post := testsupport.CreateTestPost(t, db, "Viewed", "viewed", true, 10, category.ID, fixedNow.AddDate(0, 0, -1))

	req := httptest.NewRequest(http.MethodPost, "/api/posts/viewed/view", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// A first-time visitor gets an id cookie.
	var visitorCookie string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "iw_visitor_id" {
			visitorCookie = cookie.Value
		}
	}
	assert.NotEmpty(t, visitorCookie)

	reloaded, err := posts.FindBySlug(db, "viewed")
	require.NoError(t, err)
	assert.Equal(t, int64(11), reloaded.ViewCount)

	var views int64
	require.NoError(t, db.Model(&posts.PostView{}).Where("post_id = ?", post.ID).Count(&views).Error)
	assert.Equal(t, int64(1), views)
}

func TestPostViewUnknownSlug(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	req := httptest.NewRequest(http.MethodPost, "/api/posts/missing/view", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCategoriesIndex(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	app, _ := setupDashboard(t, db)

	engineering := testsupport.CreateTestCategory(t, db, "engineering", "engineering")
	testsupport.CreateTestCategory(t, db, "design", "design")
	testsupport.CreateTestPost(t, db, "A", "a", true, 0, engineering.ID, fixedNow.AddDate(0, 0, -1))

	resp := dashboardGet(t, app, "/api/categories", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []struct {
		Name      string `json:"name"`
		PostCount int64  `json:"postCount"`
	}
	decodeBody(t, resp, &rows)
	require.Len(t, rows, 2)
	assert.Equal(t, "design", rows[0].Name)
	assert.Equal(t, int64(0), rows[0].PostCount)
	assert.Equal(t, int64(1), rows[1].PostCount)
}

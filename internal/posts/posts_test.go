package posts_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/posts"
	"inkwell/internal/testsupport"
	"inkwell/internal/timerange"
)

func marchInterval() *timerange.Interval {
	return &timerange.Interval{
		From: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCountInInterval(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")

	inMarch := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	inFebruary := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

	testsupport.CreateTestPost(t, db, "Post A", "post-a", true, 0, category.ID, inMarch)
	testsupport.CreateTestPost(t, db, "Post B", "post-b", false, 0, category.ID, inMarch)
	testsupport.CreateTestPost(t, db, "Post C", "post-c", true, 0, category.ID, inFebruary)

	count, err := posts.CountInInterval(db, marchInterval())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	published, err := posts.CountPublishedInInterval(db, marchInterval())
	require.NoError(t, err)
	assert.Equal(t, int64(1), published)

	// Nil interval counts everything.
	all, err := posts.CountInInterval(db, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), all)
}

func TestCountInIntervalBoundariesAreHalfOpen(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	category := testsupport.CreateTestCategory(t, db, "product", "product")
	interval := marchInterval()

	testsupport.CreateTestPost(t, db, "At start", "at-start", true, 0, category.ID, interval.From)
	testsupport.CreateTestPost(t, db, "At end", "at-end", true, 0, category.ID, interval.To)

	count, err := posts.CountInInterval(db, interval)
	require.NoError(t, err)
	// From is inclusive, To is exclusive.
	assert.Equal(t, int64(1), count)
}

func TestSumViewsInInterval(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	category := testsupport.CreateTestCategory(t, db, "design", "design")

	inMarch := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	inFebruary := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)

	testsupport.CreateTestPost(t, db, "Post A", "post-a", true, 120, category.ID, inMarch)
	testsupport.CreateTestPost(t, db, "Post B", "post-b", false, 30, category.ID, inMarch)
	testsupport.CreateTestPost(t, db, "Post C", "post-c", true, 999, category.ID, inFebruary)

	total, err := posts.SumViewsInInterval(db, marchInterval())
	require.NoError(t, err)
	assert.Equal(t, int64(150), total)

	empty, err := posts.SumViewsInInterval(db, &timerange.Interval{
		From: time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		To:   time.Date(2020, 2, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(0), empty)
}

func TestPopularOrdersByViewsWithCommentCounts(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")
	inMarch := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)

	first := testsupport.CreateTestPost(t, db, "Most viewed", "most-viewed", true, 500, category.ID, inMarch)
	second := testsupport.CreateTestPost(t, db, "Second", "second", true, 300, category.ID, inMarch)
	testsupport.CreateTestPost(t, db, "Third", "third", false, 100, category.ID, inMarch)
	testsupport.CreateTestPost(t, db, "Fourth", "fourth", true, 10, category.ID, inMarch)

	testsupport.CreateTestComment(t, db, first.ID, "nice")
	testsupport.CreateTestComment(t, db, first.ID, "agreed")
	testsupport.CreateTestComment(t, db, second.ID, "hm")

	top, err := posts.Popular(db, marchInterval(), 3)
	require.NoError(t, err)
	require.Len(t, top, 3)

	assert.Equal(t, "Most viewed", top[0].Title)
	assert.Equal(t, int64(500), top[0].Views)
	assert.Equal(t, int64(2), top[0].CommentCount)

	assert.Equal(t, "Second", top[1].Title)
	assert.Equal(t, int64(1), top[1].CommentCount)

	// Unpublished posts still rank; the dashboard shows drafts too.
	assert.Equal(t, "Third", top[2].Title)
	assert.Equal(t, int64(0), top[2].CommentCount)
	assert.False(t, top[2].Published)
}

func TestIncrementViews(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")
	logger := testsupport.GetLogger()

	post := testsupport.CreateTestPost(t, db, "Tracked", "tracked", true, 5, category.ID,
		time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	require.NoError(t, posts.IncrementViews(logger, db, post.ID, "visitor-1", "ES"))
	require.NoError(t, posts.IncrementViews(logger, db, post.ID, "visitor-1", "ES"))
	require.NoError(t, posts.IncrementViews(logger, db, post.ID, "visitor-2", ""))

	reloaded, err := posts.FindBySlug(db, "tracked")
	require.NoError(t, err)
	// Every view counts, repeat visitors included.
	assert.Equal(t, int64(8), reloaded.ViewCount)

	var viewCount int64
	require.NoError(t, db.Model(&posts.PostView{}).Where("post_id = ?", post.ID).Count(&viewCount).Error)
	assert.Equal(t, int64(3), viewCount)
}

func TestIncrementViewsUnknownPost(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	err := posts.IncrementViews(logger, db, 9999, "visitor-1", "")
	assert.ErrorIs(t, err, posts.ErrPostNotFound)

	var viewCount int64
	require.NoError(t, db.Model(&posts.PostView{}).Count(&viewCount).Error)
	assert.Equal(t, int64(0), viewCount)
}

func TestViewsByCountry(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")
	logger := testsupport.GetLogger()

	post := testsupport.CreateTestPost(t, db, "Geo", "geo", true, 0, category.ID,
		time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC))

	require.NoError(t, posts.IncrementViews(logger, db, post.ID, "v1", "ES"))
	require.NoError(t, posts.IncrementViews(logger, db, post.ID, "v2", "ES"))
	require.NoError(t, posts.IncrementViews(logger, db, post.ID, "v3", "DE"))
	require.NoError(t, posts.IncrementViews(logger, db, post.ID, "v4", ""))

	byCountry, err := posts.ViewsByCountry(db, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(2), byCountry["ES"])
	assert.Equal(t, int64(1), byCountry["DE"])
	assert.Equal(t, int64(1), byCountry[""])
}

func TestListPublished(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	category := testsupport.CreateTestCategory(t, db, "engineering", "engineering")

	for i, ts := range []time.Time{
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC),
	} {
		slug := []string{"oldest", "middle", "newest"}[i]
		testsupport.CreateTestPost(t, db, slug, slug, true, 0, category.ID, ts)
	}
	testsupport.CreateTestPost(t, db, "draft", "draft", false, 0, category.ID,
		time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))

	page, total, err := posts.ListPublished(db, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, page, 2)
	assert.Equal(t, "newest", page[0].Slug)
	assert.Equal(t, "middle", page[1].Slug)

	rest, _, err := posts.ListPublished(db, 2, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "oldest", rest[0].Slug)
}

func TestCreateRequiresSlug(t *testing.T) {
	db := testsupport.SetupTestDB(t)
	logger := testsupport.GetLogger()

	err := posts.Create(logger, db, &posts.Post{Title: "No slug"})
	require.Error(t, err)

	post := &posts.Post{Title: "Published", Slug: "published", Published: true}
	require.NoError(t, posts.Create(logger, db, post))
	require.NotNil(t, post.PublishedAt)
}

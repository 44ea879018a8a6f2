package http

import (
	"errors"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"inkwell/internal/categories"
	"inkwell/internal/pkg/geoip"
	"inkwell/internal/posts"
)

const (
	visitorCookieName   = "iw_visitor_id"
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

// PostsIndexAction lists published posts, newest first.
func (h *Handlers) PostsIndexAction(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	perPage := c.QueryInt("perPage", 10)

	result, total, err := posts.ListPublished(h.db(), page, perPage)
	if err != nil {
		return h.internalError(c, err, "Error listing posts")
	}
	return c.JSON(fiber.Map{
		"posts":   result,
		"total":   total,
		"page":    page,
		"perPage": perPage,
	})
}

// PostShowAction returns a post by slug with its body rendered to
// sanitized HTML.
func (h *Handlers) PostShowAction(c *fiber.Ctx) error {
	post, err := posts.FindBySlug(h.db(), c.Params("slug"))
	if errors.Is(err, posts.ErrPostNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not found",
			"message": "No post with that slug",
		})
	}
	if err != nil {
		return h.internalError(c, err, "Error loading post")
	}

	rendered, err := posts.RenderBody(post.Body)
	if err != nil {
		return h.internalError(c, err, "Error rendering post body")
	}

	return c.JSON(fiber.Map{
		"id":            post.ID,
		"title":         post.Title,
		"slug":          post.Slug,
		"html":          rendered,
		"published":     post.Published,
		"publishedAt":   post.PublishedAt,
		"viewCount":     post.ViewCount,
		"averageRating": post.AverageRating,
		"ratingCount":   post.RatingCount,
		"categoryId":    post.CategoryID,
		"createdAt":     post.CreatedAt,
	})
}

// PostViewAction records one view: a single-row atomic increment plus a
// view row annotated with the visitor's country when GeoIP is available.
// Deduplication within a reading session is the client's job; every call
// that reaches here counts.
func (h *Handlers) PostViewAction(c *fiber.Ctx) error {
	post, err := posts.FindBySlug(h.db(), c.Params("slug"))
	if errors.Is(err, posts.ErrPostNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not found",
			"message": "No post with that slug",
		})
	}
	if err != nil {
		return h.internalError(c, err, "Error loading post")
	}

	visitorID := c.Cookies(visitorCookieName)
	if visitorID == "" {
		visitorID = uuid.NewString()
		c.Cookie(&fiber.Cookie{
			Name:     visitorCookieName,
			Value:    visitorID,
			MaxAge:   visitorCookieMaxAge,
			Path:     "/",
			HTTPOnly: true,
			SameSite: fiber.CookieSameSiteLaxMode,
		})
	}

	country := geoip.CountryCode(c.IP())

	if err := posts.IncrementViews(h.logger, h.db(), post.ID, visitorID, country); err != nil {
		return h.internalError(c, err, "Error incrementing view count")
	}

	h.logger.Debug("Recorded post view",
		slog.Uint64("postId", uint64(post.ID)),
		slog.String("country", country))

	return c.JSON(fiber.Map{"status": "ok"})
}

// CategoriesIndexAction lists all categories with post counts.
func (h *Handlers) CategoriesIndexAction(c *fiber.Ctx) error {
	rows, err := categories.ListWithCounts(h.db())
	if err != nil {
		return h.internalError(c, err, "Error listing categories")
	}
	return c.JSON(rows)
}

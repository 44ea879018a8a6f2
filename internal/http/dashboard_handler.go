package http

import (
	"context"
	"sort"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"inkwell/internal/categories"
	"inkwell/internal/comments"
	"inkwell/internal/pkg/geoip"
	"inkwell/internal/posts"
	"inkwell/internal/ratings"
	"inkwell/internal/stats"
	"inkwell/internal/timerange"
	"inkwell/internal/users"
)

// DashboardPostsAction reports post creation totals period over period.
func (h *Handlers) DashboardPostsAction(c *fiber.Ctx) error {
	ctx, cancel := h.statsContext()
	defer cancel()

	db := h.db()
	envelopes, err := h.comparator.CompareAll(ctx, rangeLabel(c), map[string]stats.Metric{
		"totalPosts": {
			Fetch: func(ctx context.Context, interval *timerange.Interval) (float64, error) {
				count, err := posts.CountInInterval(db.WithContext(ctx), interval)
				return float64(count), err
			},
		},
		"publishedPosts": {
			Fetch: func(ctx context.Context, interval *timerange.Interval) (float64, error) {
				count, err := posts.CountPublishedInInterval(db.WithContext(ctx), interval)
				return float64(count), err
			},
		},
	})
	if err != nil {
		return h.internalError(c, err, "Error fetching post stats")
	}

	return c.JSON(fiber.Map{
		"totalPosts":     envelopes["totalPosts"],
		"publishedPosts": envelopes["publishedPosts"],
	})
}

// DashboardTotalViewsAction reports view counter totals period over period.
func (h *Handlers) DashboardTotalViewsAction(c *fiber.Ctx) error {
	ctx, cancel := h.statsContext()
	defer cancel()

	db := h.db()
	envelope, err := h.comparator.Compare(ctx, rangeLabel(c),
		func(ctx context.Context, interval *timerange.Interval) (float64, error) {
			total, err := posts.SumViewsInInterval(db.WithContext(ctx), interval)
			return float64(total), err
		}, stats.RoundNone)
	if err != nil {
		return h.internalError(c, err, "Error fetching view stats")
	}

	return c.JSON(fiber.Map{"totalViews": envelope})
}

// DashboardRatingsAction reports the average rating (one decimal) and the
// rating count period over period.
func (h *Handlers) DashboardRatingsAction(c *fiber.Ctx) error {
	ctx, cancel := h.statsContext()
	defer cancel()

	db := h.db()
	envelopes, err := h.comparator.CompareAll(ctx, rangeLabel(c), map[string]stats.Metric{
		"averageRating": {
			Rounding: stats.RoundTenth,
			Fetch: func(ctx context.Context, interval *timerange.Interval) (float64, error) {
				return ratings.AverageForPostsCreatedIn(db.WithContext(ctx), interval)
			},
		},
		"totalRatings": {
			Fetch: func(ctx context.Context, interval *timerange.Interval) (float64, error) {
				count, err := ratings.CountForPostsCreatedIn(db.WithContext(ctx), interval)
				return float64(count), err
			},
		},
	})
	if err != nil {
		return h.internalError(c, err, "Error fetching rating stats")
	}

	return c.JSON(fiber.Map{
		"averageRating": envelopes["averageRating"],
		"totalRatings":  envelopes["totalRatings"],
	})
}

// DashboardCommentsAction reports comment totals period over period, or a
// paginated comment list when the page parameter is present.
func (h *Handlers) DashboardCommentsAction(c *fiber.Ctx) error {
	db := h.db()

	if pageParam := c.Query("page"); pageParam != "" {
		page, err := strconv.Atoi(pageParam)
		if err != nil || page < 1 {
			return validationError(c, "page must be a positive integer")
		}
		perPage := c.QueryInt("perPage", 20)

		entries, total, err := comments.List(db, page, perPage)
		if err != nil {
			return h.internalError(c, err, "Error listing comments")
		}
		return c.JSON(fiber.Map{
			"comments": entries,
			"total":    total,
			"page":     page,
			"perPage":  perPage,
		})
	}

	ctx, cancel := h.statsContext()
	defer cancel()

	envelope, err := h.comparator.Compare(ctx, rangeLabel(c),
		func(ctx context.Context, interval *timerange.Interval) (float64, error) {
			count, err := comments.CountForPostsCreatedIn(db.WithContext(ctx), interval)
			return float64(count), err
		}, stats.RoundNone)
	if err != nil {
		return h.internalError(c, err, "Error fetching comment stats")
	}

	return c.JSON(fiber.Map{"totalComments": envelope})
}

// DashboardUsersAction reports user signup totals period over period.
func (h *Handlers) DashboardUsersAction(c *fiber.Ctx) error {
	ctx, cancel := h.statsContext()
	defer cancel()

	db := h.db()
	envelope, err := h.comparator.Compare(ctx, rangeLabel(c),
		func(ctx context.Context, interval *timerange.Interval) (float64, error) {
			count, err := users.CountInInterval(db.WithContext(ctx), interval)
			return float64(count), err
		}, stats.RoundNone)
	if err != nil {
		return h.internalError(c, err, "Error fetching user stats")
	}

	return c.JSON(fiber.Map{"totalUsers": envelope})
}

// DashboardEfficiencyAction reports the share of created posts that got
// published, as a whole percent, period over period.
func (h *Handlers) DashboardEfficiencyAction(c *fiber.Ctx) error {
	ctx, cancel := h.statsContext()
	defer cancel()

	db := h.db()
	envelopes, err := h.comparator.CompareAll(ctx, rangeLabel(c), map[string]stats.Metric{
		"totalPosts": {
			Fetch: func(ctx context.Context, interval *timerange.Interval) (float64, error) {
				count, err := posts.CountInInterval(db.WithContext(ctx), interval)
				return float64(count), err
			},
		},
		"publishedPosts": {
			Fetch: func(ctx context.Context, interval *timerange.Interval) (float64, error) {
				count, err := posts.CountPublishedInInterval(db.WithContext(ctx), interval)
				return float64(count), err
			},
		},
	})
	if err != nil {
		return h.internalError(c, err, "Error fetching efficiency stats")
	}

	total := envelopes["totalPosts"]
	published := envelopes["publishedPosts"]

	ratio := func(published, total float64) float64 {
		if total == 0 {
			return 0
		}
		return published / total * 100
	}
	currentEff := ratio(published.Current, total.Current)
	previousEff := ratio(published.Previous, total.Previous)

	return c.JSON(fiber.Map{
		"efficiency": stats.NewEnvelope(currentEff, previousEff, stats.RoundInt),
		"publishedRatio": fiber.Map{
			"current":  currentEff,
			"previous": previousEff,
		},
		"totalPosts":     total.Current,
		"publishedPosts": published.Current,
	})
}

// DashboardPopularCategoriesAction ranks categories by views inside the
// current period. Percentages are shares of the grand total, so they sum to
// 100 whenever any views exist.
func (h *Handlers) DashboardPopularCategoriesAction(c *fiber.Ctx) error {
	interval := h.resolver.Resolve(rangeLabel(c), false)

	rows, err := categories.Popular(h.db(), interval)
	if err != nil {
		return h.internalError(c, err, "Error fetching popular categories")
	}
	return c.JSON(rows)
}

// DashboardPopularPostsAction returns the top three posts by view count in
// the current period, annotated with live comment counts.
func (h *Handlers) DashboardPopularPostsAction(c *fiber.Ctx) error {
	interval := h.resolver.Resolve(rangeLabel(c), false)

	rows, err := posts.Popular(h.db(), interval, 3)
	if err != nil {
		return h.internalError(c, err, "Error fetching popular posts")
	}
	return c.JSON(rows)
}

// CountryViews is one row of the views-by-country breakdown.
type CountryViews struct {
	Country string `json:"country"`
	Name    string `json:"name"`
	Views   int64  `json:"views"`
}

// DashboardViewsByCountryAction ranks recorded post views by visitor
// country in the current period, most-viewed first. Views without a
// resolved country are reported under "Unknown".
func (h *Handlers) DashboardViewsByCountryAction(c *fiber.Ctx) error {
	interval := h.resolver.Resolve(rangeLabel(c), false)

	byCountry, err := posts.ViewsByCountry(h.db(), interval)
	if err != nil {
		return h.internalError(c, err, "Error fetching views by country")
	}

	rows := make([]CountryViews, 0, len(byCountry))
	for code, count := range byCountry {
		name := geoip.CountryName(code)
		if name == "" {
			name = "Unknown"
		}
		rows = append(rows, CountryViews{Country: code, Name: name, Views: count})
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Views != rows[j].Views {
			return rows[i].Views > rows[j].Views
		}
		return rows[i].Country < rows[j].Country
	})
	return c.JSON(rows)
}

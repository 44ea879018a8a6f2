// Package timerange resolves the dashboard's symbolic time ranges into
// concrete timestamp intervals for period-over-period queries.
package timerange

import (
	"time"

	"gorm.io/gorm"
)

// RangeLabel represents the available time range options
type RangeLabel string

const (
	RangeLabelWeek  RangeLabel = "week"
	RangeLabelMonth RangeLabel = "month"
	RangeLabelYear  RangeLabel = "year"
)

// TimeProvider abstracts the clock so tests can pin "now".
type TimeProvider interface {
	Now() time.Time
}

// DefaultTimeProvider is the default implementation that uses the system clock
type DefaultTimeProvider struct{}

// Now returns the current UTC time
func (p *DefaultTimeProvider) Now() time.Time {
	return time.Now().UTC()
}

// Interval is a half-open timestamp interval [From, To).
type Interval struct {
	From time.Time
	To   time.Time
}

// Duration returns the interval length.
func (i Interval) Duration() time.Duration {
	return i.To.Sub(i.From)
}

// Contains reports whether t falls inside the interval.
func (i Interval) Contains(t time.Time) bool {
	return !t.Before(i.From) && t.Before(i.To)
}

// Scope applies the interval as a created_at filter on a gorm query.
// A nil interval leaves the query unscoped (all time).
func Scope(db *gorm.DB, interval *Interval) *gorm.DB {
	if interval == nil {
		return db
	}
	return db.Where("created_at >= ? AND created_at < ?", interval.From, interval.To)
}

// Resolver turns range labels into intervals relative to its clock.
type Resolver struct {
	timeProvider TimeProvider
}

// NewResolver creates a Resolver. Passing no provider uses the system clock.
func NewResolver(timeProvider ...TimeProvider) *Resolver {
	var provider TimeProvider = &DefaultTimeProvider{}
	if len(timeProvider) > 0 && timeProvider[0] != nil {
		provider = timeProvider[0]
	}
	return &Resolver{timeProvider: provider}
}

// Resolve maps a range label to an interval. With previous=false the
// interval covers the period ending now; with previous=true it covers the
// immediately preceding period of equal length, so the two are contiguous
// and non-overlapping.
//
// An empty or unrecognized label resolves to nil (no filter). Callers pass
// query-string values through unchecked and rely on that fallback.
func (r *Resolver) Resolve(label RangeLabel, previous bool) *Interval {
	now := r.timeProvider.Now()

	var start func(t time.Time) time.Time
	switch label {
	case RangeLabelWeek:
		start = func(t time.Time) time.Time { return t.AddDate(0, 0, -7) }
	case RangeLabelMonth:
		start = func(t time.Time) time.Time { return t.AddDate(0, -1, 0) }
	case RangeLabelYear:
		start = func(t time.Time) time.Time { return t.AddDate(-1, 0, 0) }
	default:
		return nil
	}

	to := now
	if previous {
		to = start(now)
	}
	return &Interval{From: start(to), To: to}
}

// ResolvePair returns the current and previous intervals for a label in one
// call. Both are nil for an unrecognized label.
func (r *Resolver) ResolvePair(label RangeLabel) (current, prev *Interval) {
	return r.Resolve(label, false), r.Resolve(label, true)
}

package stats

import (
	"context"

	"inkwell/internal/pkg/async"
	"inkwell/internal/timerange"
)

// FetchFunc produces a metric value for an interval. A nil interval means
// all time.
type FetchFunc func(ctx context.Context, interval *timerange.Interval) (float64, error)

// Comparator runs metric fetches for a current and previous period
// concurrently and folds them into envelopes.
type Comparator struct {
	resolver *timerange.Resolver
}

// NewComparator creates a Comparator using the given range resolver.
func NewComparator(resolver *timerange.Resolver) *Comparator {
	return &Comparator{resolver: resolver}
}

// Compare fetches one metric for the current and previous period of the
// label and returns the envelope. The two fetches run concurrently; the
// first error fails the comparison.
func (c *Comparator) Compare(ctx context.Context, label timerange.RangeLabel, fetch FetchFunc, mode Rounding) (Envelope, error) {
	envelopes, err := c.CompareAll(ctx, label, map[string]Metric{
		"value": {Fetch: fetch, Rounding: mode},
	})
	if err != nil {
		return Envelope{}, err
	}
	return envelopes["value"], nil
}

// Metric pairs a fetch function with its rounding convention.
type Metric struct {
	Fetch    FetchFunc
	Rounding Rounding
}

// CompareAll fetches several metrics for both periods in one concurrent
// fan-out and returns an envelope per metric name. All fetches for all
// metrics run in parallel; any failure fails the whole call, matching the
// dashboard's all-or-nothing response contract.
func (c *Comparator) CompareAll(ctx context.Context, label timerange.RangeLabel, metrics map[string]Metric) (map[string]Envelope, error) {
	current, previous := c.resolver.ResolvePair(label)

	tasks := make([]async.Task, 0, len(metrics)*2)
	for name, metric := range metrics {
		fetch := metric.Fetch
		tasks = append(tasks,
			async.Task{
				Name: name + ".current",
				Execute: func() (interface{}, error) {
					return fetch(ctx, current)
				},
			},
			async.Task{
				Name: name + ".previous",
				Execute: func() (interface{}, error) {
					return fetch(ctx, previous)
				},
			},
		)
	}

	pool := async.NewPool(len(tasks))
	results := pool.Execute(ctx, tasks)
	if err := async.FirstError(ctx, results, tasks); err != nil {
		return nil, err
	}

	envelopes := make(map[string]Envelope, len(metrics))
	for name, metric := range metrics {
		cur := results[name+".current"].Data.(float64)
		prev := results[name+".previous"].Data.(float64)
		envelopes[name] = NewEnvelope(cur, prev, metric.Rounding)
	}
	return envelopes, nil
}

package async_test

import (
	"context"
	"errors"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inkwell/internal/pkg/async"
)

func TestExecuteCollectsAllResults(t *testing.T) {
	tasks := []async.Task{
		{Name: "first", Execute: func() (interface{}, error) { return 1, nil }},
		{Name: "second", Execute: func() (interface{}, error) { return 2, nil }},
		{Name: "third", Execute: func() (interface{}, error) { return 3, nil }},
	}

	ctx := context.Background()
	results := async.NewPool(2).Execute(ctx, tasks)

	require.Len(t, results, 3)
	assert.Equal(t, 1, results["first"].Data)
	assert.Equal(t, 2, results["second"].Data)
	assert.Equal(t, 3, results["third"].Data)
	assert.NoError(t, async.FirstError(ctx, results, tasks))
}

func TestFirstErrorReportsTaskFailure(t *testing.T) {
	taskErr := errors.New("query failed")
	tasks := []async.Task{
		{Name: "ok", Execute: func() (interface{}, error) { return 1, nil }},
		{Name: "broken", Execute: func() (interface{}, error) { return nil, taskErr }},
	}

	ctx := context.Background()
	results := async.NewPool(2).Execute(ctx, tasks)

	require.Len(t, results, 2)
	assert.ErrorIs(t, async.FirstError(ctx, results, tasks), taskErr)
}

func TestExecuteExpiredContextReleasesWorkers(t *testing.T) {
	before := runtime.NumGoroutine()

	release := make(chan struct{})
	var finished atomic.Int32
	slow := func() (interface{}, error) {
		<-release
		finished.Add(1)
		return nil, nil
	}

	tasks := []async.Task{
		{Name: "first", Execute: slow},
		{Name: "second", Execute: slow},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	results := async.NewPool(2).Execute(ctx, tasks)

	assert.Empty(t, results)
	assert.ErrorIs(t, async.FirstError(ctx, results, tasks), context.DeadlineExceeded)

	// Unblock the in-flight tasks; both workers must finish their sends
	// and exit even though nobody drains results anymore.
	close(release)

	require.Eventually(t, func() bool {
		return finished.Load() == 2 && runtime.NumGoroutine() <= before
	}, 2*time.Second, 10*time.Millisecond, "workers still running after context expiry")
}

func TestExecutePartialResultsOnExpiry(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	tasks := []async.Task{
		{Name: "fast", Execute: func() (interface{}, error) { return 42, nil }},
		{Name: "stuck", Execute: func() (interface{}, error) {
			<-release
			return nil, nil
		}},
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	results := async.NewPool(2).Execute(ctx, tasks)

	if fast, ok := results["fast"]; ok {
		assert.Equal(t, 42, fast.Data)
	}
	assert.NotContains(t, results, "stuck")
	assert.ErrorIs(t, async.FirstError(ctx, results, tasks), context.DeadlineExceeded)
}

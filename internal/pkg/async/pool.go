// Package async runs independent tasks through a fixed-size worker pool
// and joins their results by name.
package async

import (
	"context"
	"sync"
)

// Task is a named unit of work.
type Task struct {
	Name    string
	Execute func() (interface{}, error)
}

// Result carries a task's outcome, keyed by its task name.
type Result struct {
	Name string
	Data interface{}
	Err  error
}

// Pool fans tasks out across a fixed number of workers.
type Pool struct {
	workerCount int
}

// NewPool creates a pool running at most workerCount tasks concurrently.
func NewPool(workerCount int) *Pool {
	return &Pool{workerCount: workerCount}
}

func (p *Pool) worker(ctx context.Context, wg *sync.WaitGroup, tasks <-chan Task, results chan<- Result) {
	defer wg.Done()
	for {
		select {
		case task, ok := <-tasks:
			if !ok {
				return
			}
			data, err := task.Execute()
			// results has capacity for every task, so this send never
			// blocks even after the collector stops draining on expiry.
			results <- Result{
				Name: task.Name,
				Data: data,
				Err:  err,
			}
		case <-ctx.Done():
			return
		}
	}
}

// Execute runs the tasks through the pool and returns their results keyed
// by task name. When ctx expires first, Execute returns whatever was
// collected so far; in-flight tasks finish in the background and every
// worker exits.
func (p *Pool) Execute(ctx context.Context, tasks []Task) map[string]Result {
	var wg sync.WaitGroup
	results := make(map[string]Result)

	taskCh := make(chan Task)
	resultCh := make(chan Result, len(tasks))

	// Start workers
	for i := 0; i < p.workerCount; i++ {
		wg.Add(1)
		go p.worker(ctx, &wg, taskCh, resultCh)
	}

	// Send tasks
	go func() {
		defer close(taskCh)
		for _, task := range tasks {
			select {
			case taskCh <- task:
			case <-ctx.Done():
				return
			}
		}
	}()

	// Collect results
	for i := 0; i < len(tasks); i++ {
		select {
		case result := <-resultCh:
			results[result.Name] = result
		case <-ctx.Done():
			return results
		}
	}

	wg.Wait()
	return results
}

// FirstError returns the first task error in results, if any. A result
// missing from the map (context cancelled before the task finished) counts
// as ctx.Err().
func FirstError(ctx context.Context, results map[string]Result, tasks []Task) error {
	for _, task := range tasks {
		result, ok := results[task.Name]
		if !ok {
			return ctx.Err()
		}
		if result.Err != nil {
			return result.Err
		}
	}
	return nil
}

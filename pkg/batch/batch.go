// Package batch runs groups of API calls concurrently with a bounded
// degree of parallelism.
package batch

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultLimit caps in-flight calls when no explicit limit is given.
const DefaultLimit = 8

// Task produces one result of a gathered batch.
type Task[T any] func(ctx context.Context) (T, error)

// Gather runs the tasks concurrently, at most limit at a time (DefaultLimit
// when limit <= 0), and returns their results in task order. The first
// error cancels the remaining tasks and is returned.
func Gather[T any](ctx context.Context, limit int, tasks []Task[T]) ([]T, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(limit)

	results := make([]T, len(tasks))
	for i, task := range tasks {
		group.Go(func() error {
			result, err := task(ctx)
			if err != nil {
				return err
			}
			results[i] = result
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Package fetcher runs independent fetch-and-parse tasks under a fixed concurrency cap.
package fetcher

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"PharmaWatch/internal/metrics"
)

// DefaultLimit is the number of requests allowed in flight against one source.
const DefaultLimit = 5

// Result holds the outcome of one work item. Exactly one of Value or Err is meaningful.
type Result[R any] struct {
	Value R
	Err   error
}

// Run executes fn for every item with at most limit calls outstanding at once.
// Results are returned in input order. A failing item never cancels its siblings;
// a panic inside fn is converted into that item's error.
func Run[T, R any](ctx context.Context, items []T, limit int, fn func(context.Context, T) (R, error)) []Result[R] {
	if limit <= 0 {
		limit = DefaultLimit
	}

	results := make([]Result[R], len(items))
	if len(items) == 0 {
		return results
	}

	var g errgroup.Group
	g.SetLimit(limit)

	for i, item := range items {
		g.Go(func() error {
			metrics.FetchInFlight.Inc()
			defer metrics.FetchInFlight.Dec()
			defer func() {
				if r := recover(); r != nil {
					results[i] = Result[R]{Err: fmt.Errorf("item %d panicked: %v", i, r)}
				}
			}()

			if err := ctx.Err(); err != nil {
				results[i] = Result[R]{Err: err}
				return nil
			}

			v, err := fn(ctx, item)
			results[i] = Result[R]{Value: v, Err: err}
			return nil
		})
	}

	_ = g.Wait()
	return results
}

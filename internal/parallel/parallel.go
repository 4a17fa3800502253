package parallel

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency is used when a caller passes a non-positive limit.
const DefaultConcurrency = 4

// Map applies fn to every item with at most concurrency calls in flight.
// Results are returned in the order items were submitted. The first error
// cancels the remaining calls and is returned.
func Map[T, R any](ctx context.Context, items []T, concurrency int, fn func(context.Context, T) (R, error)) ([]R, error) {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	results := make([]R, len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Result holds the outcome of one task in a Collect run.
type Result[R any] struct {
	Value R
	Err   error
}

// Collect is Map without short-circuiting: every item runs and its
// error, if any, is kept next to its slot.
func Collect[T, R any](ctx context.Context, items []T, concurrency int, fn func(context.Context, T) (R, error)) []Result[R] {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	results := make([]Result[R], len(items))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, item := range items {
		i, item := i, item
		g.Go(func() error {
			r, err := fn(gctx, item)
			results[i] = Result[R]{Value: r, Err: err}
			return nil // never fail the group, collect results instead
		})
	}

	_ = g.Wait()
	return results
}

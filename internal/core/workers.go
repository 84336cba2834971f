package core

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Workers bounds the number of image files read or written concurrently.
var Workers = 4

// forEachIndex runs fn for 0..n-1 on at most Workers goroutines and returns
// the first error. fn must only write to state owned by its index.
func forEachIndex(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	limit := Workers
	if limit < 1 {
		limit = 1
	}
	g.SetLimit(limit)

	for i := 0; i < n; i++ {
		idx := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, idx)
		})
	}
	return g.Wait()
}

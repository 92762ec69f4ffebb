package base

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// FetchPages fetches pages first..last concurrently with at most workers in
// flight and returns the items in page order. The first failure cancels the
// remaining pages.
func FetchPages[T any](ctx context.Context, workers, first, last int, fetch func(ctx context.Context, page int) ([]T, error)) ([]T, error) {
	if last < first {
		return nil, nil
	}
	pages := make([][]T, last-first+1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(workers, 1))
	for page := first; page <= last; page++ {
		g.Go(func() error {
			items, err := fetch(gctx, page)
			if err != nil {
				return err
			}
			pages[page-first] = items
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []T
	for _, items := range pages {
		out = append(out, items...)
	}
	return out, nil
}

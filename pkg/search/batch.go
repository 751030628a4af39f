package search

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/ChrisMcGann/SpecMatch/pkg/core"
)

// SearchAll runs fn for every query against the shared, read-only library
// using up to workers goroutines (GOMAXPROCS when workers <= 0). Results are
// indexed like queries. Cancellation is checked between queries.
func SearchAll(ctx context.Context, fn Func, queries []*core.Spectrum, lib core.Library, p Params, workers int) ([][]MatchScore, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([][]MatchScore, len(queries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, q := range queries {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			res, err := fn(q, lib, p)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

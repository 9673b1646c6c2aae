package body

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/lexo-astro/lexo/pkg/record"
)

// Result is the outcome of normalizing one record of a batch.
type Result struct {
	Index  int
	Planet Planet
	Err    error
}

// BatchOptions configures NormalizeBatch.
type BatchOptions struct {
	// Workers bounds concurrent normalizations. Zero means GOMAXPROCS.
	Workers int
}

// NormalizeBatch normalizes every record independently. A record that fails
// only sets Err on its own Result; results are returned in input order. The
// returned error is non-nil only when ctx is cancelled.
func NormalizeBatch(ctx context.Context, recs []record.Record, opts BatchOptions) ([]Result, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	results := make([]Result, len(recs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, rec := range recs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := Normalize(rec)
			results[i] = Result{Index: i, Planet: p, Err: err}
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

// Planets returns the planets of the successful results.
func Planets(results []Result) []Planet {
	out := make([]Planet, 0, len(results))
	for _, r := range results {
		if r.Err == nil {
			out = append(out, r.Planet)
		}
	}
	return out
}

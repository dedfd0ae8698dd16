package transport

import (
	"context"
	"log/slog"
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// progressSteps is how many progress lines a pass logs at debug level
const progressSteps = 10

// forEachVertex runs fn for every vertex index on a bounded set of goroutines.
// fn must only write state owned by its own vertex index.
func forEachVertex(ctx context.Context, n, workers int, logger *slog.Logger, label string, fn func(i int)) error {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	var done atomic.Int64
	step := int64(max(1, n/progressSteps))

	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			fn(i)

			if d := done.Add(1); logger != nil && (d%step == 0 || d == int64(n)) {
				logger.Debug(label, "vertex", d, "total", n)
			}
			return nil
		})
	}

	return g.Wait()
}

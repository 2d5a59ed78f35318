package runner

import (
	"context"

	"golang.org/x/sync/errgroup"
)

type Job func(ctx context.Context) error

// RunPool executes jobs with at most maxWorkers concurrently. The first job
// error cancels the context handed to the rest and is returned.
func RunPool(ctx context.Context, maxWorkers int, jobs []Job) error {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxWorkers)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error { return job(gctx) })
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

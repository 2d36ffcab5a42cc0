package pgrtk

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// WorkerPool bounds the concurrency of a batch of independent jobs,
// following the "0 = all cores" sizing convention shared across the
// package's CLI tools.
type WorkerPool struct {
	limit int
}

// NewWorkerPool returns a pool that runs at most WorkerCount(limit) jobs
// concurrently.
func NewWorkerPool(limit int) *WorkerPool {
	return &WorkerPool{limit: WorkerCount(limit)}
}

// Run executes fn(i) for every i in [0, n), bounded to the pool's
// concurrency limit, returning the first error encountered (if any)
// after all in-flight jobs finish.
func (p *WorkerPool) Run(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.limit)
	for i := 0; i < n; i++ {
		i := i
		g.Go(func() error {
			return fn(ctx, i)
		})
	}
	return g.Wait()
}

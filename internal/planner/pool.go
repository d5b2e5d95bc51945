package planner

import (
	"context"
	"runtime"

	"golang.org/x/sync/semaphore"

	"github.com/wandergrid/go-poi-routes/internal/types"
)

// Pool bounds how many planning jobs run at once. Planning is pure CPU work
// over in-memory shortlists, so admitting more jobs than cores only adds
// scheduler churn under load.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool sizes the pool; size <= 0 falls back to GOMAXPROCS.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size))}
}

// Do waits for a slot, runs f on its own goroutine and returns its routes.
// The context bounds the wait for a slot and the wait for the result; a
// canceled context abandons the job, whose slot is still released when f
// returns.
func (p *Pool) Do(ctx context.Context, f func() []types.Route) ([]types.Route, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	out := make(chan []types.Route, 1)
	go func() {
		defer p.sem.Release(1)
		out <- f()
	}()

	select {
	case routes := <-out:
		return routes, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

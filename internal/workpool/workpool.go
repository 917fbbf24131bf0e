// Package workpool runs a batch of tasks under a fixed concurrency ceiling.
package workpool

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// DefaultLimit is the number of detail fetches allowed in flight at once. It is
// also the ceiling: larger limits are lowered to it.
const DefaultLimit = 3

// Result pairs a task input with its outcome.
type Result[T, R any] struct {
	Input T
	Value R
	Err   error
}

// Map runs fn for every input with at most limit tasks in flight (never more
// than DefaultLimit). Inputs are
// dispatched in order; once limit tasks are running the launcher waits for a
// slot. Map returns exactly one Result per input, in completion order.
//
// A cancelled ctx stops dispatching; inputs that never started get ctx.Err().
func Map[T, R any](ctx context.Context, inputs []T, limit int, fn func(context.Context, T) (R, error)) []Result[T, R] {
	if limit <= 0 || limit > DefaultLimit {
		limit = DefaultLimit
	}

	sem := semaphore.NewWeighted(int64(limit))
	results := make([]Result[T, R], 0, len(inputs))
	var mu sync.Mutex
	record := func(r Result[T, R]) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	}

	for i, in := range inputs {
		if err := sem.Acquire(ctx, 1); err != nil {
			for _, rest := range inputs[i:] {
				record(Result[T, R]{Input: rest, Err: err})
			}
			break
		}
		go func(in T) {
			defer sem.Release(1)
			v, err := fn(ctx, in)
			record(Result[T, R]{Input: in, Value: v, Err: err})
		}(in)
	}

	// Acquiring the whole weight waits for every running task. Background is used
	// so that a cancelled ctx still lets in-flight tasks report.
	_ = sem.Acquire(context.Background(), int64(limit))
	sem.Release(int64(limit))

	mu.Lock()
	defer mu.Unlock()
	return results
}

// ABOUTME: Bounded task fan-out: runs N independent units of work under a hard
// ABOUTME: concurrency ceiling, isolating per-unit failures into ordered Result values.
package pipeline

import (
	"context"
	"fmt"
	"sync"
)

// DefaultFanOutLimit is the concurrency ceiling used for network scraping.
const DefaultFanOutLimit = 5

// Result is the outcome of one fan-out unit: either a value or the failure
// that produced no value. Failures are data, never propagated panics.
type Result[T any] struct {
	Value T
	Err   error
}

// Failed reports whether the unit produced no value.
func (r Result[T]) Failed() bool { return r.Err != nil }

// FanOut executes every unit with at most limit in flight at any instant and
// returns one Result per unit in input order. A unit that returns an error or
// panics yields a failure Result; no unit failure aborts the batch. Units are
// admitted in submission order: a later unit does not start while admitting
// it would exceed the limit. If ctx is cancelled, units not yet started are
// marked failed with the context error.
func FanOut[T any](ctx context.Context, limit int, units []func(context.Context) (T, error)) []Result[T] {
	if limit <= 0 {
		limit = DefaultFanOutLimit
	}

	// Buffered channel as a counting semaphore, acquired in submission order
	// before the unit's goroutine is spawned.
	semaphore := make(chan struct{}, limit)
	results := make([]Result[T], len(units))
	var wg sync.WaitGroup

	for i, unit := range units {
		select {
		case semaphore <- struct{}{}:
		case <-ctx.Done():
			results[i] = Result[T]{Err: ctx.Err()}
			continue
		}

		wg.Add(1)
		go func(idx int, run func(context.Context) (T, error)) {
			defer wg.Done()
			defer func() { <-semaphore }()
			defer func() {
				if r := recover(); r != nil {
					results[idx] = Result[T]{Err: fmt.Errorf("unit %d panicked: %v", idx, r)}
				}
			}()

			v, err := run(ctx)
			results[idx] = Result[T]{Value: v, Err: err}
		}(i, unit)
	}

	wg.Wait()
	return results
}

// ABOUTME: Phase aggregator: runs a fixed set of independent sub-operations to
// ABOUTME: completion, converting individual failures into defaults instead of aborting.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrNoOps is returned when a phase has no sub-operations configured, the only
// way a phase aggregation can fail as a whole.
var ErrNoOps = errors.New("no operations configured for phase")

// Op is one sub-operation of a phase. Run writes its output into storage the
// closure owns; on error or panic that storage keeps its default value, so
// output assembly is positional, never completion-ordered.
type Op struct {
	Name string
	Run  func(context.Context) error
}

// Settle runs all ops concurrently, waits for every one of them, and returns
// per-op errors in input order (nil for ops that succeeded). Panics inside an
// op are recovered into its error slot. The aggregate error is non-nil only
// when no ops were given.
func Settle(ctx context.Context, ops ...Op) ([]error, error) {
	if len(ops) == 0 {
		return nil, ErrNoOps
	}

	errs := make([]error, len(ops))
	var wg sync.WaitGroup

	for i, op := range ops {
		wg.Add(1)
		go func(idx int, op Op) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[idx] = fmt.Errorf("%s panicked: %v", op.Name, r)
				}
			}()
			if err := op.Run(ctx); err != nil {
				errs[idx] = fmt.Errorf("%s: %w", op.Name, err)
			}
		}(i, op)
	}

	wg.Wait()
	return errs, nil
}

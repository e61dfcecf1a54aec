package sim

import (
	"context"
	"fmt"
	"sync"
)

// Builder creates an independent runner for one seed. Every runner must own
// its own world; worlds are never shared between goroutines.
type Builder func(seed int64) (*Runner, error)

// Ensemble runs the same scenario under consecutive seeds in parallel.
type Ensemble struct {
	build     Builder
	numRuns   int
	seedStart int64
}

func NewEnsemble(build Builder, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart}
}

// Run returns one result per seed, in seed order.
func (e *Ensemble) Run(ctx context.Context) ([]*Result, error) {
	if e.numRuns < 1 {
		return nil, fmt.Errorf("%w: ensemble needs at least one run, got %d", ErrInvalidRun, e.numRuns)
	}

	results := make([]*Result, e.numRuns)
	errs := make([]error, e.numRuns)

	var wg sync.WaitGroup
	for i := 0; i < e.numRuns; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()

			seed := e.seedStart + int64(idx)
			r, err := e.build(seed)
			if err != nil {
				errs[idx] = fmt.Errorf("seed %d: %w", seed, err)
				return
			}
			results[idx], errs[idx] = r.Run(ctx)
		}(i)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}

	return results, nil
}

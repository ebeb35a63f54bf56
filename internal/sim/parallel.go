package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/dpdsim/internal/dynamo"
)

// Ensemble runs independent replicas of one system that differ only in
// their random seed.
type Ensemble struct {
	state     *dynamo.State
	opts      Options
	numRuns   int
	seedStart uint64
	// Limit caps concurrently running replicas; 0 means no limit.
	Limit int
}

func NewEnsemble(st *dynamo.State, opts Options, numRuns int, seedStart uint64) *Ensemble {
	return &Ensemble{state: st, opts: opts, numRuns: numRuns, seedStart: seedStart}
}

// Run advances every replica by steps. The first failing replica cancels the
// others.
func (e *Ensemble) Run(ctx context.Context, steps int64) ([]*Result, error) {
	if e.numRuns < 1 {
		return nil, dynamo.Configf("ensemble needs at least one replica, got %d", e.numRuns)
	}
	if steps < 0 {
		return nil, dynamo.Configf("step count must be >= 0, got %d", steps)
	}
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.Limit > 0 {
		g.SetLimit(e.Limit)
	}
	for i := 0; i < e.numRuns; i++ {
		g.Go(func() error {
			opts := e.opts
			opts.Seed = e.seedStart + uint64(i)

			s, err := New(e.state, opts)
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			res, err := s.Run(ctx, steps)
			results[i] = res
			if err != nil {
				return fmt.Errorf("replica %d: %w", i, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}

package simulate

import (
	"context"
	"errors"
	"fmt"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/vct"
)

// PowerConfig controls replicate phenotype draws.
type PowerConfig struct {
	Replicates   int
	Seed         uint64
	Significance float64
	Workers      int
}

// PowerSummary aggregates the p-values of all replicates.
type PowerSummary struct {
	Replicates  int
	Significant int
	Degenerate  int
	Power       float64
	MeanP       float64
	MedianP     float64
	PValues     []float64
}

// EstimatePower redraws phenotypes from probs cfg.Replicates times and tests
// each draw against kernel k. Replicate i is seeded with cfg.Seed + i + 1, so
// results do not depend on the number of workers. Draws with a single
// phenotype class count as p = 1.
func EstimatePower(ctx context.Context, probs []float64, k mat.Symmetric, cfg PowerConfig) (*PowerSummary, error) {
	if cfg.Replicates <= 0 {
		return nil, fmt.Errorf("replicates must be positive, got %d", cfg.Replicates)
	}
	if cfg.Significance <= 0 || cfg.Significance >= 1 {
		return nil, fmt.Errorf("significance %v outside (0, 1)", cfg.Significance)
	}

	items := make(chan WorkItem, cfg.Replicates)
	go func() {
		defer close(items)
		for i := range cfg.Replicates {
			select {
			case items <- WorkItem{Seq: i, Seed: cfg.Seed + uint64(i) + 1}:
			case <-ctx.Done():
				return
			}
		}
	}()

	results := RunReplicates(items, cfg.Workers, func(item WorkItem) WorkResult {
		y := New(item.Seed).Draw(probs)
		p, err := vct.Test(k, y, nil)
		if errors.Is(err, vct.ErrDegenerate) {
			return WorkResult{P: 1, Degenerate: true}
		}
		return WorkResult{P: p, Err: err}
	})

	sum := &PowerSummary{PValues: make([]float64, 0, cfg.Replicates)}
	err := OrderedCollect(results, func(r WorkResult) error {
		if r.Err != nil {
			return fmt.Errorf("replicate %d: %w", r.Seq, r.Err)
		}
		if r.Degenerate {
			sum.Degenerate++
		}
		if r.P < cfg.Significance {
			sum.Significant++
		}
		sum.PValues = append(sum.PValues, r.P)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sum.Replicates = len(sum.PValues)
	sum.Power = float64(sum.Significant) / float64(sum.Replicates)
	data := stats.Float64Data(sum.PValues)
	if sum.MeanP, err = stats.Mean(data); err != nil {
		return nil, fmt.Errorf("summarize p-values: %w", err)
	}
	if sum.MedianP, err = stats.Median(data); err != nil {
		return nil, fmt.Errorf("summarize p-values: %w", err)
	}
	return sum, nil
}

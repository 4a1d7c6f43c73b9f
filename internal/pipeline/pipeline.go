// Package pipeline runs the structure-aware kernel association test for a gene.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/genotype"
	"github.com/pokemon-vct/pokemon/internal/kernel"
	"github.com/pokemon-vct/pokemon/internal/output"
	"github.com/pokemon-vct/pokemon/internal/structure"
	"github.com/pokemon-vct/pokemon/internal/variant"
	"github.com/pokemon-vct/pokemon/internal/vct"
)

// Defaults for association runs.
const (
	DefaultBandwidth = 14
	DefaultAlpha     = 0.5
	DefaultRho       = 0.5
)

// Options configures one association run.
type Options struct {
	Gene          string
	GenotypePath  string
	CovariatePath string
	Covariates    []string
	Bandwidth     float64
	Alpha         float64
	Rho           float64
}

// Runner maps a gene's genotyped variants onto structures and tests each
// structure's kernel against the phenotype.
type Runner struct {
	mapper *structure.Mapper
	logger *zap.Logger
}

// NewRunner creates a runner over a reference mapping and coordinate source.
func NewRunner(ref structure.ReferenceLookup, coords structure.CoordinateSource) *Runner {
	return &Runner{
		mapper: structure.NewMapper(ref, coords),
		logger: zap.NewNop(),
	}
}

// SetLogger sets the logger for the runner and its mapper.
func (r *Runner) SetLogger(l *zap.Logger) {
	r.logger = l
	r.mapper.SetLogger(l)
}

// Run writes one line per mapped structure to out. A gene without structural
// coverage produces no output. When a kernel cannot be tested the gene is
// reported once as NA and the remaining structures are skipped.
func (r *Runner) Run(ctx context.Context, opts Options, out *output.ResultWriter) error {
	data, err := genotype.ReadRaw(opts.GenotypePath)
	if err != nil {
		return err
	}
	g := data.Genotypes
	r.logger.Info("loaded genotypes",
		zap.String("file", opts.GenotypePath),
		zap.Int("individuals", len(g.Individuals)),
		zap.Int("variants", len(g.Columns)),
		zap.Int("excluded", data.Excluded))

	cov, err := r.covariates(opts, g.Individuals)
	if err != nil {
		return err
	}

	res, err := r.mapper.Map(ctx, g.Variants(), opts.Gene)
	if err != nil {
		return fmt.Errorf("map %s: %w", opts.Gene, err)
	}
	if res.Status != structure.Mapped || res.Empty() {
		r.logger.Warn("no structural coverage, gene skipped",
			zap.String("gene", opts.Gene),
			zap.Stringer("status", res.Status))
		return nil
	}

	dists, err := kernel.BuildDistanceMatrices(res.Structures)
	if err != nil {
		return fmt.Errorf("gene %s: %w", opts.Gene, err)
	}
	freqs := g.Frequencies()

	for _, d := range dists {
		k, err := individualKernel(g, d, freqs, opts)
		if err != nil {
			return fmt.Errorf("gene %s structure %s: %w", opts.Gene, d.Structure, err)
		}

		p, err := vct.Test(k, data.Phenotype, cov)
		if errors.Is(err, vct.ErrDegenerate) {
			r.logger.Warn("kernel cannot be tested",
				zap.String("gene", opts.Gene),
				zap.String("structure", d.Structure),
				zap.Error(err))
			return out.WriteNA(opts.Gene)
		}
		if err != nil {
			return fmt.Errorf("gene %s structure %s: %w", opts.Gene, d.Structure, err)
		}

		r.logger.Debug("tested structure",
			zap.String("structure", d.Structure),
			zap.Int("variants", d.Len()),
			zap.Float64("p", p))
		if err := out.Write(opts.Gene, d.Structure, p); err != nil {
			return err
		}
	}
	return nil
}

// covariates loads the requested covariates. A missing covariate file means
// no covariates.
func (r *Runner) covariates(opts Options, individuals []string) (*mat.Dense, error) {
	if opts.CovariatePath == "" || len(opts.Covariates) == 0 {
		return nil, nil
	}
	if _, err := os.Stat(opts.CovariatePath); errors.Is(err, fs.ErrNotExist) {
		r.logger.Warn("covariate file not found, running without covariates",
			zap.String("file", opts.CovariatePath))
		return nil, nil
	}
	if len(individuals) == 0 {
		return nil, nil
	}
	return genotype.ReadCovariates(opts.CovariatePath, individuals, opts.Covariates)
}

// individualKernel builds G W Gᵀ for the variants of one structure, W
// combining allele-frequency and structural decay weights.
func individualKernel(g *genotype.Matrix, d *kernel.DistanceMatrix, freqs map[variant.ID]float64, opts Options) (*mat.SymDense, error) {
	decay, err := kernel.DecayMatrix(d, opts.Bandwidth)
	if err != nil {
		return nil, err
	}
	f := make([]float64, d.Len())
	for i, id := range d.Labels {
		f[i] = freqs[id]
	}
	w, err := kernel.Combine(f, decay, opts.Alpha, opts.Rho)
	if err != nil {
		return nil, err
	}
	if len(g.Individuals) == 0 {
		return &mat.SymDense{}, nil
	}
	sub, err := g.Select(d.Labels)
	if err != nil {
		return nil, err
	}
	return kernel.IndividualKernel(sub, w.Combined), nil
}

package simulate

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/genotype"
	"github.com/pokemon-vct/pokemon/internal/kernel"
	"github.com/pokemon-vct/pokemon/internal/refmap"
	"github.com/pokemon-vct/pokemon/internal/structure"
	"github.com/pokemon-vct/pokemon/internal/variant"
)

// Defaults for the simulation workflow.
const (
	DefaultIndividuals  = 2000
	DefaultFrequency    = 0.01
	DefaultCaseEffect   = 0.01
	DefaultBandwidth    = 7
	DefaultSignificance = 0.05
)

// PositionSource provides the position-keyed coordinate reference of a gene.
type PositionSource interface {
	PositionRows(ctx context.Context, transcript string) ([]refmap.PositionRow, error)
}

// Config describes one simulation run.
type Config struct {
	Gene        string
	Case        []variant.ID
	Control     []variant.ID
	Individuals int
	Frequency   float64
	CaseEffect  float64
	Bandwidth   float64
	Seed        uint64
	Alpha       float64
	Rho         float64
	Power       PowerConfig
}

// Residue is one row of the render table: a mapped variant and the effect
// shown on its residue.
type Residue struct {
	Variant           variant.ID
	Chain             string
	StructurePosition string
	Effect            float64
}

// StructureResult is the simulation output for one structure.
type StructureResult struct {
	Structure   string
	Individuals []string
	Phenotype   []float64
	Residues    []Residue
	Power       *PowerSummary
}

// Result is the outcome of a simulation run.
type Result struct {
	Status     structure.Status
	Genotypes  *genotype.Matrix
	Structures []*StructureResult
}

// Workflow runs the genotype and phenotype simulation for one gene.
type Workflow struct {
	ref    PositionSource
	logger *zap.Logger
}

// NewWorkflow creates a workflow over a position reference.
func NewWorkflow(ref PositionSource) *Workflow {
	return &Workflow{ref: ref, logger: zap.NewNop()}
}

// SetLogger sets the logger for progress messages.
func (w *Workflow) SetLogger(l *zap.Logger) {
	w.logger = l
}

// Run simulates genotypes for the case and control variants, maps them onto
// the gene's structures by position and simulates a phenotype per structure
// from the case variants' effect kernel. Control variants carry no effect.
func (w *Workflow) Run(ctx context.Context, cfg Config) (*Result, error) {
	if len(cfg.Case) == 0 {
		return nil, fmt.Errorf("no case variants")
	}

	sim := New(cfg.Seed)
	all := append(append([]variant.ID{}, cfg.Case...), cfg.Control...)
	freqs := make([]float64, len(all))
	for i := range freqs {
		freqs[i] = cfg.Frequency
	}
	g, err := sim.Genotypes(cfg.Individuals, all, freqs)
	if err != nil {
		return nil, fmt.Errorf("simulate genotypes: %w", err)
	}
	w.logger.Info("simulated genotypes",
		zap.Int("individuals", cfg.Individuals),
		zap.Int("variants", len(all)))

	rows, err := w.ref.PositionRows(ctx, cfg.Gene)
	if err != nil {
		return nil, fmt.Errorf("position reference for %s: %w", cfg.Gene, err)
	}
	res := &Result{Status: structure.Mapped, Genotypes: g}
	if len(rows) == 0 {
		w.logger.Warn(structure.NoCoverage.String(), zap.String("gene", cfg.Gene))
		res.Status = structure.NoCoverage
		return res, nil
	}

	caseRows, err := structure.MapByPosition(rows, cfg.Case)
	if err != nil {
		return nil, err
	}
	allRows, err := structure.MapByPosition(rows, all)
	if err != nil {
		return nil, err
	}

	dists, err := kernel.BuildDistanceMatrices(structure.GroupByStructure(caseRows))
	if err != nil {
		return nil, err
	}
	if len(dists) == 0 {
		w.logger.Warn("no case variant mapped to a structure", zap.String("gene", cfg.Gene))
		return res, nil
	}

	effects := make(map[variant.ID]float64, len(cfg.Case))
	for _, id := range cfg.Case {
		effects[id] = cfg.CaseEffect
	}
	byStructure := make(map[string][]structure.MappedRow)
	for _, r := range allRows {
		byStructure[r.Structure] = append(byStructure[r.Structure], r)
	}

	for _, d := range dists {
		sr, err := w.runStructure(ctx, cfg, sim, g, d, effects, byStructure[d.Structure])
		if err != nil {
			return nil, fmt.Errorf("structure %s: %w", d.Structure, err)
		}
		res.Structures = append(res.Structures, sr)
	}
	return res, nil
}

func (w *Workflow) runStructure(ctx context.Context, cfg Config, sim *Simulator, g *genotype.Matrix,
	d *kernel.DistanceMatrix, effects map[variant.ID]float64, mapped []structure.MappedRow) (*StructureResult, error) {

	corr, err := kernel.EffectKernel(effects, d, cfg.Bandwidth)
	if err != nil {
		return nil, err
	}
	probs, err := Probabilities(g, corr)
	if err != nil {
		return nil, err
	}

	sr := &StructureResult{
		Structure:   d.Structure,
		Individuals: g.Individuals,
		Phenotype:   sim.Draw(probs),
	}

	sums := corr.RowSums()
	for _, r := range mapped {
		sr.Residues = append(sr.Residues, Residue{
			Variant:           r.Variant,
			Chain:             r.Chain,
			StructurePosition: r.StructurePosition,
			Effect:            sums[r.Variant],
		})
	}

	w.logger.Info("simulated phenotype",
		zap.String("gene", cfg.Gene),
		zap.String("structure", d.Structure),
		zap.Int("variants", corr.Len()),
		zap.Int("residues", len(sr.Residues)))

	if cfg.Power.Replicates > 0 {
		k, err := w.testKernel(cfg, g, d)
		if err != nil {
			return nil, err
		}
		sr.Power, err = EstimatePower(ctx, probs, k, cfg.Power)
		if err != nil {
			return nil, err
		}
		w.logger.Info("estimated power",
			zap.String("structure", d.Structure),
			zap.Int("replicates", sr.Power.Replicates),
			zap.Float64("power", sr.Power.Power),
			zap.Float64("median_p", sr.Power.MedianP))
	}
	return sr, nil
}

// testKernel builds the individual kernel G W Gᵀ the association test sees,
// with W combining simulated frequencies and structural decay.
func (w *Workflow) testKernel(cfg Config, g *genotype.Matrix, d *kernel.DistanceMatrix) (*mat.SymDense, error) {
	decay, err := kernel.DecayMatrix(d, cfg.Bandwidth)
	if err != nil {
		return nil, err
	}
	all := g.Frequencies()
	freqs := make([]float64, d.Len())
	for i, id := range d.Labels {
		freqs[i] = all[id]
	}
	weights, err := kernel.Combine(freqs, decay, cfg.Alpha, cfg.Rho)
	if err != nil {
		return nil, err
	}
	sub, err := g.Select(d.Labels)
	if err != nil {
		return nil, err
	}
	return kernel.IndividualKernel(sub, weights.Combined), nil
}

package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/variant"
)

// CorrelationMatrix combines per-variant effect magnitudes with spatial decay.
// The diagonal holds each variant's marginal effect and the off-diagonal the
// pairwise structural interaction.
type CorrelationMatrix struct {
	Structure string
	Labels    []variant.ID
	Data      *mat.SymDense
}

// EffectKernel builds the variant-correlation matrix
//
//	c_ij = sqrt(e_i) * sqrt(e_j) * exp(-d_ij² / (2t²))
//
// over the variants present in both effects and d, in d's order. Variants
// without a structural mapping or without an effect size are left out.
func EffectKernel(effects map[variant.ID]float64, d *DistanceMatrix, t float64) (*CorrelationMatrix, error) {
	w, err := DecayMatrix(d, t)
	if err != nil {
		return nil, err
	}

	var (
		labels []variant.ID
		idx    []int
		mag    []float64
	)
	for i, id := range d.Labels {
		e, ok := effects[id]
		if !ok {
			continue
		}
		if e < 0 || math.IsNaN(e) {
			return nil, fmt.Errorf("variant %s: negative effect size %v", id, e)
		}
		labels = append(labels, id)
		idx = append(idx, i)
		mag = append(mag, math.Sqrt(e))
	}

	n := len(labels)
	if n == 0 {
		return &CorrelationMatrix{Structure: d.Structure}, nil
	}

	data := mat.NewSymDense(n, nil)
	for a := 0; a < n; a++ {
		for b := a; b < n; b++ {
			data.SetSym(a, b, mag[a]*mag[b]*w.At(idx[a], idx[b]))
		}
	}

	return &CorrelationMatrix{
		Structure: d.Structure,
		Labels:    labels,
		Data:      data,
	}, nil
}

// Len returns the number of variants in the matrix.
func (c *CorrelationMatrix) Len() int {
	return len(c.Labels)
}

// Marginal returns sqrt of the diagonal, the per-variant marginal effect.
func (c *CorrelationMatrix) Marginal() []float64 {
	es := make([]float64, c.Len())
	for i := range es {
		es[i] = math.Sqrt(c.Data.At(i, i))
	}
	return es
}

// Pairwise returns a copy of the matrix with its diagonal set to zero.
func (c *CorrelationMatrix) Pairwise() *mat.SymDense {
	n := c.Len()
	if n == 0 {
		return &mat.SymDense{}
	}
	p := mat.NewSymDense(n, nil)
	p.CopySym(c.Data)
	for i := 0; i < n; i++ {
		p.SetSym(i, i, 0)
	}
	return p
}

// RowSums returns the sum of each row, the aggregate effect a variant carries
// once its structural neighbours are accounted for.
func (c *CorrelationMatrix) RowSums() map[variant.ID]float64 {
	out := make(map[variant.ID]float64, c.Len())
	for i, id := range c.Labels {
		var sum float64
		for j := range c.Labels {
			sum += c.Data.At(i, j)
		}
		out[id] = sum
	}
	return out
}

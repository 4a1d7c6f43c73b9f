package genotype

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/variant"
)

// Matrix is an individuals x variants dosage matrix with labelled axes.
type Matrix struct {
	Individuals []string
	Columns     []Column

	// Dosage is nil when there are no individuals or no variants.
	Dosage *mat.Dense

	index map[variant.ID]int
}

// NewMatrix builds a Matrix from row-major dosages.
func NewMatrix(individuals []string, cols []Column, data []float64) (*Matrix, error) {
	if len(data) != len(individuals)*len(cols) {
		return nil, fmt.Errorf("dosage length %d does not match %d x %d", len(data), len(individuals), len(cols))
	}
	m := &Matrix{
		Individuals: individuals,
		Columns:     cols,
		index:       make(map[variant.ID]int, len(cols)),
	}
	for i, c := range cols {
		if _, dup := m.index[c.ID]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateVariant, c.ID)
		}
		m.index[c.ID] = i
	}
	if len(individuals) > 0 && len(cols) > 0 {
		m.Dosage = mat.NewDense(len(individuals), len(cols), data)
	}
	return m, nil
}

// Variants returns the variant IDs in column order.
func (m *Matrix) Variants() []variant.ID {
	ids := make([]variant.ID, len(m.Columns))
	for i, c := range m.Columns {
		ids[i] = c.ID
	}
	return ids
}

// Column returns the dosage vector for id.
func (m *Matrix) Column(id variant.ID) ([]float64, error) {
	j, ok := m.index[id]
	if !ok {
		return nil, fmt.Errorf("variant %s not in genotype matrix", id)
	}
	out := make([]float64, len(m.Individuals))
	if m.Dosage != nil {
		mat.Col(out, j, m.Dosage)
	}
	return out, nil
}

// Select returns the sub-matrix with columns in the order of ids.
func (m *Matrix) Select(ids []variant.ID) (*mat.Dense, error) {
	n := len(m.Individuals)
	if n == 0 || len(ids) == 0 {
		return nil, fmt.Errorf("empty selection: %d individuals, %d variants", n, len(ids))
	}
	out := mat.NewDense(n, len(ids), nil)
	col := make([]float64, n)
	for k, id := range ids {
		j, ok := m.index[id]
		if !ok {
			return nil, fmt.Errorf("variant %s not in genotype matrix", id)
		}
		mat.Col(col, j, m.Dosage)
		out.SetCol(k, col)
	}
	return out, nil
}

// Frequencies returns the alternate-allele frequency of each variant,
// computed as the dosage sum over twice the number of individuals.
func (m *Matrix) Frequencies() map[variant.ID]float64 {
	freqs := make(map[variant.ID]float64, len(m.Columns))
	n := len(m.Individuals)
	col := make([]float64, n)
	for j, c := range m.Columns {
		if n == 0 {
			freqs[c.ID] = 0
			continue
		}
		mat.Col(col, j, m.Dosage)
		freqs[c.ID] = floats.Sum(col) / float64(2*n)
	}
	return freqs
}

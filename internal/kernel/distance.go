// Package kernel builds per-structure distance matrices and the spatial-decay
// variant kernels derived from them.
package kernel

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/structure"
	"github.com/pokemon-vct/pokemon/internal/variant"
)

var (
	// ErrNegativeDistance is returned when a distance is negative or NaN.
	// It indicates corrupted coordinate data and is never clamped.
	ErrNegativeDistance = errors.New("invalid distance exist")

	// ErrInvalidCoordinate is returned for NaN or infinite coordinates.
	ErrInvalidCoordinate = errors.New("invalid coordinate")
)

// DistanceMatrix is a symmetric all-pairs Euclidean distance matrix between
// the variants mapped onto one structure. Rows and columns follow Labels.
type DistanceMatrix struct {
	Structure string
	Labels    []variant.ID
	Data      *mat.SymDense

	index map[variant.ID]int
}

// NewDistanceMatrix builds the distance matrix for a single structure.
//
// Each distinct variant gets a dense index in arrival order. A variant with
// several atom-level rows keeps one index, and every (i, j) entry is the
// minimum distance over all row pairs that map to it.
func NewDistanceMatrix(m *structure.Mapping) (*DistanceMatrix, error) {
	index := make(map[variant.ID]int)
	var labels []variant.ID

	rowIdx := make([]int, len(m.Rows))
	coords := make([][]float64, len(m.Rows))
	for r, row := range m.Rows {
		for _, c := range []float64{row.X, row.Y, row.Z} {
			if math.IsNaN(c) || math.IsInf(c, 0) {
				return nil, fmt.Errorf("structure %s variant %s: %w", m.Structure, row.Variant, ErrInvalidCoordinate)
			}
		}
		i, ok := index[row.Variant]
		if !ok {
			i = len(labels)
			index[row.Variant] = i
			labels = append(labels, row.Variant)
		}
		rowIdx[r] = i
		coords[r] = []float64{row.X, row.Y, row.Z}
	}

	n := len(labels)
	if n == 0 {
		return nil, fmt.Errorf("structure %s: no mapped variants", m.Structure)
	}

	data := mat.NewSymDense(n, nil)
	assigned := make([]bool, n*n)
	for a := range coords {
		for b := a; b < len(coords); b++ {
			r := floats.Distance(coords[a], coords[b], 2)
			if !(r >= 0) {
				return nil, fmt.Errorf("structure %s: %w", m.Structure, ErrNegativeDistance)
			}
			i, j := rowIdx[a], rowIdx[b]
			if !assigned[i*n+j] || r < data.At(i, j) {
				data.SetSym(i, j, r)
				assigned[i*n+j] = true
				assigned[j*n+i] = true
			}
		}
	}

	return &DistanceMatrix{
		Structure: m.Structure,
		Labels:    labels,
		Data:      data,
		index:     index,
	}, nil
}

// NewDistanceMatrixFrom wraps precomputed distances. Negative entries are rejected.
func NewDistanceMatrixFrom(structureID string, labels []variant.ID, data *mat.SymDense) (*DistanceMatrix, error) {
	if data.SymmetricDim() != len(labels) {
		return nil, fmt.Errorf("structure %s: %d labels for %d×%d matrix",
			structureID, len(labels), data.SymmetricDim(), data.SymmetricDim())
	}
	if err := checkNonNegative(data); err != nil {
		return nil, fmt.Errorf("structure %s: %w", structureID, err)
	}
	return &DistanceMatrix{Structure: structureID, Labels: labels, Data: data}, nil
}

// BuildDistanceMatrices builds one distance matrix per structure, ordered by
// structure ID.
func BuildDistanceMatrices(mappings []*structure.Mapping) ([]*DistanceMatrix, error) {
	out := make([]*DistanceMatrix, 0, len(mappings))
	for _, m := range mappings {
		if len(m.Rows) == 0 {
			continue
		}
		d, err := NewDistanceMatrix(m)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Structure < out[j].Structure })
	return out, nil
}

// Len returns the number of variants indexed by the matrix.
func (d *DistanceMatrix) Len() int {
	return len(d.Labels)
}

// At returns the distance between the i-th and j-th variants.
func (d *DistanceMatrix) At(i, j int) float64 {
	return d.Data.At(i, j)
}

// Index returns the position of id in the matrix.
func (d *DistanceMatrix) Index(id variant.ID) (int, bool) {
	if d.index == nil {
		d.index = make(map[variant.ID]int, len(d.Labels))
		for i, l := range d.Labels {
			d.index[l] = i
		}
	}
	i, ok := d.index[id]
	return i, ok
}

// Between returns the distance between two variants by ID.
func (d *DistanceMatrix) Between(a, b variant.ID) (float64, bool) {
	i, ok := d.Index(a)
	if !ok {
		return 0, false
	}
	j, ok := d.Index(b)
	if !ok {
		return 0, false
	}
	return d.At(i, j), true
}

func checkNonNegative(m mat.Symmetric) error {
	n := m.SymmetricDim()
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			if v := m.At(i, j); !(v >= 0) {
				return ErrNegativeDistance
			}
		}
	}
	return nil
}

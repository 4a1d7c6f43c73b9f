package kernel

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/structure"
	"github.com/pokemon-vct/pokemon/internal/variant"
)

func row(id variant.ID, x, y, z float64) structure.MappedRow {
	return structure.MappedRow{Structure: "4OBE", Variant: id, Chain: "A", X: x, Y: y, Z: z}
}

func randomMapping(seed int64, n int) *structure.Mapping {
	rng := rand.New(rand.NewSource(seed))
	m := &structure.Mapping{Structure: "4OBE"}
	for i := 0; i < n; i++ {
		id := variant.Format("1", int64(100+i), "A", "T")
		m.Rows = append(m.Rows, row(id, rng.Float64()*50, rng.Float64()*50, rng.Float64()*50))
	}
	return m
}

func TestNewDistanceMatrix_TwoVariants(t *testing.T) {
	m := &structure.Mapping{Structure: "4OBE", Rows: []structure.MappedRow{
		row("1:1:A:T", 0, 0, 0),
		row("1:2:C:G", 3, 4, 0),
	}}

	d, err := NewDistanceMatrix(m)
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, []variant.ID{"1:1:A:T", "1:2:C:G"}, d.Labels)
	assert.Equal(t, 0.0, d.At(0, 0))
	assert.Equal(t, 0.0, d.At(1, 1))
	assert.InDelta(t, 5.0, d.At(0, 1), 1e-12)
	assert.InDelta(t, 5.0, d.At(1, 0), 1e-12)

	r, ok := d.Between("1:2:C:G", "1:1:A:T")
	assert.True(t, ok)
	assert.InDelta(t, 5.0, r, 1e-12)

	_, ok = d.Between("1:2:C:G", "9:9:A:T")
	assert.False(t, ok)
}

func TestNewDistanceMatrix_SingleVariant(t *testing.T) {
	d, err := NewDistanceMatrix(&structure.Mapping{Structure: "4OBE", Rows: []structure.MappedRow{
		row("1:1:A:T", 7, 8, 9),
	}})
	require.NoError(t, err)
	require.Equal(t, 1, d.Len())
	assert.Equal(t, 0.0, d.At(0, 0))
}

func TestNewDistanceMatrix_IdenticalCoordinatesCollapse(t *testing.T) {
	d, err := NewDistanceMatrix(&structure.Mapping{Structure: "4OBE", Rows: []structure.MappedRow{
		row("1:1:A:T", 2, 2, 2),
		row("1:2:A:T", 2, 2, 2),
		row("1:3:A:T", 2, 2, 2),
	}})
	require.NoError(t, err)
	require.Equal(t, 3, d.Len())
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.Equal(t, 0.0, d.At(i, j))
		}
	}
}

func TestNewDistanceMatrix_MultipleAtomsKeepMinimum(t *testing.T) {
	// 1:1 has two atom-level rows; the closer one defines the distance.
	d, err := NewDistanceMatrix(&structure.Mapping{Structure: "4OBE", Rows: []structure.MappedRow{
		row("1:1:A:T", 10, 0, 0),
		row("1:2:A:T", 0, 0, 0),
		row("1:1:A:T", 1, 0, 0),
	}})
	require.NoError(t, err)
	require.Equal(t, 2, d.Len())
	assert.Equal(t, []variant.ID{"1:1:A:T", "1:2:A:T"}, d.Labels)
	assert.InDelta(t, 1.0, d.At(0, 1), 1e-12)
	assert.Equal(t, 0.0, d.At(0, 0))
}

func TestNewDistanceMatrix_SymmetricZeroDiagonal(t *testing.T) {
	d, err := NewDistanceMatrix(randomMapping(42, 25))
	require.NoError(t, err)

	n := d.Len()
	for i := 0; i < n; i++ {
		assert.Equal(t, 0.0, d.At(i, i))
		for j := 0; j < n; j++ {
			assert.Equal(t, d.At(i, j), d.At(j, i))
			assert.GreaterOrEqual(t, d.At(i, j), 0.0)
		}
	}
}

func TestNewDistanceMatrix_TriangleInequality(t *testing.T) {
	d, err := NewDistanceMatrix(randomMapping(7, 15))
	require.NoError(t, err)

	n := d.Len()
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			for k := 0; k < n; k++ {
				assert.LessOrEqual(t, d.At(i, k), d.At(i, j)+d.At(j, k)+1e-9)
			}
		}
	}
}

func TestNewDistanceMatrix_DuplicateRowsIdempotent(t *testing.T) {
	base := randomMapping(3, 10)
	dup := &structure.Mapping{Structure: base.Structure}
	dup.Rows = append(dup.Rows, base.Rows...)
	dup.Rows = append(dup.Rows, base.Rows[2], base.Rows[5], base.Rows[5])

	want, err := NewDistanceMatrix(base)
	require.NoError(t, err)
	got, err := NewDistanceMatrix(dup)
	require.NoError(t, err)

	assert.Equal(t, want.Labels, got.Labels)
	assert.True(t, mat.Equal(want.Data, got.Data))
}

func TestNewDistanceMatrix_InvalidCoordinate(t *testing.T) {
	_, err := NewDistanceMatrix(&structure.Mapping{Structure: "4OBE", Rows: []structure.MappedRow{
		row("1:1:A:T", 0, 0, 0),
		row("1:2:A:T", math.NaN(), 0, 0),
	}})
	assert.True(t, errors.Is(err, ErrInvalidCoordinate))

	_, err = NewDistanceMatrix(&structure.Mapping{Structure: "4OBE"})
	assert.Error(t, err)
}

func TestNewDistanceMatrixFrom(t *testing.T) {
	labels := []variant.ID{"1:1:A:T", "1:2:A:T"}

	d, err := NewDistanceMatrixFrom("X", labels, mat.NewSymDense(2, []float64{0, 2, 2, 0}))
	require.NoError(t, err)
	i, ok := d.Index("1:2:A:T")
	assert.True(t, ok)
	assert.Equal(t, 1, i)

	_, err = NewDistanceMatrixFrom("X", labels, mat.NewSymDense(2, []float64{0, -1, -1, 0}))
	assert.True(t, errors.Is(err, ErrNegativeDistance))

	_, err = NewDistanceMatrixFrom("X", labels[:1], mat.NewSymDense(2, nil))
	assert.Error(t, err)
}

func TestBuildDistanceMatrices(t *testing.T) {
	mappings := []*structure.Mapping{
		{Structure: "6GOD", Rows: []structure.MappedRow{row("1:1:A:T", 0, 0, 0)}},
		{Structure: "4OBE", Rows: []structure.MappedRow{row("1:1:A:T", 0, 0, 0), row("1:2:A:T", 0, 0, 1)}},
		{Structure: "EMPTY"},
	}

	ds, err := BuildDistanceMatrices(mappings)
	require.NoError(t, err)
	require.Len(t, ds, 2)
	assert.Equal(t, "4OBE", ds[0].Structure)
	assert.Equal(t, 2, ds[0].Len())
	assert.Equal(t, "6GOD", ds[1].Structure)
}

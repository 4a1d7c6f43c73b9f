package kernel

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/pokemon-vct/pokemon/internal/structure"
	"github.com/pokemon-vct/pokemon/internal/variant"
)

func TestDecayWeight(t *testing.T) {
	assert.Equal(t, 1.0, DecayWeight(0, 14))
	assert.InDelta(t, math.Exp(-0.5), DecayWeight(7, 7), 1e-12)

	prev := DecayWeight(0, 7)
	for r := 0.5; r <= 40; r += 0.5 {
		w := DecayWeight(r, 7)
		assert.LessOrEqual(t, w, prev, "r=%v", r)
		assert.Greater(t, w, 0.0, "r=%v", r)
		assert.LessOrEqual(t, w, 1.0, "r=%v", r)
		prev = w
	}
}

func TestDecayMatrix(t *testing.T) {
	labels := []variant.ID{"1:1:A:T", "1:2:A:T"}
	d, err := NewDistanceMatrixFrom("X", labels, mat.NewSymDense(2, []float64{0, 7, 7, 0}))
	require.NoError(t, err)

	w, err := DecayMatrix(d, 7)
	require.NoError(t, err)
	assert.Equal(t, 1.0, w.At(0, 0))
	assert.InDelta(t, math.Exp(-0.5), w.At(0, 1), 1e-12)

	_, err = DecayMatrix(d, 0)
	assert.True(t, errors.Is(err, ErrInvalidBandwidth))
	_, err = DecayMatrix(d, -3)
	assert.True(t, errors.Is(err, ErrInvalidBandwidth))
}

func TestDecayMatrix_NegativeDistance(t *testing.T) {
	d := &DistanceMatrix{
		Structure: "X",
		Labels:    []variant.ID{"1:1:A:T", "1:2:A:T"},
		Data:      mat.NewSymDense(2, []float64{0, -2, -2, 0}),
	}
	_, err := DecayMatrix(d, 7)
	assert.True(t, errors.Is(err, ErrNegativeDistance))

	_, err = EffectKernel(map[variant.ID]float64{"1:1:A:T": 1}, d, 7)
	assert.True(t, errors.Is(err, ErrNegativeDistance))
}

func TestEffectKernel(t *testing.T) {
	d, err := NewDistanceMatrix(&structure.Mapping{Structure: "4OBE", Rows: []structure.MappedRow{
		row("1:1:A:T", 0, 0, 0),
		row("1:2:A:T", 3, 4, 0),
		row("1:3:A:T", 0, 0, 10),
	}})
	require.NoError(t, err)

	effects := map[variant.ID]float64{
		"1:1:A:T": 0.04,
		"1:2:A:T": 0.01,
		"9:9:A:T": 0.5, // not mapped
	}

	c, err := EffectKernel(effects, d, 7)
	require.NoError(t, err)
	assert.Equal(t, "4OBE", c.Structure)
	assert.Equal(t, []variant.ID{"1:1:A:T", "1:2:A:T"}, c.Labels)

	assert.InDelta(t, 0.04, c.Data.At(0, 0), 1e-12)
	assert.InDelta(t, 0.01, c.Data.At(1, 1), 1e-12)
	want := 0.2 * 0.1 * math.Exp(-25.0/98.0)
	assert.InDelta(t, want, c.Data.At(0, 1), 1e-12)
	assert.InDelta(t, want, c.Data.At(1, 0), 1e-12)

	assert.InDeltaSlice(t, []float64{0.2, 0.1}, c.Marginal(), 1e-12)

	p := c.Pairwise()
	assert.Equal(t, 0.0, p.At(0, 0))
	assert.Equal(t, 0.0, p.At(1, 1))
	assert.InDelta(t, want, p.At(0, 1), 1e-12)
	// Pairwise must not modify the kernel itself.
	assert.InDelta(t, 0.04, c.Data.At(0, 0), 1e-12)

	sums := c.RowSums()
	assert.InDelta(t, 0.04+want, sums["1:1:A:T"], 1e-12)
}

func TestEffectKernel_InnerJoinProperty(t *testing.T) {
	d, err := NewDistanceMatrix(randomMapping(11, 12))
	require.NoError(t, err)

	effects := make(map[variant.ID]float64)
	for i, id := range d.Labels {
		if i%3 == 0 {
			effects[id] = 0.01 * float64(i+1)
		}
	}
	effects["22:1:A:T"] = 1

	c, err := EffectKernel(effects, d, 14)
	require.NoError(t, err)
	assert.LessOrEqual(t, c.Len(), len(effects))
	assert.LessOrEqual(t, c.Len(), d.Len())

	for _, id := range c.Labels {
		_, ok := d.Index(id)
		assert.True(t, ok, "%s not in distance matrix", id)
	}
	for i := 0; i < c.Len(); i++ {
		for j := 0; j < c.Len(); j++ {
			assert.Equal(t, c.Data.At(i, j), c.Data.At(j, i))
		}
	}
}

func TestEffectKernel_NoOverlap(t *testing.T) {
	d, err := NewDistanceMatrix(randomMapping(1, 3))
	require.NoError(t, err)

	c, err := EffectKernel(map[variant.ID]float64{"22:1:A:T": 1}, d, 7)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())
	assert.Empty(t, c.Marginal())
	assert.Empty(t, c.RowSums())
}

func TestEffectKernel_NegativeEffect(t *testing.T) {
	d, err := NewDistanceMatrix(randomMapping(1, 2))
	require.NoError(t, err)

	_, err = EffectKernel(map[variant.ID]float64{d.Labels[0]: -0.1}, d, 7)
	assert.Error(t, err)
}

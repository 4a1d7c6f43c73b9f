package kernel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func TestFrequencyWeights(t *testing.T) {
	w := FrequencyWeights([]float64{0.01, 0.2, 0.99, 0})
	require.Len(t, w, 4)

	// 0 is monomorphic and has the largest prior weight.
	assert.InDelta(t, 1.0, w[3], 1e-9)
	// Rarer variants get more weight; 0.99 folds to MAF 0.01.
	assert.Greater(t, w[0], w[1])
	assert.InDelta(t, w[0], w[2], 1e-9)
	for _, x := range w {
		assert.Greater(t, x, 0.0)
		assert.LessOrEqual(t, x, 1.0)
	}

	assert.Empty(t, FrequencyWeights(nil))
}

func TestCombine(t *testing.T) {
	s := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 1})
	freqs := []float64{0.01, 0.01}

	w, err := Combine(freqs, s, 0.5, 0.5)
	require.NoError(t, err)

	// Equal frequencies → normalized weights are both 1.
	assert.InDelta(t, 1.0, w.Frequency.At(0, 1), 1e-12)
	assert.Equal(t, s, w.Structural)

	// Diagonal: (0.5*1 + 0.5) * (0.5*1 + 0.5) = 1.
	assert.InDelta(t, 1.0, w.Combined.At(0, 0), 1e-12)
	// Off-diagonal: (0.5*1 + 0.5) * (0.5*0.5) = 0.25.
	assert.InDelta(t, 0.25, w.Combined.At(0, 1), 1e-12)
}

func TestCombine_Extremes(t *testing.T) {
	s := mat.NewSymDense(2, []float64{1, 0.3, 0.3, 1})
	freqs := []float64{0.01, 0.2}

	// alpha = 0 and rho = 1 reduces to the structural weights.
	w, err := Combine(freqs, s, 0, 1)
	require.NoError(t, err)
	assert.True(t, mat.EqualApprox(w.Combined, s, 1e-12))

	// alpha = 1 and rho = 0 keeps only the frequency diagonal.
	w, err = Combine(freqs, s, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.0, w.Combined.At(0, 1))
	assert.InDelta(t, w.Frequency.At(1, 1), w.Combined.At(1, 1), 1e-12)
}

func TestCombine_InvalidParameters(t *testing.T) {
	s := mat.NewSymDense(1, []float64{1})

	_, err := Combine([]float64{0.1}, s, 1.5, 0.5)
	assert.Error(t, err)
	_, err = Combine([]float64{0.1}, s, 0.5, -0.1)
	assert.Error(t, err)
	_, err = Combine([]float64{0.1, 0.2}, s, 0.5, 0.5)
	assert.Error(t, err)
}

func TestIndividualKernel(t *testing.T) {
	g := mat.NewDense(3, 2, []float64{
		1, 0,
		0, 1,
		1, 1,
	})
	w := mat.NewSymDense(2, []float64{1, 0.5, 0.5, 2})

	k := IndividualKernel(g, w)
	require.Equal(t, 3, k.SymmetricDim())

	want := mat.NewSymDense(3, []float64{
		1, 0.5, 1.5,
		0.5, 2, 2.5,
		1.5, 2.5, 4,
	})
	assert.True(t, mat.EqualApprox(want, k, 1e-12))
}

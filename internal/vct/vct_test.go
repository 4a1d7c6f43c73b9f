package vct

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// carrierKernel returns K = g g' for a single variant carried by the first
// `carriers` of n individuals.
func carrierKernel(n, carriers int) *mat.SymDense {
	g := make([]float64, n)
	for i := 0; i < carriers; i++ {
		g[i] = 1
	}
	k := mat.NewSymDense(n, nil)
	k.SymOuterK(1, mat.NewVecDense(n, g))
	return k
}

// phenotype marks [0,a) and [b,c) as cases.
func phenotype(n, a, b, c int) []float64 {
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		if i < a || (i >= b && i < c) {
			y[i] = 1
		}
	}
	return y
}

func TestScoreRankOneIsExact(t *testing.T) {
	// One variant in half of 200 individuals, 100 cases. The null of Q is
	// lambda * chi2(1) with lambda = 0.25 * (100 - 100^2/200) = 12.5.
	k := carrierKernel(200, 100)
	y := phenotype(200, 60, 100, 140)

	res, err := Score(k, y, nil)
	require.NoError(t, err)
	assert.InDelta(t, 100.0, res.Q, 1e-9)

	want := distuv.ChiSquared{K: 1}.Survival(100 / 12.5)
	assert.InDelta(t, want, res.P, 1e-6)
	assert.InDelta(t, 1.0, res.DF, 1e-4)
	assert.InDelta(t, 0.0, res.Noncentrality, 1e-4)
}

func TestStrongSignal(t *testing.T) {
	k := carrierKernel(200, 100)
	y := phenotype(200, 90, 100, 110)

	p, err := Test(k, y, nil)
	require.NoError(t, err)
	assert.Less(t, p, 1e-6)
}

func TestNoSignal(t *testing.T) {
	k := carrierKernel(200, 100)
	y := make([]float64, 200)
	for i := range y {
		y[i] = float64(i % 2)
	}

	p, err := Test(k, y, nil)
	require.NoError(t, err)
	assert.Greater(t, p, 0.5)
}

func TestZeroKernel(t *testing.T) {
	k := mat.NewSymDense(4, nil)
	p, err := Test(k, []float64{0, 1, 0, 1}, nil)
	require.NoError(t, err)
	assert.Equal(t, 1.0, p)
}

func TestWithCovariates(t *testing.T) {
	n := 200
	k := carrierKernel(n, 100)
	y := phenotype(n, 90, 100, 110)
	cov := mat.NewDense(n, 1, nil)
	for i := 0; i < n; i++ {
		cov.Set(i, 0, float64(i%7))
	}

	p, err := Test(k, y, cov)
	require.NoError(t, err)
	assert.Less(t, p, 0.01)
	assert.GreaterOrEqual(t, p, 0.0)
}

func TestNullModelMatchesMeanWithoutCovariates(t *testing.T) {
	x := mat.NewDense(4, 1, []float64{1, 1, 1, 1})
	mu, err := NullModel(x, []float64{1, 0, 0, 0})
	require.NoError(t, err)
	for _, m := range mu {
		assert.InDelta(t, 0.25, m, 1e-12)
	}
}

func TestNullModelLogistic(t *testing.T) {
	// A binary covariate with case rates 0.2 and 0.6 is a saturated model,
	// so fitted probabilities equal the group means.
	n := 20
	x := mat.NewDense(n, 2, nil)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		if i >= 10 {
			x.Set(i, 1, 1)
		}
	}
	for _, i := range []int{0, 1, 10, 11, 12, 13, 14, 15} {
		y[i] = 1
	}

	mu, err := NullModel(x, y)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, mu[0], 1e-6)
	assert.InDelta(t, 0.6, mu[19], 1e-6)
}

func TestDegenerate(t *testing.T) {
	_, err := Test(mat.NewSymDense(2, nil), []float64{0, 1}, nil)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Test(carrierKernel(5, 2), []float64{1, 1, 1, 1, 1}, nil)
	assert.ErrorIs(t, err, ErrDegenerate)

	_, err = Test(carrierKernel(5, 2), []float64{1, 0, 1}, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDegenerate)
}

func TestPValueInUnitInterval(t *testing.T) {
	rng := rand.New(rand.NewPCG(1, 2))
	n, m := 60, 5
	g := mat.NewDense(n, m, nil)
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			if rng.Float64() < 0.2 {
				g.Set(i, j, 1)
			}
		}
	}
	k := mat.NewSymDense(n, nil)
	k.SymOuterK(1, g)

	for trial := 0; trial < 20; trial++ {
		y := make([]float64, n)
		for i := range y {
			if rng.Float64() < 0.5 {
				y[i] = 1
			}
		}
		y[0], y[1] = 0, 1

		p, err := Test(k, y, nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, p, 0.0)
		assert.LessOrEqual(t, p, 1.0)
	}
}

func TestNoncentralChiSquaredSurvival(t *testing.T) {
	central := distuv.ChiSquared{K: 3}.Survival(4)
	assert.InDelta(t, central, NoncentralChiSquaredSurvival(4, 3, 0), 1e-12)

	assert.Equal(t, 1.0, NoncentralChiSquaredSurvival(0, 3, 2))

	prev := central
	for _, lambda := range []float64{0.5, 1, 2, 5, 10} {
		s := NoncentralChiSquaredSurvival(4, 3, lambda)
		assert.Greater(t, s, prev, "survival grows with noncentrality")
		assert.LessOrEqual(t, s, 1.0)
		prev = s
	}
}

func TestSigmoid(t *testing.T) {
	assert.Equal(t, 0.5, Sigmoid(0))
	for _, x := range []float64{-1e6, -745, -50, -1, 1, 50, 745, 1e6} {
		s := Sigmoid(x)
		assert.False(t, math.IsNaN(s))
		assert.GreaterOrEqual(t, s, 0.0)
		assert.LessOrEqual(t, s, 1.0)
	}
	assert.InDelta(t, 1-Sigmoid(2), Sigmoid(-2), 1e-15)
}

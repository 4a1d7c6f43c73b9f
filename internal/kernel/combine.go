package kernel

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
)

// minMAF keeps the Beta density finite for monomorphic variants.
const minMAF = 1e-8

// rareVariantPrior is the Beta(1, 25) prior that up-weights rare variants.
var rareVariantPrior = distuv.Beta{Alpha: 1, Beta: 25}

// Weights holds the frequency, structural and combined variant weight matrices.
type Weights struct {
	Frequency  *mat.SymDense
	Structural *mat.SymDense
	Combined   *mat.SymDense
}

// FrequencyWeights returns Beta(MAF; 1, 25) densities scaled so the largest is 1.
func FrequencyWeights(freqs []float64) []float64 {
	w := make([]float64, len(freqs))
	for i, f := range freqs {
		maf := math.Min(f, 1-f)
		maf = math.Max(maf, minMAF)
		w[i] = rareVariantPrior.Prob(maf)
	}
	if len(w) > 0 {
		if m := floats.Max(w); m > 0 {
			floats.Scale(1/m, w)
		}
	}
	return w
}

// Combine mixes allele-frequency weights with structural decay weights:
//
//	F = w wᵀ
//	combined = (α F + (1-α) J) ∘ (ρ S + (1-ρ) I)
//
// where J is the all-ones matrix. α = 0 ignores frequency and ρ = 0 ignores
// structure; both factors are positive semidefinite and so is their product.
// freqs must follow the row order of structural.
func Combine(freqs []float64, structural *mat.SymDense, alpha, rho float64) (*Weights, error) {
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("alpha %v outside [0, 1]", alpha)
	}
	if rho < 0 || rho > 1 {
		return nil, fmt.Errorf("rho %v outside [0, 1]", rho)
	}
	n := structural.SymmetricDim()
	if len(freqs) != n {
		return nil, fmt.Errorf("%d frequencies for %d×%d structural weights", len(freqs), n, n)
	}

	w := FrequencyWeights(freqs)
	freqW := mat.NewSymDense(n, nil)
	freqW.SymOuterK(1, mat.NewVecDense(n, w))

	combined := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			f := alpha*freqW.At(i, j) + (1 - alpha)
			s := rho * structural.At(i, j)
			if i == j {
				s += 1 - rho
			}
			combined.SetSym(i, j, f*s)
		}
	}

	return &Weights{
		Frequency:  freqW,
		Structural: structural,
		Combined:   combined,
	}, nil
}

// IndividualKernel returns the n×n similarity G W Gᵀ between individuals,
// where g is individuals × variants and w is variants × variants.
func IndividualKernel(g mat.Matrix, w mat.Symmetric) *mat.SymDense {
	n, _ := g.Dims()

	var gw mat.Dense
	gw.Mul(g, w)
	var k mat.Dense
	k.Mul(&gw, g.T())

	out := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			out.SetSym(i, j, (k.At(i, j)+k.At(j, i))/2)
		}
	}
	return out
}

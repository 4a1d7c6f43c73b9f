// Package simulate generates genotypes and phenotypes under the structural
// effect-size model and estimates the power of the association test.
package simulate

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pokemon-vct/pokemon/internal/genotype"
	"github.com/pokemon-vct/pokemon/internal/kernel"
	"github.com/pokemon-vct/pokemon/internal/variant"
	"github.com/pokemon-vct/pokemon/internal/vct"
)

// baseLogOdds is the intercept added to every individual's log-odds.
const baseLogOdds = 1

// Simulator draws genotypes and phenotypes from a seeded source. It is not
// safe for concurrent use; give each goroutine its own Simulator.
type Simulator struct {
	src rand.Source
	rng *rand.Rand
}

// New returns a Simulator whose draws are fully determined by seed.
func New(seed uint64) *Simulator {
	src := rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	return &Simulator{src: src, rng: rand.New(src)}
}

// Genotypes simulates an n x len(variants) dosage matrix. For a variant with
// frequency f, k ~ Binomial(n, f) individuals drawn uniformly with
// replacement carry one copy.
func (s *Simulator) Genotypes(n int, variants []variant.ID, freqs []float64) (*genotype.Matrix, error) {
	if len(freqs) != len(variants) {
		return nil, fmt.Errorf("%d frequencies for %d variants", len(freqs), len(variants))
	}
	if n <= 0 {
		return nil, fmt.Errorf("number of individuals must be positive, got %d", n)
	}

	m := len(variants)
	data := make([]float64, n*m)
	for j, f := range freqs {
		if f < 0 || f > 1 {
			return nil, fmt.Errorf("variant %s: frequency %v outside [0, 1]", variants[j], f)
		}
		if f == 0 {
			continue
		}
		k := int(distuv.Binomial{N: float64(n), P: f, Src: s.src}.Rand())
		for c := 0; c < k; c++ {
			data[s.rng.IntN(n)*m+j] = 1
		}
	}

	iids := make([]string, n)
	cols := make([]genotype.Column, m)
	for i := range iids {
		iids[i] = fmt.Sprintf("sim%d", i+1)
	}
	for j, id := range variants {
		cols[j] = genotype.Column{Raw: string(id), ID: id}
	}
	return genotype.NewMatrix(iids, cols, data)
}

// Probabilities returns each individual's case probability
//
//	logit_i = g_i·es + g_i C' g_iᵀ + 1
//
// where es is the marginal effect vector and C' the pairwise part of c.
// Genotype columns are taken in the order of c's labels.
func Probabilities(g *genotype.Matrix, c *kernel.CorrelationMatrix) ([]float64, error) {
	if c.Len() == 0 {
		return nil, fmt.Errorf("structure %s: empty correlation matrix", c.Structure)
	}
	sub, err := g.Select(c.Labels)
	if err != nil {
		return nil, err
	}

	es := mat.NewVecDense(c.Len(), c.Marginal())
	pair := c.Pairwise()

	n, _ := sub.Dims()
	var linear mat.VecDense
	linear.MulVec(sub, es)

	var gc mat.Dense
	gc.Mul(sub, pair)

	p := make([]float64, n)
	for i := 0; i < n; i++ {
		quad := mat.Dot(gc.RowView(i), sub.RowView(i))
		p[i] = vct.Sigmoid(linear.AtVec(i) + quad + baseLogOdds)
	}
	return p, nil
}

// Draw samples a 0/1 phenotype from case probabilities.
func (s *Simulator) Draw(probs []float64) []float64 {
	y := make([]float64, len(probs))
	for i, p := range probs {
		y[i] = distuv.Bernoulli{P: p, Src: s.src}.Rand()
	}
	return y
}

// Phenotype simulates a binary phenotype for the individuals of g under the
// effect model c.
func (s *Simulator) Phenotype(g *genotype.Matrix, c *kernel.CorrelationMatrix) ([]float64, error) {
	probs, err := Probabilities(g, c)
	if err != nil {
		return nil, err
	}
	return s.Draw(probs), nil
}

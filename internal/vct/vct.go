// Package vct implements a logistic variance-component score test for a
// variant kernel against a binary phenotype.
package vct

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate is returned when the input cannot support a test: fewer than
// three individuals or a phenotype with a single class.
var ErrDegenerate = errors.New("degenerate association input")

const (
	maxIterations = 50
	tolerance     = 1e-8
	minVariance   = 1e-10
)

// Result holds the score statistic and its null approximation.
type Result struct {
	Q float64
	P float64

	// Parameters of the moment-matched noncentral chi-square.
	DF            float64
	Noncentrality float64
}

// Test returns the p-value of the variance-component score test of kernel k
// against phenotype y, adjusting for covariates (nil for intercept only).
func Test(k mat.Symmetric, y []float64, covariates *mat.Dense) (float64, error) {
	res, err := Score(k, y, covariates)
	if err != nil {
		return math.NaN(), err
	}
	return res.P, nil
}

// Score computes the full test result.
func Score(k mat.Symmetric, y []float64, covariates *mat.Dense) (*Result, error) {
	n := len(y)
	if n < 3 {
		return nil, fmt.Errorf("%w: %d individuals", ErrDegenerate, n)
	}
	if k.SymmetricDim() != n {
		return nil, fmt.Errorf("kernel dimension %d does not match %d phenotypes", k.SymmetricDim(), n)
	}
	if !twoClasses(y) {
		return nil, fmt.Errorf("%w: phenotype has a single class", ErrDegenerate)
	}

	x, err := design(n, covariates)
	if err != nil {
		return nil, err
	}
	mu, err := NullModel(x, y)
	if err != nil {
		return nil, err
	}

	r := make([]float64, n)
	floats.SubTo(r, y, mu)
	rv := mat.NewVecDense(n, r)
	var kr mat.VecDense
	kr.MulVec(k, rv)
	q := mat.Dot(rv, &kr)

	p0, err := projection(x, mu)
	if err != nil {
		return nil, err
	}
	var m mat.Dense
	m.Mul(p0, k)

	res := &Result{Q: q}
	res.P, res.DF, res.Noncentrality = liu(q, traces(&m))
	return res, nil
}

func twoClasses(y []float64) bool {
	for _, v := range y[1:] {
		if v != y[0] {
			return true
		}
	}
	return false
}

// design returns [1 | covariates].
func design(n int, covariates *mat.Dense) (*mat.Dense, error) {
	p := 1
	if covariates != nil {
		r, c := covariates.Dims()
		if r != n {
			return nil, fmt.Errorf("covariate rows %d do not match %d phenotypes", r, n)
		}
		p += c
	}
	x := mat.NewDense(n, p, nil)
	for i := 0; i < n; i++ {
		x.Set(i, 0, 1)
		for j := 1; j < p; j++ {
			x.Set(i, j, covariates.At(i, j-1))
		}
	}
	return x, nil
}

// NullModel fits a logistic regression of y on x by iteratively reweighted
// least squares and returns the fitted probabilities. With an intercept-only
// design the fit is mean(y).
func NullModel(x *mat.Dense, y []float64) ([]float64, error) {
	n, p := x.Dims()
	mu := make([]float64, n)
	ybar := floats.Sum(y) / float64(n)
	if p == 1 {
		for i := range mu {
			mu[i] = ybar
		}
		return mu, nil
	}

	beta := mat.NewVecDense(p, nil)
	beta.SetVec(0, math.Log(ybar/(1-ybar)))

	eta := mat.NewVecDense(n, nil)
	z := mat.NewVecDense(n, nil)
	wx := mat.NewDense(n, p, nil)
	var xtwx mat.Dense
	var xtwz, next mat.VecDense

	for iter := 0; iter < maxIterations; iter++ {
		eta.MulVec(x, beta)
		for i := 0; i < n; i++ {
			e := eta.AtVec(i)
			mu[i] = Sigmoid(e)
			w := math.Max(mu[i]*(1-mu[i]), minVariance)
			z.SetVec(i, w*(e+(y[i]-mu[i])/w))
			for j := 0; j < p; j++ {
				wx.Set(i, j, w*x.At(i, j))
			}
		}
		xtwx.Mul(x.T(), wx)
		xtwz.MulVec(x.T(), z)
		if err := next.SolveVec(&xtwx, &xtwz); err != nil {
			return nil, fmt.Errorf("fit null model: %w", err)
		}

		var delta mat.VecDense
		delta.SubVec(&next, beta)
		beta.CopyVec(&next)
		if mat.Norm(&delta, math.Inf(1)) < tolerance {
			break
		}
	}

	eta.MulVec(x, beta)
	for i := range mu {
		mu[i] = Sigmoid(eta.AtVec(i))
	}
	return mu, nil
}

// projection returns P0 = V - V X (X'VX)^-1 X'V with V = diag(mu(1-mu)).
func projection(x *mat.Dense, mu []float64) (*mat.Dense, error) {
	n, p := x.Dims()
	vx := mat.NewDense(n, p, nil)
	v := make([]float64, n)
	for i := 0; i < n; i++ {
		v[i] = math.Max(mu[i]*(1-mu[i]), minVariance)
		for j := 0; j < p; j++ {
			vx.Set(i, j, v[i]*x.At(i, j))
		}
	}

	var xtvx, inv mat.Dense
	xtvx.Mul(x.T(), vx)
	if err := inv.Inverse(&xtvx); err != nil {
		return nil, fmt.Errorf("invert information matrix: %w", err)
	}

	var tmp, corr mat.Dense
	tmp.Mul(vx, &inv)
	corr.Mul(&tmp, vx.T())

	p0 := mat.NewDense(n, n, nil)
	p0.Scale(-1, &corr)
	for i := 0; i < n; i++ {
		p0.Set(i, i, p0.At(i, i)+v[i])
	}
	return p0, nil
}

// traces returns tr(M^k) for k = 1..4.
func traces(m *mat.Dense) [4]float64 {
	var m2 mat.Dense
	m2.Mul(m, m)
	n, _ := m.Dims()
	var c3, c4 float64
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			c3 += m2.At(i, j) * m.At(j, i)
			c4 += m2.At(i, j) * m2.At(j, i)
		}
	}
	return [4]float64{mat.Trace(m), mat.Trace(&m2), c3, c4}
}

// Sigmoid is the logistic function, evaluated without overflow for large |x|.
func Sigmoid(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

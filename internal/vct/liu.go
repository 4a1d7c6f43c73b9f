package vct

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// liu approximates the tail of a weighted sum of chi-square(1) variables
// with cumulants c by a noncentral chi-square matching its skewness
// (Liu, Tang and Zhang 2009). It returns the p-value and the matched
// degrees of freedom and noncentrality.
func liu(q float64, c [4]float64) (p, df, ncp float64) {
	c1, c2, c3, c4 := c[0], c[1], c[2], c[3]
	if c2 <= minVariance {
		return 1, 0, 0
	}

	muQ := c1
	sigmaQ := math.Sqrt(2 * c2)
	s1 := c3 / math.Pow(c2, 1.5)
	s2 := c4 / (c2 * c2)
	tstar := (q - muQ) / sigmaQ

	if s1 <= 0 {
		return clamp(distuv.UnitNormal.Survival(tstar)), 0, 0
	}

	var a float64
	if s1*s1 > s2 {
		a = 1 / (s1 - math.Sqrt(s1*s1-s2))
		ncp = s1*a*a*a - a*a
		df = a*a - 2*ncp
	} else {
		a = 1 / s1
		ncp = 0
		df = a * a
	}

	muX := df + ncp
	sigmaX := math.Sqrt2 * a
	return clamp(NoncentralChiSquaredSurvival(tstar*sigmaX+muX, df, ncp)), df, ncp
}

// NoncentralChiSquaredSurvival returns P(X > x) for X ~ chi-square(k, lambda),
// summing the Poisson mixture of central chi-square tails.
func NoncentralChiSquaredSurvival(x, k, lambda float64) float64 {
	if x <= 0 {
		return 1
	}
	if lambda <= 0 {
		return distuv.ChiSquared{K: k}.Survival(x)
	}

	pois := distuv.Poisson{Lambda: lambda / 2}
	half := lambda / 2
	last := int(math.Ceil(half + 12*math.Sqrt(half) + 50))

	var sum, weight float64
	for j := 0; j <= last; j++ {
		w := pois.Prob(float64(j))
		weight += w
		sum += w * distuv.ChiSquared{K: k + 2*float64(j)}.Survival(x)
		if 1-weight < 1e-14 && float64(j) > half {
			break
		}
	}
	return sum
}

func clamp(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

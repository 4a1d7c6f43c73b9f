package kernel

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// ErrInvalidBandwidth is returned when the decay bandwidth is not positive.
var ErrInvalidBandwidth = errors.New("bandwidth must be positive")

// DecayWeight returns exp(-r²/(2t²)). The weight is 1 at r = 0 and never increases with r.
func DecayWeight(r, t float64) float64 {
	return math.Exp(-r * r / (2 * t * t))
}

// DecayMatrix applies DecayWeight to every entry of d.
func DecayMatrix(d *DistanceMatrix, t float64) (*mat.SymDense, error) {
	if !(t > 0) || math.IsInf(t, 0) {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBandwidth, t)
	}
	if err := checkNonNegative(d.Data); err != nil {
		return nil, fmt.Errorf("structure %s: %w", d.Structure, err)
	}

	n := d.Len()
	w := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			w.SetSym(i, j, DecayWeight(d.At(i, j), t))
		}
	}
	return w, nil
}

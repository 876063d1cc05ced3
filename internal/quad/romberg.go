// Package quad provides the adaptive Romberg quadrature used by every
// integral of the halo model.
//
// Integrands are vectorized: each refinement level evaluates all of its new
// abscissas in one call, so that callers can batch spline lookups and share
// work across points. The integrator performs no rescaling of its own; see
// Normalized for the peak-normalization convention used by callers.
package quad

import (
	"math"

	"gonum.org/v1/gonum/integrate"

	apperrors "github.com/agbru/halocalc/internal/errors"
)

// VectorFunc evaluates an integrand at every abscissa of x, writing f(x[i])
// to dst[i]. len(dst) == len(x) always holds.
type VectorFunc func(dst, x []float64)

// Romberg integrates by successive interval halving with Richardson
// extrapolation. The zero value is not usable; fill every field.
type Romberg struct {
	// AbsTol stops refinement once two successive levels differ by less.
	AbsTol float64
	// RelTol stops refinement once two successive levels differ by less than
	// RelTol times the latest estimate.
	RelTol float64
	// MaxDepth is the number of halvings tried before giving up.
	MaxDepth int
}

// Integrate returns ∫ₐᵇ f(x) dx.
//
// Level 0 is the two-point trapezoid rule. Level i extrapolates the 2^i+1
// samples accumulated so far. Iteration stops when the change between two
// levels is below AbsTol or below RelTol·|estimate|. If MaxDepth levels pass
// without meeting either tolerance, or an estimate is NaN, a
// *apperrors.ConvergenceError is returned and the estimate must not be used.
func (r Romberg) Integrate(f VectorFunc, a, b float64) (float64, error) {
	if a == b {
		return 0, nil
	}
	sign := 1.0
	if b < a {
		a, b = b, a
		sign = -1
	}
	width := b - a

	samples := make([]float64, 2)
	f(samples, []float64{a, b})
	prev := 0.5 * (samples[0] + samples[1]) * width

	intervals := 1
	var diff float64
	for depth := 1; depth <= r.MaxDepth; depth++ {
		step := width / float64(intervals)
		mid := make([]float64, intervals)
		for j := range mid {
			mid[j] = a + (float64(j)+0.5)*step
		}
		vals := make([]float64, intervals)
		f(vals, mid)

		merged := make([]float64, 2*intervals+1)
		for j := 0; j < intervals; j++ {
			merged[2*j] = samples[j]
			merged[2*j+1] = vals[j]
		}
		merged[2*intervals] = samples[intervals]
		samples = merged
		intervals *= 2

		est := integrate.Romberg(samples, width/float64(intervals))
		if math.IsNaN(est) {
			return 0, &apperrors.ConvergenceError{Depth: depth, Difference: math.NaN(), Estimate: est}
		}
		diff = math.Abs(est - prev)
		if diff < r.AbsTol || diff < r.RelTol*math.Abs(est) {
			return sign * est, nil
		}
		prev = est
	}
	return 0, &apperrors.ConvergenceError{Depth: r.MaxDepth, Difference: diff, Estimate: sign * prev}
}

// Normalized integrates f after dividing it by its largest magnitude over
// the scan abscissas, then multiplies the result back. Integrands spanning
// many decades then reach the relative tolerance at O(1) magnitudes. A zero
// peak means the integrand vanishes on the scan points and 0 is returned without
// integrating. A NaN at any scan point skips the normalization so that Integrate
// reports the failure.
func Normalized(r Romberg, f VectorFunc, a, b float64, scan []float64) (float64, error) {
	vals := make([]float64, len(scan))
	f(vals, scan)
	var peak float64
	for _, v := range vals {
		if math.IsNaN(v) {
			return r.Integrate(f, a, b)
		}
		if av := math.Abs(v); av > peak {
			peak = av
		}
	}
	if peak == 0 {
		return 0, nil
	}
	if math.IsInf(peak, 0) {
		return r.Integrate(f, a, b)
	}
	scaled := func(dst, x []float64) {
		f(dst, x)
		for i := range dst {
			dst[i] /= peak
		}
	}
	v, err := r.Integrate(scaled, a, b)
	if err != nil {
		return 0, err
	}
	return v * peak, nil
}

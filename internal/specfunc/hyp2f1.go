package specfunc

import "math"

const (
	hypEps   = 1e-15
	hypMaxIt = 100000
)

// Hyp2F1 evaluates the Gauss hypergeometric function ₂F₁(a, b; c; z) for
// real z < 1. Arguments below −1/2 are first mapped into (1/3, 1) with the
// Pfaff transformation
//
//	₂F₁(a, b; c; z) = (1−z)^(−a) ₂F₁(a, c−b; c; z/(z−1))
//
// so that the defining series always converges. NaN is returned for z ≥ 1
// and for c a non-positive integer.
func Hyp2F1(a, b, c, z float64) float64 {
	switch {
	case math.IsNaN(a) || math.IsNaN(b) || math.IsNaN(c) || math.IsNaN(z):
		return math.NaN()
	case z >= 1:
		return math.NaN()
	case c <= 0 && c == math.Trunc(c):
		return math.NaN()
	case z == 0:
		return 1
	case z < -0.5:
		return math.Pow(1-z, -a) * hypSeries(a, c-b, c, z/(z-1))
	}
	return hypSeries(a, b, c, z)
}

// hypSeries sums Σ (a)ₙ(b)ₙ/(c)ₙ zⁿ/n! until the terms stop contributing.
func hypSeries(a, b, c, z float64) float64 {
	sum, term := 1.0, 1.0
	for n := 0; n < hypMaxIt; n++ {
		fn := float64(n)
		term *= (a + fn) * (b + fn) / ((c + fn) * (fn + 1)) * z
		sum += term
		if term == 0 || math.Abs(term) < hypEps*math.Abs(sum) {
			break
		}
	}
	return sum
}

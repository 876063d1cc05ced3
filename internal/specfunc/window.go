package specfunc

import "math"

const topHatSeries = 1e-2

// TopHat is the Fourier transform of a normalized spherical top-hat,
// W(x) = 3(sin x − x cos x)/x³, with W(0) = 1. Small arguments use the
// Taylor expansion to avoid cancellation.
func TopHat(x float64) float64 {
	x = math.Abs(x)
	if x < topHatSeries {
		x2 := x * x
		return 1 - x2/10 + x2*x2/280 - x2*x2*x2/15120
	}
	s, c := math.Sincos(x)
	return 3 * (s - x*c) / (x * x * x)
}

// Package specfunc implements the special functions needed by the halo
// profile: the sine and cosine integrals, the Gauss hypergeometric function
// on the negative real axis and the spherical top-hat window.
package specfunc

import (
	"math"
	"math/cmplx"
)

const (
	eulerGamma = 0.57721566490153286061
	siciEps    = 1e-16
	siciMaxIt  = 200
	siciTiny   = 1e-300
	// siciSwitch separates the power series (small t) from the continued
	// fraction (large t).
	siciSwitch = 2.0
)

// Sici returns the sine integral Si(x) = ∫₀ˣ sin t/t dt and the cosine
// integral Ci(x) = γ + ln x + ∫₀ˣ (cos t − 1)/t dt.
//
// Si is odd in x. Ci is defined for x > 0; for x < 0 the real part of the
// analytic continuation is returned (Ci(|x|)), and Ci(0) is −Inf.
func Sici(x float64) (si, ci float64) {
	if math.IsNaN(x) {
		return math.NaN(), math.NaN()
	}
	t := math.Abs(x)
	if t == 0 {
		return 0, math.Inf(-1)
	}
	if math.IsInf(t, 1) {
		si = math.Pi / 2
		if x < 0 {
			si = -si
		}
		return si, 0
	}

	if t > siciSwitch {
		si, ci = siciContinuedFraction(t)
	} else {
		si, ci = siciSeries(t)
	}
	if x < 0 {
		si = -si
	}
	return si, ci
}

// siciContinuedFraction evaluates E1(it) with the modified Lentz method and
// reads Si and Ci from its real and imaginary parts.
func siciContinuedFraction(t float64) (si, ci float64) {
	b := complex(1, t)
	c := complex(1/siciTiny, 0)
	d := 1 / b
	h := d
	for i := 2; i <= siciMaxIt; i++ {
		a := complex(-float64((i-1)*(i-1)), 0)
		b += 2
		d = 1 / (a*d + b)
		c = b + a/c
		del := c * d
		h *= del
		if math.Abs(real(del)-1)+math.Abs(imag(del)) < siciEps {
			break
		}
	}
	h *= cmplx.Rect(1, -t)
	return math.Pi/2 + imag(h), -real(h)
}

// siciSeries sums the alternating power series of Si and Ci together.
func siciSeries(t float64) (si, ci float64) {
	if t < math.Sqrt(siciTiny) {
		return t, eulerGamma + math.Log(t)
	}
	var sum, sums, sumc float64
	sign, fact := 1.0, 1.0
	odd := true
	for k := 1; k <= siciMaxIt; k++ {
		fact *= t / float64(k)
		term := fact / float64(k)
		sum += sign * term
		err := term / math.Abs(sum)
		if odd {
			sign = -sign
			sums = sum
			sum = sumc
		} else {
			sumc = sum
			sum = sums
		}
		if err < siciEps {
			break
		}
		odd = !odd
	}
	return sums, sumc + math.Log(t) + eulerGamma
}

package testutil

import "math"

// Zheng is the Zheng et al. (2005) occupation model: an error-function step
// for centrals and a power law of satellites above M0, all masses in
// M_sun/h.
type Zheng struct {
	LogMMin   float64
	SigmaLogM float64
	LogM0     float64
	LogM1p    float64
	Alpha     float64
}

// ReferenceHOD returns the occupation parameters of the golden tables.
func ReferenceHOD() Zheng {
	return Zheng{LogMMin: 12.14, SigmaLogM: 0.15, LogM0: 12.14, LogM1p: 13.43, Alpha: 1.0}
}

func (z Zheng) central(mass float64) float64 {
	return 0.5 * (1 + math.Erf((math.Log10(mass)-z.LogMMin)/z.SigmaLogM))
}

func (z Zheng) satellite(mass float64) float64 {
	m0 := math.Pow(10, z.LogM0)
	if mass <= m0 {
		return 0
	}
	return math.Pow((mass-m0)/math.Pow(10, z.LogM1p), z.Alpha)
}

// FirstMoment is <N> = N_c (1 + N_s).
func (z Zheng) FirstMoment(mass float64) float64 {
	return z.central(mass) * (1 + z.satellite(mass))
}

// SecondMoment is <N(N−1)> = N_c (2N_s + N_s²) for Poisson satellites.
func (z Zheng) SecondMoment(mass float64) float64 {
	ns := z.satellite(mass)
	return z.central(mass) * (2*ns + ns*ns)
}

// SatelliteFirstMoment is N_c N_s.
func (z Zheng) SatelliteFirstMoment(mass float64) float64 {
	return z.central(mass) * z.satellite(mass)
}

// FirstMomentZero is negative: the central step never vanishes exactly.
func (z Zheng) FirstMomentZero() float64 { return -1 }

// SecondMomentZero is M0, below which a halo hosts no pairs.
func (z Zheng) SecondMomentZero() float64 { return math.Pow(10, z.LogM0) }

// ConstantHOD places the same moments in every halo.
type ConstantHOD struct {
	N1, N2 float64
}

func (c ConstantHOD) FirstMoment(float64) float64  { return c.N1 }
func (c ConstantHOD) SecondMoment(float64) float64 { return c.N2 }
func (c ConstantHOD) FirstMomentZero() float64     { return -1 }
func (c ConstantHOD) SecondMomentZero() float64    { return -1 }

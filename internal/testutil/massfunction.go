package testutil

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/agbru/halocalc/internal/config"
	"github.com/agbru/halocalc/internal/quad"
	"github.com/agbru/halocalc/internal/spline"
)

const (
	// DeltaC is the linear collapse threshold.
	DeltaC = 1.686
	// Mass grid of the sample [M_sun/h].
	MassMin    = 1e9
	MassMax    = 5e16
	MassPoints = 100
)

// MassFunction is a Sheth & Tormen (1999) mass function sampled on a
// log-spaced mass grid. ν is (δc/σ(M))². Over the sampled range [NuMin,
// NuMax] both f(ν) and the bias are renormalized so that all mass is in
// halos and the mass is unbiased: ∫ f dν = ∫ f b dν = 1.
type MassFunction struct {
	a, p, norm float64
	biasNorm   float64

	lnMass []float64
	nuMin  float64
	nuMax  float64
	nuOfM  *spline.LogLog
	mOfNu  *spline.LogLog
	mStar  float64
}

// NewMassFunction samples the mass function of c with the Sheth-Tormen
// parameters of shape.
func NewMassFunction(c *Cosmology, shape config.HaloShape) (*MassFunction, error) {
	if c == nil {
		return nil, fmt.Errorf("testutil: nil cosmology")
	}
	mf := &MassFunction{a: shape.STLittleA, p: shape.STQ, biasNorm: 1}
	mf.norm = 1 / (1 + math.Pow(2, -mf.p)*math.Gamma(0.5-mf.p)/math.SqrtPi)

	mf.lnMass = floats.Span(make([]float64, MassPoints), math.Log(MassMin), math.Log(MassMax))
	mass := make([]float64, MassPoints)
	nu := make([]float64, MassPoints)
	for i, l := range mf.lnMass {
		mass[i] = math.Exp(l)
		sigma, err := c.Sigma(c.LagrangianRadius(mass[i]))
		if err != nil {
			return nil, fmt.Errorf("testutil: sigma(M=%g): %w", mass[i], err)
		}
		nu[i] = (DeltaC / sigma) * (DeltaC / sigma)
	}

	var err error
	if mf.nuOfM, err = spline.FitLogLogLn(mf.lnMass, nu); err != nil {
		return nil, fmt.Errorf("testutil: nu(M): %w", err)
	}
	if mf.mOfNu, err = spline.FitLogLog(nu, mass); err != nil {
		return nil, fmt.Errorf("testutil: M(nu): %w", err)
	}
	mf.nuMin, mf.nuMax = nu[0], nu[MassPoints-1]
	// Clamped to the grid when ν = 1 falls outside it.
	mf.mStar = mf.mOfNu.At(1)

	lo, hi := math.Log(mf.nuMin), math.Log(mf.nuMax)
	mass0, err := background.Integrate(mf.weighted(func(float64) float64 { return 1 }), lo, hi)
	if err != nil {
		return nil, fmt.Errorf("testutil: normalizing f(nu): %w", err)
	}
	mf.norm /= mass0
	bias0, err := background.Integrate(mf.weighted(mf.BiasNu), lo, hi)
	if err != nil {
		return nil, fmt.Errorf("testutil: normalizing b(nu): %w", err)
	}
	mf.biasNorm = 1 / bias0
	return mf, nil
}

// weighted returns the ln ν integrand ν f(ν) g(ν).
func (m *MassFunction) weighted(g func(nu float64) float64) quad.VectorFunc {
	return func(dst, x []float64) {
		for i, l := range x {
			nu := math.Exp(l)
			dst[i] = nu * m.FNu(nu) * g(nu)
		}
	}
}

func (m *MassFunction) Nu(mass float64) float64 { return m.nuOfM.At(mass) }

func (m *MassFunction) Mass(nu float64) float64 { return m.mOfNu.At(nu) }

// FNu is f(ν) with ν f(ν) = A (1 + (aν)^−p) sqrt(aν/2π) exp(−aν/2), A
// fixed by the range normalization.
func (m *MassFunction) FNu(nu float64) float64 {
	an := m.a * nu
	return m.norm * (1 + math.Pow(an, -m.p)) * math.Sqrt(an/(2*math.Pi)) * math.Exp(-an/2) / nu
}

// BiasNu is the peak-background split bias of the Sheth-Tormen function.
func (m *MassFunction) BiasNu(nu float64) float64 {
	an := m.a * nu
	return m.biasNorm * (1 + (an-1)/DeltaC + 2*m.p/(DeltaC*(1+math.Pow(an, m.p))))
}

func (m *MassFunction) NuMin() float64 { return m.nuMin }

func (m *MassFunction) NuMax() float64 { return m.nuMax }

func (m *MassFunction) LnMassMin() float64 { return m.lnMass[0] }

// LnMassGrid returns the sampled ln-mass grid. It must not be modified.
func (m *MassFunction) LnMassGrid() []float64 { return m.lnMass }

func (m *MassFunction) MStar() float64 { return m.mStar }

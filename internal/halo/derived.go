package halo

import (
	"math"

	apperrors "github.com/agbru/halocalc/internal/errors"
	"github.com/agbru/halocalc/internal/quad"
)

// The derived scalars below are single integrals over the full ν range of
// the mass function, normalized by n̄/ρ̄. They are cheap next to the term
// tables and are recomputed on every call.

// weightFunc is the integrand of a derived scalar per unit ln ν.
type weightFunc func(nu, mass float64) float64

// Bias returns the mean linear bias of the galaxies described by the HOD.
func (e *Engine) Bias() (float64, error) {
	return e.hodAverage("bias", func(mf MassFunction, hod HOD) (weightFunc, error) {
		return func(nu, m float64) float64 {
			return nu * hod.FirstMoment(m) * mf.FNu(nu) * mf.BiasNu(nu) / m
		}, nil
	})
}

// EffectiveMass returns the galaxy-weighted mean halo mass [M_sun/h].
func (e *Engine) EffectiveMass() (float64, error) {
	return e.hodAverage("m_eff", func(mf MassFunction, hod HOD) (weightFunc, error) {
		return func(nu, m float64) float64 {
			return nu * hod.FirstMoment(m) * mf.FNu(nu)
		}, nil
	})
}

// SatelliteFraction returns the fraction of galaxies that are satellites.
// The HOD must implement SatelliteHOD.
func (e *Engine) SatelliteFraction() (float64, error) {
	return e.hodAverage("f_sat", func(mf MassFunction, hod HOD) (weightFunc, error) {
		sat, ok := hod.(SatelliteHOD)
		if !ok {
			return nil, apperrors.NewConfigError("satellite fraction requires an HOD with a satellite first moment")
		}
		return func(nu, m float64) float64 {
			return nu * sat.SatelliteFirstMoment(m) * mf.FNu(nu) / m
		}, nil
	})
}

func (e *Engine) hodAverage(name string, weight func(MassFunction, HOD) (weightFunc, error)) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	mf := e.mass
	w, err := weight(mf, e.hod)
	if err != nil {
		return 0, err
	}
	nBar, err := e.nBarLocked()
	if err != nil {
		return 0, err
	}
	integrand := quad.VectorFunc(func(dst, x []float64) {
		for i, l := range x {
			nu := math.Exp(l)
			dst[i] = w(nu, mf.Mass(nu))
		}
	})
	lo, hi := math.Log(mf.NuMin()), math.Log(mf.NuMax())
	v, err := e.integrate(integrand, lo, hi)
	if err != nil {
		return 0, apperrors.WrapError(err, "%s", name)
	}
	return v * e.cosmo.RhoBar() / nBar, nil
}

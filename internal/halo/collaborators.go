package halo

import "github.com/agbru/halocalc/internal/config"

// Cosmology is the background state of one epoch, as produced by a
// CosmologyFactory. The engine only reads it; implementations must be safe
// for concurrent use once built.
type Cosmology interface {
	// Redshift is the epoch the state was built for.
	Redshift() float64
	// H is the dimensionless Hubble constant h.
	H() float64
	// LinearPower is the linear matter power spectrum at the epoch [(Mpc/h)^3],
	// k in h/Mpc.
	LinearPower(k float64) float64
	// ComovingDistance returns the comoving distance to z [Mpc/h].
	ComovingDistance(z float64) float64
	// GrowthFactor returns the linear growth factor at z, normalized to 1 today.
	GrowthFactor(z float64) float64
	// DeltaV is the virial overdensity relative to the mean density.
	DeltaV() float64
	// RhoBar is the mean matter density [h^2 M_sun/Mpc^3].
	RhoBar() float64
	// OmegaM and OmegaL are the matter and dark energy densities at the epoch.
	OmegaM() float64
	OmegaL() float64
	// W is the dark energy equation of state at z.
	W(z float64) float64
}

// MassFunction is a read-only sample of halo abundance and bias in terms of
// the peak height ν. Masses are in M_sun/h.
type MassFunction interface {
	Nu(mass float64) float64
	Mass(nu float64) float64
	// FNu is the mass fraction per unit ν, so that ν f(ν) d ln ν integrates
	// to the mass fraction in halos.
	FNu(nu float64) float64
	BiasNu(nu float64) float64
	NuMin() float64
	NuMax() float64
	LnMassMin() float64
	// LnMassGrid is the increasing ln-mass grid the halo geometry is
	// tabulated on. Callers must not modify it.
	LnMassGrid() []float64
	// MStar is the non-linear mass scale (ν = 1).
	MStar() float64
}

// HOD is a halo occupation distribution.
type HOD interface {
	// FirstMoment is the mean number of galaxies in a halo of the given mass.
	FirstMoment(mass float64) float64
	// SecondMoment is the mean number of galaxy pairs, <N(N-1)>.
	SecondMoment(mass float64) float64
	// FirstMomentZero and SecondMomentZero are masses below which the
	// respective moment vanishes identically, or a non-positive value when
	// there is no such threshold.
	FirstMomentZero() float64
	SecondMomentZero() float64
}

// SatelliteHOD is an HOD that separates satellite galaxies.
type SatelliteHOD interface {
	HOD
	SatelliteFirstMoment(mass float64) float64
}

// CosmologyFactory builds the background state for a parameter set at z.
type CosmologyFactory func(params config.Cosmology, z float64) (Cosmology, error)

// MassFunctionFactory samples the mass function for a cosmology and halo
// shape.
type MassFunctionFactory func(cosmo Cosmology, shape config.HaloShape) (MassFunction, error)

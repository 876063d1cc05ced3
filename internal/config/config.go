// Package config provides the configuration values of the halo-model engine:
// the numerical precision knobs, the cosmological parameter set and the halo
// shape parameters. Every value is an immutable struct passed at construction
// time; defaults are documented constants, and Validate reports any field that
// is missing or outside its domain as an apperrors.ConfigError.
package config

import (
	"math"

	apperrors "github.com/agbru/halocalc/internal/errors"
)

const (
	// EnvPrefix is the prefix for all environment variables read by halocalc.
	EnvPrefix = "HALOCALC_"
)

// Default precision values.
// These can be overridden through a configuration file or environment variables.
const (
	// DefaultKPoints is the number of log-spaced wavenumbers of every term spline.
	DefaultKPoints = 50
	// DefaultKMin is the lower edge of the wavenumber domain [h/Mpc].
	DefaultKMin = 1.0e-3
	// DefaultKMax is the upper edge of the wavenumber domain [h/Mpc].
	DefaultKMax = 1.0e2
	// DefaultAbsTol is the absolute quadrature tolerance. It is tiny on
	// purpose: integrands span many decades, so convergence is driven by the
	// relative tolerance.
	DefaultAbsTol = 1.48e-32
	// DefaultRelTol is the relative quadrature tolerance. Its value is set by
	// the HOD integrals; matter-only work tolerates a tighter setting.
	DefaultRelTol = 1.48e-5
	// DefaultMaxDepth is the maximum number of Romberg refinement levels.
	DefaultMaxDepth = 20
	// DefaultSigmaPoints is the number of smoothing radii used to locate the
	// non-linear scale of the empirical fit.
	DefaultSigmaPoints = 50
	// DefaultWorkers is the number of goroutines computing the wavenumber
	// integrals of one term rebuild.
	DefaultWorkers = 1
)

// DeltaVFromCosmology selects the redshift-dependent virial overdensity of the
// cosmology collaborator instead of a fixed HaloShape.DeltaV.
const DeltaVFromCosmology = -1.0

// NFWAlpha is the inner slope of the NFW profile, the only profile with an
// analytic Fourier transform supported by the engine.
const NFWAlpha = -1.0

// Precision groups the numerical knobs of the engine.
type Precision struct {
	// KPoints is the number of wavenumbers tabulated per term.
	KPoints int `yaml:"k_points"`
	// KMin and KMax bound the wavenumber domain; power spectra are zero outside.
	KMin float64 `yaml:"k_min"`
	KMax float64 `yaml:"k_max"`
	// AbsTol and RelTol are the Romberg convergence tolerances.
	AbsTol float64 `yaml:"abs_tol"`
	RelTol float64 `yaml:"rel_tol"`
	// MaxDepth bounds the number of Romberg refinements before failing.
	MaxDepth int `yaml:"max_depth"`
	// SigmaPoints is the size of the smoothing-radius grid of the empirical fit.
	SigmaPoints int `yaml:"sigma_points"`
	// Workers bounds the goroutines used by a term rebuild.
	Workers int `yaml:"workers"`
}

// DefaultPrecision returns the default precision configuration.
func DefaultPrecision() Precision {
	return Precision{
		KPoints:     DefaultKPoints,
		KMin:        DefaultKMin,
		KMax:        DefaultKMax,
		AbsTol:      DefaultAbsTol,
		RelTol:      DefaultRelTol,
		MaxDepth:    DefaultMaxDepth,
		SigmaPoints: DefaultSigmaPoints,
		Workers:     DefaultWorkers,
	}
}

// Validate checks that every precision knob is inside its domain.
//
// Returns:
//   - error: A ConfigError naming the first invalid field, nil otherwise.
func (p Precision) Validate() error {
	switch {
	case p.KPoints < 4:
		return invalid("precision", "k_points", "at least 4 points are needed for a cubic spline", p.KPoints)
	case !(p.KMin > 0) || math.IsInf(p.KMin, 0):
		return invalid("precision", "k_min", "must be positive and finite", p.KMin)
	case !(p.KMax > p.KMin) || math.IsInf(p.KMax, 0):
		return invalid("precision", "k_max", "must be finite and greater than k_min", p.KMax)
	case !(p.AbsTol >= 0):
		return invalid("precision", "abs_tol", "cannot be negative", p.AbsTol)
	case !(p.RelTol > 0) || p.RelTol >= 1:
		return invalid("precision", "rel_tol", "must be in (0, 1)", p.RelTol)
	case p.MaxDepth < 1 || p.MaxDepth > 30:
		return invalid("precision", "max_depth", "must be between 1 and 30", p.MaxDepth)
	case p.SigmaPoints < 4:
		return invalid("precision", "sigma_points", "at least 4 points are needed for a cubic spline", p.SigmaPoints)
	case p.Workers < 1:
		return invalid("precision", "workers", "must be at least 1", p.Workers)
	}
	return nil
}

// Cosmology is the parameter set handed to the cosmology collaborator.
type Cosmology struct {
	// OmegaM0 is the total matter density at z=0.
	OmegaM0 float64 `yaml:"omega_m0"`
	// OmegaB0 is the baryon density at z=0.
	OmegaB0 float64 `yaml:"omega_b0"`
	// OmegaL0 is the dark energy density at z=0.
	OmegaL0 float64 `yaml:"omega_l0"`
	// OmegaR0 is the radiation density at z=0.
	OmegaR0 float64 `yaml:"omega_r0"`
	// CMBTemp is the CMB temperature in K at z=0.
	CMBTemp float64 `yaml:"cmb_temp"`
	// H is the Hubble constant in units of 100 km/s/Mpc.
	H float64 `yaml:"h"`
	// Sigma8 is the rms linear overdensity in spheres of 8 Mpc/h.
	Sigma8 float64 `yaml:"sigma_8"`
	// NScalar is the primordial spectral index.
	NScalar float64 `yaml:"n_scalar"`
	// W0 and WA parametrize the dark energy equation of state w(a) = w0 + wa(1-a).
	W0 float64 `yaml:"w0"`
	WA float64 `yaml:"wa"`
}

// DefaultCosmology returns the reference flat cosmology.
func DefaultCosmology() Cosmology {
	omegaR0 := 4.15e-5 / (0.7 * 0.7)
	return Cosmology{
		OmegaM0: 0.3 - omegaR0,
		OmegaB0: 0.046,
		OmegaL0: 0.7,
		OmegaR0: omegaR0,
		CMBTemp: 2.726,
		H:       0.7,
		Sigma8:  0.8,
		NScalar: 0.960,
		W0:      -1.0,
		WA:      0.0,
	}
}

// Validate checks the physical domain of each cosmological parameter.
func (c Cosmology) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"omega_m0", c.OmegaM0}, {"omega_b0", c.OmegaB0}, {"omega_l0", c.OmegaL0},
		{"omega_r0", c.OmegaR0}, {"cmb_temp", c.CMBTemp}, {"h", c.H},
		{"sigma_8", c.Sigma8}, {"n_scalar", c.NScalar}, {"w0", c.W0}, {"wa", c.WA},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalid("cosmology", f.name, "must be finite", f.value)
		}
	}
	switch {
	case c.OmegaM0 <= 0:
		return invalid("cosmology", "omega_m0", "matter density must be positive", c.OmegaM0)
	case c.OmegaB0 < 0 || c.OmegaB0 > c.OmegaM0:
		return invalid("cosmology", "omega_b0", "must be in [0, omega_m0]", c.OmegaB0)
	case c.OmegaL0 < 0:
		return invalid("cosmology", "omega_l0", "cannot be negative", c.OmegaL0)
	case c.OmegaR0 < 0:
		return invalid("cosmology", "omega_r0", "cannot be negative", c.OmegaR0)
	case c.CMBTemp <= 0:
		return invalid("cosmology", "cmb_temp", "must be positive", c.CMBTemp)
	case c.H <= 0:
		return invalid("cosmology", "h", "must be positive", c.H)
	case c.Sigma8 <= 0:
		return invalid("cosmology", "sigma_8", "must be positive", c.Sigma8)
	}
	return nil
}

// HaloShape holds the halo profile and mass-function shape parameters.
type HaloShape struct {
	// STQ and STLittleA are the Sheth-Tormen p and a parameters read by the
	// mass-function collaborator.
	STQ       float64 `yaml:"stq"`
	STLittleA float64 `yaml:"st_little_a"`
	// C0 is the concentration normalization at z=0; the engine uses C0/(1+z).
	C0 float64 `yaml:"c0"`
	// Beta is the concentration mass-scaling exponent.
	Beta float64 `yaml:"beta"`
	// Alpha is the profile inner slope; only the NFW value -1 is supported.
	Alpha float64 `yaml:"alpha"`
	// DeltaV is the halo overdensity relative to the mean density, or
	// DeltaVFromCosmology for the redshift-dependent definition.
	DeltaV float64 `yaml:"delta_v"`
}

// DefaultHaloShape returns the reference halo parameters (Bullock et al.
// concentrations with a Sheth-Tormen mass function).
func DefaultHaloShape() HaloShape {
	return HaloShape{
		STQ:       0.3,
		STLittleA: 0.707,
		C0:        9.0,
		Beta:      -0.13,
		Alpha:     NFWAlpha,
		DeltaV:    DeltaVFromCosmology,
	}
}

// Validate checks the halo shape parameters.
func (h HaloShape) Validate() error {
	for _, f := range []struct {
		name  string
		value float64
	}{
		{"stq", h.STQ}, {"st_little_a", h.STLittleA}, {"c0", h.C0},
		{"beta", h.Beta}, {"alpha", h.Alpha}, {"delta_v", h.DeltaV},
	} {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) {
			return invalid("halo", f.name, "must be finite", f.value)
		}
	}
	switch {
	case h.C0 <= 0:
		return invalid("halo", "c0", "concentration normalization must be positive", h.C0)
	case h.Alpha != NFWAlpha:
		return invalid("halo", "alpha", "only the NFW slope -1 is supported", h.Alpha)
	case h.DeltaV != DeltaVFromCosmology && h.DeltaV <= 0:
		return invalid("halo", "delta_v", "must be positive or -1 for the cosmology default", h.DeltaV)
	case h.STQ < 0 || h.STQ >= 0.5:
		return invalid("halo", "stq", "must be in [0, 0.5)", h.STQ)
	case h.STLittleA <= 0:
		return invalid("halo", "st_little_a", "must be positive", h.STLittleA)
	}
	return nil
}

// invalid builds the ConfigError returned by the Validate methods.
func invalid(section, field, message string, value any) error {
	return apperrors.AsConfigError(apperrors.NewValidationError(section+"."+field, message, value))
}

// Package testutil provides reference implementations of the halo-model
// collaborators: a ΛCDM/w0-wa background with a BBKS linear spectrum, a
// Sheth-Tormen mass function and the Zheng et al. occupation model. They are
// accurate enough to exercise the engine end to end in tests and to produce
// golden tables, and are not meant as precision cosmology.
//
// The types satisfy the halo collaborator interfaces structurally; this
// package does not import halo, so halo's own tests can use it.
package testutil

import (
	"fmt"
	"math"

	"github.com/agbru/halocalc/internal/config"
	"github.com/agbru/halocalc/internal/quad"
	"github.com/agbru/halocalc/internal/specfunc"
)

const (
	// hubbleDistance is c/H0 in Mpc/h.
	hubbleDistance = 2997.92458
	// criticalDensity is 3H0²/8πG in h² M_sun/Mpc³.
	criticalDensity = 2.77536627e11
	// sigmaRadius is the radius of the σ8 normalization sphere [Mpc/h].
	sigmaRadius = 8.0
	// sigmaLnKMin is the lower ln k bound of the variance integrals.
	sigmaLnKMin = -9.21 // ln 1e-4
)

// background is the quadrature used by the distance and variance integrals.
var background = quad.Romberg{AbsTol: 0, RelTol: 1e-7, MaxDepth: 24}

// Cosmology is the background state of one epoch.
type Cosmology struct {
	params    config.Cosmology
	z         float64
	omegaK    float64
	gamma     float64
	amplitude float64
	growth    float64
}

// NewCosmology builds the state for p at redshift z. The primordial
// amplitude is fixed by p.Sigma8 at z = 0.
func NewCosmology(p config.Cosmology, z float64) (*Cosmology, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if math.IsNaN(z) || z < 0 {
		return nil, fmt.Errorf("testutil: invalid redshift %g", z)
	}
	c := &Cosmology{
		params:    p,
		z:         z,
		omegaK:    1 - p.OmegaM0 - p.OmegaL0 - p.OmegaR0,
		amplitude: 1,
		growth:    1,
	}
	// Sugiyama (1995) shape parameter.
	c.gamma = p.OmegaM0 * p.H * math.Exp(-p.OmegaB0-math.Sqrt(2*p.H)*p.OmegaB0/p.OmegaM0)

	unit, err := c.sigma2(sigmaRadius)
	if err != nil {
		return nil, fmt.Errorf("testutil: normalizing to sigma_8: %w", err)
	}
	c.amplitude = p.Sigma8 * p.Sigma8 / unit
	c.growth = c.GrowthFactor(z)
	return c, nil
}

// Params returns the parameter set the state was built from.
func (c *Cosmology) Params() config.Cosmology { return c.params }

func (c *Cosmology) Redshift() float64 { return c.z }

func (c *Cosmology) H() float64 { return c.params.H }

// darkEnergy is ρ_DE(z)/ρ_DE(0) for w(a) = w0 + wa(1−a).
func (c *Cosmology) darkEnergy(z float64) float64 {
	w0, wa := c.params.W0, c.params.WA
	return math.Pow(1+z, 3*(1+w0+wa)) * math.Exp(-3*wa*z/(1+z))
}

// E is H(z)/H0.
func (c *Cosmology) E(z float64) float64 {
	a := 1 + z
	p := c.params
	return math.Sqrt(p.OmegaR0*a*a*a*a + p.OmegaM0*a*a*a + c.omegaK*a*a + p.OmegaL0*c.darkEnergy(z))
}

func (c *Cosmology) omegaMAt(z float64) float64 {
	a, e := 1+z, c.E(z)
	return c.params.OmegaM0 * a * a * a / (e * e)
}

func (c *Cosmology) omegaLAt(z float64) float64 {
	e := c.E(z)
	return c.params.OmegaL0 * c.darkEnergy(z) / (e * e)
}

// OmegaM is the matter density at the epoch.
func (c *Cosmology) OmegaM() float64 { return c.omegaMAt(c.z) }

// OmegaL is the dark energy density at the epoch.
func (c *Cosmology) OmegaL() float64 { return c.omegaLAt(c.z) }

// W is the dark energy equation of state at z.
func (c *Cosmology) W(z float64) float64 {
	return c.params.W0 + c.params.WA*z/(1+z)
}

// RhoBar is the comoving mean matter density [h² M_sun/Mpc³].
func (c *Cosmology) RhoBar() float64 { return criticalDensity * c.params.OmegaM0 }

// DeltaV is the Bryan & Norman (1998) virial overdensity, converted from
// critical to mean density.
func (c *Cosmology) DeltaV() float64 {
	om := c.OmegaM()
	x := om - 1
	return (18*math.Pi*math.Pi + 82*x - 39*x*x) / om
}

// ComovingDistance returns the line-of-sight comoving distance to z
// [Mpc/h], or NaN if the integral does not converge.
func (c *Cosmology) ComovingDistance(z float64) float64 {
	v, err := background.Integrate(func(dst, x []float64) {
		for i, zz := range x {
			dst[i] = 1 / c.E(zz)
		}
	}, 0, z)
	if err != nil {
		return math.NaN()
	}
	return hubbleDistance * v
}

// growthCPT is the Carroll, Press & Turner (1992) growth suppression.
func (c *Cosmology) growthCPT(z float64) float64 {
	om, ol := c.omegaMAt(z), c.omegaLAt(z)
	return 2.5 * om / (math.Pow(om, 4.0/7) - ol + (1+om/2)*(1+ol/70))
}

// GrowthFactor returns D(z)/D(0).
func (c *Cosmology) GrowthFactor(z float64) float64 {
	return c.growthCPT(z) / (c.growthCPT(0) * (1 + z))
}

// transfer is the BBKS (1986) transfer function, k in h/Mpc.
func (c *Cosmology) transfer(k float64) float64 {
	q := k / c.gamma
	if q == 0 {
		return 1
	}
	x := 2.34 * q
	poly := 1 + 3.89*q + math.Pow(16.1*q, 2) + math.Pow(5.46*q, 3) + math.Pow(6.71*q, 4)
	return math.Log1p(x) / x * math.Pow(poly, -0.25)
}

// LinearPower is the linear matter power spectrum at the epoch.
func (c *Cosmology) LinearPower(k float64) float64 {
	if !(k > 0) {
		return 0
	}
	t := c.transfer(k)
	return c.amplitude * math.Pow(k, c.params.NScalar) * t * t * c.growth * c.growth
}

// sigma2 is the variance of the linear field in top-hat spheres of radius
// r [Mpc/h] at the epoch.
func (c *Cosmology) sigma2(r float64) (float64, error) {
	hi := math.Log(200 / r)
	integrand := func(dst, x []float64) {
		for i, l := range x {
			k := math.Exp(l)
			w := specfunc.TopHat(k * r)
			dst[i] = k * k * k * c.LinearPower(k) * w * w / (2 * math.Pi * math.Pi)
		}
	}
	return background.Integrate(integrand, sigmaLnKMin, hi)
}

// Sigma returns the rms linear overdensity in top-hat spheres of radius r.
func (c *Cosmology) Sigma(r float64) (float64, error) {
	if !(r > 0) {
		return 0, fmt.Errorf("testutil: smoothing radius must be positive, got %g", r)
	}
	v, err := c.sigma2(r)
	if err != nil {
		return 0, err
	}
	return math.Sqrt(v), nil
}

// LagrangianRadius is the radius of the sphere enclosing mass [M_sun/h] at
// the mean density.
func (c *Cosmology) LagrangianRadius(mass float64) float64 {
	return math.Cbrt(3 * mass / (4 * math.Pi * c.RhoBar()))
}

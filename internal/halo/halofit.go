package halo

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	apperrors "github.com/agbru/halocalc/internal/errors"
	"github.com/agbru/halocalc/internal/quad"
	"github.com/agbru/halocalc/internal/spline"
)

// Smoothing radii [Mpc/h] scanned for the non-linear scale.
const (
	sigmaRadiusMin = 0.1
	sigmaRadiusMax = 10.0
)

// EmpiricalFit replaces the halo-model matter spectrum with the halofit
// formula of Smith et al. (2003) as revised by Takahashi et al. (2012). The
// galaxy terms are the halo-model ones with the fitted spectrum as their
// 2-halo factor.
type EmpiricalFit struct {
	e *Engine
}

// NewEmpiricalFit returns the halofit model over e.
func NewEmpiricalFit(e *Engine) *EmpiricalFit { return &EmpiricalFit{e: e} }

// Name implements Model.
func (f *EmpiricalFit) Name() string { return NameHalofit }

// Engine implements Model.
func (f *EmpiricalFit) Engine() *Engine { return f.e }

// LinearPower implements Model.
func (f *EmpiricalFit) LinearPower(k []float64) []float64 { return f.e.LinearPower(k) }

// PowerMM implements Model.
func (f *EmpiricalFit) PowerMM(k []float64) ([]float64, error) {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	return f.e.fittedPowerMM(k)
}

// PowerGM implements Model.
func (f *EmpiricalFit) PowerGM(k []float64) ([]float64, error) {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	mm, err := f.e.fittedPowerMM(k)
	if err != nil {
		return nil, err
	}
	return f.e.galaxyMatterPower(k, mm, termHG)
}

// PowerMG implements Model.
func (f *EmpiricalFit) PowerMG(k []float64) ([]float64, error) { return f.PowerGM(k) }

// PowerGG implements Model.
func (f *EmpiricalFit) PowerGG(k []float64) ([]float64, error) {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	mm, err := f.e.fittedPowerMM(k)
	if err != nil {
		return nil, err
	}
	return f.e.galaxyPower(k, mm, termHG)
}

// Clone implements Model.
func (f *EmpiricalFit) Clone() Model { return NewEmpiricalFit(f.e.Clone()) }

// NonLinearScale returns the halofit inputs: the non-linear wavenumber
// k_σ [h/Mpc], the effective spectral index n_eff and the curvature C.
func (f *EmpiricalFit) NonLinearScale() (kSigma, nEff, curvature float64, err error) {
	f.e.mu.Lock()
	defer f.e.mu.Unlock()
	c, err := f.e.fitLocked()
	if err != nil {
		return 0, 0, 0, err
	}
	return c.kSigma, c.nEff, c.curvature, nil
}

// fitCoefficients are the halofit parameters of one cosmology and epoch.
type fitCoefficients struct {
	kSigma, nEff, curvature float64

	an, bn, cn         float64
	gamma, alpha, beta float64
	mu, nu             float64
	f1, f2, f3         float64
	kMin, kMax         float64
}

func deltaSquared(k, pLin float64) float64 {
	return k * k * k * pLin / (2 * math.Pi * math.Pi)
}

// power is the halofit matter spectrum at k given P_lin(k).
func (c *fitCoefficients) power(k, pLin float64) float64 {
	if !(k >= c.kMin && k <= c.kMax) {
		return 0
	}
	d2 := deltaSquared(k, pLin)
	y := k / c.kSigma

	quasiLinear := d2 * math.Pow(1+d2, c.beta) / (1 + c.alpha*d2) * math.Exp(-(y/4 + y*y/8))

	haloPrime := c.an * math.Pow(y, 3*c.f1) /
		(1 + c.bn*math.Pow(y, c.f2) + math.Pow(c.cn*c.f3*y, 3-c.gamma))
	halo := haloPrime / (1 + c.mu/y + c.nu/(y*y))

	return 2 * math.Pi * math.Pi / (k * k * k) * (quasiLinear + halo)
}

// fittedPowerMM evaluates the halofit spectrum. The caller holds e.mu.
func (e *Engine) fittedPowerMM(k []float64) ([]float64, error) {
	c, err := e.fitLocked()
	if err != nil {
		return nil, err
	}
	out := e.linearPower(k)
	for i, v := range k {
		out[i] = c.power(v, out[i])
	}
	return out, nil
}

func (e *Engine) fitLocked() (*fitCoefficients, error) {
	if e.fit.ready() {
		return e.fit.value, nil
	}
	var c *fitCoefficients
	err := e.rebuild("halofit", e.prec.SigmaPoints, func() error {
		var err error
		c, err = e.buildFit()
		return err
	})
	if err != nil {
		return nil, err
	}
	e.fit.set(c)
	return c, nil
}

// sigma2 returns ln σ²(R) for Gaussian smoothing over each radius of lnR.
func (e *Engine) sigma2(lnR []float64) ([]float64, error) {
	cosmo := e.cosmo
	lo, hi := math.Log(e.prec.KMin), math.Log(e.prec.KMax)
	scan := floats.Span(make([]float64, peakScanPoints), lo, hi)

	lnSigma2 := make([]float64, len(lnR))
	g, ctx := errgroup.WithContext(context.Background())
	g.SetLimit(e.prec.Workers)
	for i, l := range lnR {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			r := math.Exp(l)
			integrand := func(dst, x []float64) {
				for j, lk := range x {
					k := math.Exp(lk)
					dst[j] = deltaSquared(k, cosmo.LinearPower(k)) * math.Exp(-k*k*r*r)
				}
			}
			v, err := quad.Normalized(e.romberg, integrand, lo, hi, scan)
			if err != nil {
				return fmt.Errorf("sigma^2 at R=%g: %w", r, err)
			}
			if !(v > 0) {
				return apperrors.NewConfigError("non-positive variance %g at R=%g", v, r)
			}
			lnSigma2[i] = math.Log(v)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return lnSigma2, nil
}

func (e *Engine) buildFit() (*fitCoefficients, error) {
	lnR := floats.Span(make([]float64, e.prec.SigmaPoints), math.Log(sigmaRadiusMin), math.Log(sigmaRadiusMax))
	lnSigma2, err := e.sigma2(lnR)
	if err != nil {
		return nil, err
	}

	// σ² falls with R, so the inverse relation is fitted on reversed arrays.
	n := len(lnR)
	revS, revR := make([]float64, n), make([]float64, n)
	for i := range lnR {
		revS[i] = lnSigma2[n-1-i]
		revR[i] = lnR[n-1-i]
	}
	inverse, err := spline.FitCurve(revS, revR)
	if err != nil {
		return nil, apperrors.WrapError(err, "inverting sigma^2(R)")
	}
	if lo, hi := inverse.Domain(); lo > 0 || hi < 0 {
		return nil, apperrors.NewConfigError(
			"sigma(R) never crosses 1 for R in [%g, %g] Mpc/h (ln sigma^2 in [%.3g, %.3g])",
			sigmaRadiusMin, sigmaRadiusMax, lo, hi)
	}
	lnRStar := inverse.At(0)

	forward, err := spline.FitCurve(lnR, lnSigma2)
	if err != nil {
		return nil, apperrors.WrapError(err, "fitting sigma^2(R)")
	}
	const h = 1e-4
	d1 := forward.Derivative(lnRStar)
	d2 := (forward.Derivative(lnRStar+h) - forward.Derivative(lnRStar-h)) / (2 * h)

	n0 := -d1 - 3
	curv := -d2
	omegaM := e.cosmo.OmegaM()
	darkEnergy := e.cosmo.OmegaL() * (1 + e.cosmo.W(e.redshift))

	n2, n3 := n0*n0, n0*n0*n0
	n4 := n2 * n2
	return &fitCoefficients{
		kSigma:    math.Exp(-lnRStar),
		nEff:      n0,
		curvature: curv,

		an:    math.Pow(10, 1.5222+2.8553*n0+2.3706*n2+0.9903*n3+0.2250*n4-0.6038*curv+0.1749*darkEnergy),
		bn:    math.Pow(10, -0.5642+0.5864*n0+0.5716*n2-1.5474*curv+0.2279*darkEnergy),
		cn:    math.Pow(10, 0.3698+2.0404*n0+0.8161*n2+0.5869*curv),
		gamma: 0.1971 - 0.0843*n0 + 0.8460*curv,
		alpha: math.Abs(6.0835 + 1.3373*n0 - 0.1959*n2 - 5.5274*curv),
		beta:  2.0379 - 0.7354*n0 + 0.3157*n2 + 1.2490*n3 + 0.3980*n4 - 0.1682*curv,
		mu:    0,
		nu:    math.Pow(10, 5.2105+3.6902*n0),

		f1: math.Pow(omegaM, -0.0307),
		f2: math.Pow(omegaM, -0.0585),
		f3: math.Pow(omegaM, 0.0743),

		kMin: e.prec.KMin,
		kMax: e.prec.KMax,
	}, nil
}

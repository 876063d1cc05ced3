package halo

import (
	"math"

	"github.com/agbru/halocalc/internal/config"
	apperrors "github.com/agbru/halocalc/internal/errors"
	"github.com/agbru/halocalc/internal/specfunc"
	"github.com/agbru/halocalc/internal/spline"
)

// geometry holds the mass-dependent halo properties as log-log splines over
// the mass-function grid.
type geometry struct {
	concentration *spline.LogLog
	virialRadius  *spline.LogLog
	normalization *spline.LogLog
}

// haloParams are the scalars the geometry is computed from.
type haloParams struct {
	c0, beta, alpha float64
	deltaV, rhoBar  float64
	mStar           float64
}

func (e *Engine) haloParams() (haloParams, error) {
	p := haloParams{
		c0:     e.shape.C0 / (1 + e.redshift),
		beta:   e.shape.Beta,
		alpha:  config.NFWAlpha,
		deltaV: e.shape.DeltaV,
		rhoBar: e.cosmo.RhoBar(),
		mStar:  e.mass.MStar(),
	}
	if p.deltaV <= 0 {
		p.deltaV = e.cosmo.DeltaV()
	}
	switch {
	case !(p.deltaV > 0) || math.IsInf(p.deltaV, 0):
		return p, apperrors.NewConfigError("virial overdensity must be positive, got %g", p.deltaV)
	case !(p.rhoBar > 0) || math.IsInf(p.rhoBar, 0):
		return p, apperrors.NewConfigError("mean density must be positive, got %g", p.rhoBar)
	case !(p.mStar > 0) || math.IsInf(p.mStar, 0):
		return p, apperrors.NewConfigError("non-linear mass must be positive, got %g", p.mStar)
	}
	return p, nil
}

func (p haloParams) concentration(mass float64) float64 {
	return p.c0 * math.Pow(mass/p.mStar, p.beta)
}

// virialRadius solves M = 4/3 π Δv ρ̄ r³.
func (p haloParams) virialRadius(mass float64) float64 {
	return math.Cbrt(3 * mass / (4 * math.Pi * p.deltaV * p.rhoBar))
}

// normalization is ρ_s divided by the profile integral
// ∫₀ᶜ x^(2+α)/(1+x)^(3+α) dx = c^(3+α) ₂F₁(3+α, 3+α; 4+α; −c)/(3+α).
func (p haloParams) normalization(mass float64) float64 {
	con := p.concentration(mass)
	rhoS := p.rhoBar * p.deltaV * con * con * con / 3
	s := 3 + p.alpha
	integral := math.Pow(con, s) * specfunc.Hyp2F1(s, s, s+1, -con) / s
	return rhoS / integral
}

func (e *Engine) buildGeometry() (*geometry, error) {
	p, err := e.haloParams()
	if err != nil {
		return nil, err
	}
	lnM := e.mass.LnMassGrid()
	con := make([]float64, len(lnM))
	rv := make([]float64, len(lnM))
	norm := make([]float64, len(lnM))
	for i, l := range lnM {
		m := math.Exp(l)
		con[i] = p.concentration(m)
		rv[i] = p.virialRadius(m)
		norm[i] = p.normalization(m)
	}

	g := &geometry{}
	if g.concentration, err = spline.FitLogLogLn(lnM, con); err != nil {
		return nil, apperrors.WrapError(err, "concentration")
	}
	if g.virialRadius, err = spline.FitLogLogLn(lnM, rv); err != nil {
		return nil, apperrors.WrapError(err, "virial radius")
	}
	if g.normalization, err = spline.FitLogLogLn(lnM, norm); err != nil {
		return nil, apperrors.WrapError(err, "halo normalization")
	}
	return g, nil
}

// geometryLocked returns the geometry, rebuilding it if needed.
func (e *Engine) geometryLocked() (*geometry, error) {
	if e.geom.ready() {
		return e.geom.value, nil
	}
	var g *geometry
	err := e.rebuild("geometry", len(e.mass.LnMassGrid()), func() error {
		var err error
		g, err = e.buildGeometry()
		return err
	})
	if err != nil {
		return nil, err
	}
	e.geom.set(g)
	return g, nil
}

// profile is the NFW Fourier transform y(k, M). The wavenumber entering the
// transform is exp(lnK)/h.
func (g *geometry) profile(lnK, h, mass float64) float64 {
	k := math.Exp(lnK) / h
	con := g.concentration.At(mass)
	conPlus := 1 + con
	z := k * g.virialRadius.At(mass) / con
	siZ, ciZ := specfunc.Sici(z)
	siCZ, ciCZ := specfunc.Sici(conPlus * z)
	sz, cz := math.Sincos(z)
	rhoKM := cz*(ciCZ-ciZ) + sz*(siCZ-siZ) - math.Sin(con*z)/(conPlus*z)
	massK := math.Log(conPlus) - con/conPlus
	return rhoKM / massK
}

// Concentration returns the halo concentration at mass [M_sun/h].
func (e *Engine) Concentration(mass float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.geometryLocked()
	if err != nil {
		return 0, err
	}
	return g.concentration.At(mass), nil
}

// VirialRadius returns the halo virial radius [Mpc/h] at mass [M_sun/h].
func (e *Engine) VirialRadius(mass float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.geometryLocked()
	if err != nil {
		return 0, err
	}
	return g.virialRadius.At(mass), nil
}

// HaloNormalization returns the profile normalization [h^2 M_sun/Mpc^3] at
// mass [M_sun/h].
func (e *Engine) HaloNormalization(mass float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.geometryLocked()
	if err != nil {
		return 0, err
	}
	return g.normalization.At(mass), nil
}

// ProfileFT returns the Fourier transform of the NFW profile of a halo of
// the given mass at ln k. ln k must be finite so that the scale argument is
// non-zero.
func (e *Engine) ProfileFT(lnK, mass float64) (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.geometryLocked()
	if err != nil {
		return 0, err
	}
	return g.profile(lnK, e.cosmo.H(), mass), nil
}

// Package halo implements the halo-model power-spectrum engine.
//
// An Engine owns the cached ingredients shared by every strategy: the halo
// geometry splines, the five wavenumber-dependent halo integrals and the mean
// galaxy density. Each cache slot is built on first read and is invalidated
// selectively by the mutators (SetCosmology, SetHalo, SetHOD, SetRedshift).
// The strategies (Standard, Exclusion, EmpiricalFit) combine those slots into
// the matter, galaxy-matter and galaxy power spectra behind the Model
// interface.
//
// All cache state of an Engine is guarded by one mutex: a reader of a stale
// slot blocks until the rebuild completes and mutators never interleave with a
// rebuild. Engines obtained from Clone share the immutable collaborators but
// own fresh caches, so clones can be evaluated in parallel.
package halo

import (
	"math"
	"sync"

	"gonum.org/v1/gonum/floats"

	"github.com/agbru/halocalc/internal/config"
	apperrors "github.com/agbru/halocalc/internal/errors"
	"github.com/agbru/halocalc/internal/logging"
	"github.com/agbru/halocalc/internal/quad"
	"github.com/agbru/halocalc/internal/spline"
)

// Setup gathers everything an Engine is constructed from.
type Setup struct {
	Cosmology config.Cosmology
	Redshift  float64
	Halo      config.HaloShape
	HOD       HOD
	Precision config.Precision

	NewCosmology    CosmologyFactory
	NewMassFunction MassFunctionFactory
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for cache rebuild events.
func WithLogger(l logging.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

// state is the lifecycle of one cache slot.
type state uint8

const (
	uninitialized state = iota
	valid
	invalid
)

func (s state) String() string {
	switch s {
	case uninitialized:
		return "uninitialized"
	case valid:
		return "valid"
	case invalid:
		return "invalid"
	}
	return "unknown"
}

// slot holds one cached value and its state.
type slot[T any] struct {
	value T
	state state
}

func (s *slot[T]) ready() bool { return s.state == valid }

func (s *slot[T]) set(v T) {
	s.value = v
	s.state = valid
}

func (s *slot[T]) invalidate() {
	var zero T
	s.value = zero
	if s.state == valid {
		s.state = invalid
	}
}

// termID names the wavenumber-dependent halo integrals.
type termID int

const (
	termHM termID = iota
	termPPMM
	termHG
	termPPGM
	termPPGG
	// termHGExclusion is h_g with the halo-exclusion window applied.
	termHGExclusion
	numTerms
)

var termNames = [numTerms]string{"h_m", "pp_mm", "h_g", "pp_gm", "pp_gg", "h_g_exclusion"}

func (t termID) String() string { return termNames[t] }

// galaxyTerms are the slots that depend on the HOD.
var galaxyTerms = []termID{termHG, termPPGM, termPPGG, termHGExclusion}

// Engine is the shared term-cache substrate of the power-spectrum models.
type Engine struct {
	mu sync.Mutex

	params   config.Cosmology
	redshift float64
	shape    config.HaloShape
	hod      HOD
	prec     config.Precision

	newCosmology    CosmologyFactory
	newMassFunction MassFunctionFactory

	cosmo Cosmology
	mass  MassFunction

	romberg quad.Romberg
	lnK     []float64
	k       []float64

	geom  slot[*geometry]
	nBar  slot[float64]
	terms [numTerms]slot[*spline.Term]
	fit   slot[*fitCoefficients]

	log logging.Logger
}

// NewEngine validates s, builds the cosmology and mass function through the
// factories and returns an engine whose caches are all uninitialized.
func NewEngine(s Setup, opts ...Option) (*Engine, error) {
	if err := s.Precision.Validate(); err != nil {
		return nil, err
	}
	if err := s.Cosmology.Validate(); err != nil {
		return nil, err
	}
	if err := s.Halo.Validate(); err != nil {
		return nil, err
	}
	if err := validateRedshift(s.Redshift); err != nil {
		return nil, err
	}
	if s.HOD == nil {
		return nil, apperrors.NewConfigError("an HOD is required")
	}
	if s.NewCosmology == nil || s.NewMassFunction == nil {
		return nil, apperrors.NewConfigError("cosmology and mass function factories are required")
	}

	e := &Engine{
		params:          s.Cosmology,
		redshift:        s.Redshift,
		shape:           s.Halo,
		hod:             s.HOD,
		prec:            s.Precision,
		newCosmology:    s.NewCosmology,
		newMassFunction: s.NewMassFunction,
		log:             logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.initGrid()

	cosmo, mass, err := e.collaborators(s.Cosmology, s.Redshift, s.Halo)
	if err != nil {
		return nil, err
	}
	e.cosmo, e.mass = cosmo, mass
	return e, nil
}

func (e *Engine) initGrid() {
	n := e.prec.KPoints
	e.lnK = floats.Span(make([]float64, n), math.Log(e.prec.KMin), math.Log(e.prec.KMax))
	e.k = make([]float64, n)
	for i, v := range e.lnK {
		e.k[i] = math.Exp(v)
	}
	// The domain edges must be exactly the configured bounds.
	e.k[0], e.k[n-1] = e.prec.KMin, e.prec.KMax
	e.romberg = quad.Romberg{AbsTol: e.prec.AbsTol, RelTol: e.prec.RelTol, MaxDepth: e.prec.MaxDepth}
}

// collaborators builds the cosmology at z and the matching mass function.
func (e *Engine) collaborators(p config.Cosmology, z float64, shape config.HaloShape) (Cosmology, MassFunction, error) {
	cosmo, err := e.newCosmology(p, z)
	if err != nil {
		return nil, nil, apperrors.WrapError(err, "building cosmology at z=%g", z)
	}
	mass, err := e.newMassFunction(cosmo, shape)
	if err != nil {
		return nil, nil, apperrors.WrapError(err, "sampling mass function at z=%g", z)
	}
	return cosmo, mass, nil
}

// Clone returns an engine with the same parameters and collaborators and
// fresh, uninitialized caches.
func (e *Engine) Clone() *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	c := &Engine{
		params:          e.params,
		redshift:        e.redshift,
		shape:           e.shape,
		hod:             e.hod,
		prec:            e.prec,
		newCosmology:    e.newCosmology,
		newMassFunction: e.newMassFunction,
		cosmo:           e.cosmo,
		mass:            e.mass,
		log:             e.log,
	}
	c.initGrid()
	return c
}

// SetCosmology replaces the cosmological parameters, keeping the redshift.
func (e *Engine) SetCosmology(p config.Cosmology) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setCosmology(p, e.redshift, "cosmology")
}

// SetCosmologyAt replaces the cosmological parameters and the redshift.
func (e *Engine) SetCosmologyAt(p config.Cosmology, z float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.setCosmology(p, z, "cosmology")
}

// SetRedshift moves the engine to redshift z. Setting the current redshift
// is a no-op; any other value rebuilds the background state and invalidates
// like SetCosmology.
func (e *Engine) SetRedshift(z float64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := validateRedshift(z); err != nil {
		return err
	}
	if z == e.redshift {
		return nil
	}
	return e.setCosmology(e.params, z, "redshift")
}

func (e *Engine) setCosmology(p config.Cosmology, z float64, cause string) error {
	if err := p.Validate(); err != nil {
		return err
	}
	if err := validateRedshift(z); err != nil {
		return err
	}
	cosmo, mass, err := e.collaborators(p, z, e.shape)
	if err != nil {
		return err
	}
	e.params, e.redshift = p, z
	e.cosmo, e.mass = cosmo, mass

	e.geom.invalidate()
	e.nBar.invalidate()
	for i := range e.terms {
		e.terms[i].invalidate()
	}
	e.fit.invalidate()
	invalidationsTotal.WithLabelValues(cause).Inc()
	return nil
}

// SetHalo replaces the halo shape parameters. The mass function is
// resampled, so the geometry and every halo integral are invalidated; the
// empirical-fit coefficients depend on the cosmology only and stay valid.
func (e *Engine) SetHalo(s config.HaloShape) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := s.Validate(); err != nil {
		return err
	}
	mass, err := e.newMassFunction(e.cosmo, s)
	if err != nil {
		return apperrors.WrapError(err, "sampling mass function")
	}
	e.shape = s
	e.mass = mass

	e.geom.invalidate()
	e.nBar.invalidate()
	for i := range e.terms {
		e.terms[i].invalidate()
	}
	invalidationsTotal.WithLabelValues("halo").Inc()
	return nil
}

// SetHOD replaces the occupation model. Only the galaxy terms and the mean
// galaxy density are invalidated: h_m and pp_mm do not depend on the HOD.
func (e *Engine) SetHOD(h HOD) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if h == nil {
		return apperrors.NewConfigError("an HOD is required")
	}
	e.hod = h

	e.nBar.invalidate()
	for _, id := range galaxyTerms {
		e.terms[id].invalidate()
	}
	invalidationsTotal.WithLabelValues("hod").Inc()
	return nil
}

// Redshift returns the current redshift.
func (e *Engine) Redshift() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.redshift
}

// CosmologyParams returns the current cosmological parameters.
func (e *Engine) CosmologyParams() config.Cosmology {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.params
}

// HaloShape returns the current halo shape parameters.
func (e *Engine) HaloShape() config.HaloShape {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.shape
}

// HOD returns the current occupation model.
func (e *Engine) HOD() HOD {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.hod
}

// Precision returns the numerical configuration.
func (e *Engine) Precision() config.Precision { return e.prec }

// K returns a copy of the wavenumber grid the terms are tabulated on.
func (e *Engine) K() []float64 { return append([]float64(nil), e.k...) }

// LinearPower evaluates the linear power spectrum of the current cosmology.
func (e *Engine) LinearPower(k []float64) []float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.linearPower(k)
}

func (e *Engine) linearPower(k []float64) []float64 {
	out := make([]float64, len(k))
	for i, v := range k {
		out[i] = e.cosmo.LinearPower(v)
	}
	return out
}

func validateRedshift(z float64) error {
	if math.IsNaN(z) || math.IsInf(z, 0) || z < 0 {
		return apperrors.AsConfigError(apperrors.NewValidationError("redshift", "must be a finite non-negative number", z))
	}
	return nil
}

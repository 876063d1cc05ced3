package halo

import (
	"context"
	"fmt"
	"math"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	apperrors "github.com/agbru/halocalc/internal/errors"
	"github.com/agbru/halocalc/internal/quad"
	"github.com/agbru/halocalc/internal/specfunc"
	"github.com/agbru/halocalc/internal/spline"
)

// peakScanPoints is the number of ln ν abscissas scanned for the integrand peak
// before each integration.
const peakScanPoints = 9

// crossingBisections caps the search for an occupation threshold; the
// bracket reaches adjacent floats well before that.
const crossingBisections = 128

// integrate integrates f over [lo, hi] in ln ν with peak normalization. An
// empty interval integrates to zero.
func (e *Engine) integrate(f quad.VectorFunc, lo, hi float64) (float64, error) {
	if !(hi > lo) {
		return 0, nil
	}
	scan := floats.Span(make([]float64, peakScanPoints), lo, hi)
	return quad.Normalized(e.romberg, f, lo, hi, scan)
}

// lnNuRange returns the ln ν integration bounds. The lower bound is raised
// to the peak height of threshold when it is a positive mass above the
// mass-function floor.
func (e *Engine) lnNuRange(threshold float64) (lo, hi float64) {
	nuMin := e.mass.NuMin()
	if threshold > 0 && threshold > math.Exp(e.mass.LnMassMin()) {
		nuMin = e.mass.Nu(threshold)
	}
	return math.Log(nuMin), math.Log(e.mass.NuMax())
}

// occupationCrossing brackets the ln ν in [lo, hi] where moment(M(ν))
// crosses 1. moment is below 1 at one of below, above and not at the other,
// and the two are adjacent floats. ok is false when both ends of the range
// lie on the same side.
func (e *Engine) occupationCrossing(moment func(mass float64) float64, lo, hi float64) (below, above float64, ok bool) {
	under := func(l float64) bool { return moment(e.mass.Mass(math.Exp(l))) < 1 }
	startUnder := under(lo)
	if !(hi > lo) || under(hi) == startUnder {
		return 0, 0, false
	}
	a, b := lo, hi
	for i := 0; i < crossingBisections; i++ {
		mid := a + (b-a)/2
		if mid <= a || mid >= b {
			break
		}
		if under(mid) == startUnder {
			a = mid
		} else {
			b = mid
		}
	}
	return a, b, true
}

// interval is one ln ν integration range.
type interval struct{ lo, hi float64 }

// poissonIntervals splits [lo, hi] at the ln ν where moment crosses 1, so that
// the y/y² switch of poissonProfile never falls inside an interval.
// Romberg extrapolation assumes a smooth integrand and converges only
// linearly across a jump.
func (e *Engine) poissonIntervals(moment func(mass float64) float64, lo, hi float64) []interval {
	below, above, ok := e.occupationCrossing(moment, lo, hi)
	if !ok {
		return []interval{{lo, hi}}
	}
	return []interval{{lo, below}, {above, hi}}
}

// poissonProfile applies the pair-counting rule of the 1-halo galaxy terms:
// halos with fewer than one galaxy (or pair) on average contribute a single
// power of the profile, the others its square.
func poissonProfile(moment, y float64) float64 {
	if moment < 1 {
		return y
	}
	return y * y
}

// nBarIntegrand is ν f(ν) N₁(M)/M.
func (e *Engine) nBarIntegrand() quad.VectorFunc {
	mf, hod := e.mass, e.hod
	return func(dst, x []float64) {
		for i, l := range x {
			nu := math.Exp(l)
			m := mf.Mass(nu)
			dst[i] = nu * mf.FNu(nu) * hod.FirstMoment(m) / m
		}
	}
}

// nBarLocked returns the mean galaxy density, integrated over the full ν
// range of the mass function.
func (e *Engine) nBarLocked() (float64, error) {
	if e.nBar.ready() {
		return e.nBar.value, nil
	}
	var nBar float64
	err := e.rebuild("n_bar", 1, func() error {
		lo, hi := math.Log(e.mass.NuMin()), math.Log(e.mass.NuMax())
		v, err := e.integrate(e.nBarIntegrand(), lo, hi)
		if err != nil {
			return apperrors.WrapError(err, "n_bar")
		}
		nBar = v * e.cosmo.RhoBar()
		if !(nBar > 0) || math.IsInf(nBar, 0) {
			return apperrors.NewConfigError("mean galaxy density is %g: the HOD populates no halos", nBar)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	e.nBar.set(nBar)
	return nBar, nil
}

// NBar returns the mean galaxy density [h^3/Mpc^3] implied by the HOD.
func (e *Engine) NBar() (float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.nBarLocked()
}

// termSpec describes one tabulated halo integral. The integral is the sum
// over intervals, each integrated separately.
type termSpec struct {
	integrand func(lnK float64) quad.VectorFunc
	intervals []interval
	scale     float64
}

// integrateIntervals integrates f over every interval and adds the results.
func (e *Engine) integrateIntervals(f quad.VectorFunc, intervals []interval) (float64, error) {
	var total float64
	for _, s := range intervals {
		v, err := e.integrate(f, s.lo, s.hi)
		if err != nil {
			return 0, err
		}
		total += v
	}
	return total, nil
}

func (e *Engine) termSpec(id termID, g *geometry) (termSpec, error) {
	mf, hod, h := e.mass, e.hod, e.cosmo.H()
	rhoBar := e.cosmo.RhoBar()

	switch id {
	case termHM:
		lo, hi := e.lnNuRange(0)
		return termSpec{intervals: []interval{{lo, hi}}, scale: 1, integrand: func(lnK float64) quad.VectorFunc {
			return func(dst, x []float64) {
				for i, l := range x {
					nu := math.Exp(l)
					m := mf.Mass(nu)
					dst[i] = nu * mf.FNu(nu) * mf.BiasNu(nu) * g.profile(lnK, h, m)
				}
			}
		}}, nil

	case termPPMM:
		lo, hi := e.lnNuRange(0)
		return termSpec{intervals: []interval{{lo, hi}}, scale: 1 / rhoBar, integrand: func(lnK float64) quad.VectorFunc {
			return func(dst, x []float64) {
				for i, l := range x {
					nu := math.Exp(l)
					m := mf.Mass(nu)
					y := g.profile(lnK, h, m)
					dst[i] = nu * mf.FNu(nu) * m * y * y
				}
			}
		}}, nil
	}

	nBar, err := e.nBarLocked()
	if err != nil {
		return termSpec{}, err
	}

	switch id {
	case termHG, termHGExclusion:
		windowed := id == termHGExclusion
		lo, hi := e.lnNuRange(hod.FirstMomentZero())
		return termSpec{intervals: []interval{{lo, hi}}, scale: rhoBar / nBar, integrand: func(lnK float64) quad.VectorFunc {
			k := math.Exp(lnK)
			return func(dst, x []float64) {
				for i, l := range x {
					nu := math.Exp(l)
					m := mf.Mass(nu)
					v := nu * mf.FNu(nu) * mf.BiasNu(nu) * g.profile(lnK, h, m) * hod.FirstMoment(m) / m
					if windowed {
						v *= exclusionWindow(k, g.virialRadius.At(m))
					}
					dst[i] = v
				}
			}
		}}, nil

	case termPPGM:
		lo, hi := e.lnNuRange(hod.FirstMomentZero())
		return termSpec{intervals: e.poissonIntervals(hod.FirstMoment, lo, hi), scale: 1 / nBar, integrand: func(lnK float64) quad.VectorFunc {
			return func(dst, x []float64) {
				for i, l := range x {
					nu := math.Exp(l)
					m := mf.Mass(nu)
					n1 := hod.FirstMoment(m)
					dst[i] = nu * mf.FNu(nu) * n1 * poissonProfile(n1, g.profile(lnK, h, m))
				}
			}
		}}, nil

	case termPPGG:
		lo, hi := e.lnNuRange(hod.SecondMomentZero())
		return termSpec{intervals: e.poissonIntervals(hod.SecondMoment, lo, hi), scale: rhoBar / (nBar * nBar), integrand: func(lnK float64) quad.VectorFunc {
			return func(dst, x []float64) {
				for i, l := range x {
					nu := math.Exp(l)
					m := mf.Mass(nu)
					n2 := hod.SecondMoment(m)
					dst[i] = nu * mf.FNu(nu) * n2 * poissonProfile(n2, g.profile(lnK, h, m)) / m
				}
			}
		}}, nil
	}
	return termSpec{}, fmt.Errorf("unknown term %d", id)
}

// exclusionWindow suppresses the 2-halo galaxy term inside twice the virial
// radius of the host.
func exclusionWindow(k, virialRadius float64) float64 {
	return specfunc.TopHat(k * 2 * virialRadius)
}

// termLocked returns the spline of one halo integral, rebuilding it if
// needed. The per-wavenumber integrals are spread over Precision.Workers
// goroutines; each writes its own slot so results do not depend on the
// worker count.
func (e *Engine) termLocked(id termID) (*spline.Term, error) {
	if e.terms[id].ready() {
		return e.terms[id].value, nil
	}
	geom, err := e.geometryLocked()
	if err != nil {
		return nil, err
	}
	spec, err := e.termSpec(id, geom)
	if err != nil {
		return nil, err
	}

	var term *spline.Term
	err = e.rebuild(id.String(), len(e.lnK), func() error {
		values := make([]float64, len(e.lnK))
		g, ctx := errgroup.WithContext(context.Background())
		g.SetLimit(e.prec.Workers)
		for i, lnK := range e.lnK {
			g.Go(func() error {
				if err := ctx.Err(); err != nil {
					return err
				}
				v, err := e.integrateIntervals(spec.integrand(lnK), spec.intervals)
				if err != nil {
					return fmt.Errorf("%s at k=%g: %w", id, e.k[i], err)
				}
				values[i] = v * spec.scale
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		var err error
		term, err = spline.FitTerm(e.k, values)
		return err
	})
	if err != nil {
		return nil, err
	}
	e.terms[id].set(term)
	return term, nil
}

// evalTerm evaluates a halo integral at every k.
func (e *Engine) evalTerm(id termID, k []float64) ([]float64, error) {
	t, err := e.termLocked(id)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(k))
	t.Eval(out, k)
	return out, nil
}

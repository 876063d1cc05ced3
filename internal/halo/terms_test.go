package halo

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agbru/halocalc/internal/testutil"
)

func TestPoissonProfile(t *testing.T) {
	t.Parallel()
	tests := []struct {
		moment, y, want float64
	}{
		{0, 0.3, 0.3},
		{0.5, 0.3, 0.3},
		{0.999, -0.2, -0.2},
		{1, 0.3, 0.09},
		{40, 0.5, 0.25},
	}
	for _, tt := range tests {
		assert.InDelta(t, tt.want, poissonProfile(tt.moment, tt.y), 1e-15, "moment=%g y=%g", tt.moment, tt.y)
	}
}

// TestOnePoissonIntegrand checks the 1-halo integrands against their closed
// forms for occupations on both sides of one.
func TestOnePoissonIntegrand(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name    string
		hod     testutil.ConstantHOD
		id      termID
		squared bool
	}{
		{"gm below one galaxy", testutil.ConstantHOD{N1: 0.5, N2: 0.5}, termPPGM, false},
		{"gm above one galaxy", testutil.ConstantHOD{N1: 2, N2: 2}, termPPGM, true},
		{"gg below one pair", testutil.ConstantHOD{N1: 2, N2: 0.5}, termPPGG, false},
		{"gg above one pair", testutil.ConstantHOD{N1: 2, N2: 3}, termPPGG, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			e := newTestEngine(t)
			require.NoError(t, e.SetHOD(tt.hod))

			e.mu.Lock()
			defer e.mu.Unlock()
			g, err := e.geometryLocked()
			require.NoError(t, err)
			spec, err := e.termSpec(tt.id, g)
			require.NoError(t, err)

			lnK := math.Log(5.0)
			nus := []float64{0.5, 1, 3}
			x := make([]float64, len(nus))
			for i, nu := range nus {
				x[i] = math.Log(nu)
			}
			got := make([]float64, len(x))
			spec.integrand(lnK)(got, x)

			for i, nu := range nus {
				m := e.mass.Mass(nu)
				y := g.profile(lnK, e.cosmo.H(), m)
				moment, weight := tt.hod.N1, tt.hod.N1
				if tt.id == termPPGG {
					moment, weight = tt.hod.N2, tt.hod.N2/m
				}
				power := y
				if tt.squared {
					power = y * y
				}
				want := nu * e.mass.FNu(nu) * weight * power
				assert.InEpsilon(t, want, got[i], 1e-12, "nu=%g moment=%g", nu, moment)
			}
		})
	}
}

func TestGalaxyTermCutoffs(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	e.mu.Lock()
	defer e.mu.Unlock()
	g, err := e.geometryLocked()
	require.NoError(t, err)

	full, fullHi := e.lnNuRange(0)
	assert.Equal(t, math.Log(e.mass.NuMin()), full)

	gm, err := e.termSpec(termPPGM, g)
	require.NoError(t, err)
	require.Len(t, gm.intervals, 2, "split where <N> crosses 1")
	assert.Equal(t, full, gm.intervals[0].lo, "the central step has no first-moment threshold")
	assert.Equal(t, fullHi, gm.intervals[1].hi)

	gg, err := e.termSpec(termPPGG, g)
	require.NoError(t, err)
	require.Len(t, gg.intervals, 2, "split where <N(N-1)> crosses 1")
	m0 := testutil.ReferenceHOD().SecondMomentZero()
	assert.InDelta(t, math.Log(e.mass.Nu(m0)), gg.intervals[0].lo, 1e-12, "pairs start at M0")
	assert.Greater(t, gg.intervals[0].lo, full)
	assert.Equal(t, fullHi, gg.intervals[1].hi)

	hm, err := e.termSpec(termHM, g)
	require.NoError(t, err)
	assert.Equal(t, []interval{{full, fullHi}}, hm.intervals)

	below, _ := e.lnNuRange(1e8)
	assert.Equal(t, full, below, "thresholds below the mass floor are ignored")
}

func TestOccupationCrossing(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	hod := testutil.ReferenceHOD()
	lo, hi := e.lnNuRange(0)

	tests := []struct {
		name   string
		moment func(float64) float64
	}{
		{"first moment", hod.FirstMoment},
		{"second moment", hod.SecondMoment},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			below, above, ok := e.occupationCrossing(tt.moment, lo, hi)
			require.True(t, ok)
			assert.Less(t, below, above)
			assert.Less(t, above-below, 1e-12)
			assert.Less(t, tt.moment(e.mass.Mass(math.Exp(below))), 1.0)
			assert.GreaterOrEqual(t, tt.moment(e.mass.Mass(math.Exp(above))), 1.0)
		})
	}

	t.Run("no crossing", func(t *testing.T) {
		t.Parallel()
		flat := testutil.ConstantHOD{N1: 0.5, N2: 3}
		_, _, ok := e.occupationCrossing(flat.FirstMoment, lo, hi)
		assert.False(t, ok)
		assert.Equal(t, []interval{{lo, hi}}, e.poissonIntervals(flat.SecondMoment, lo, hi))
	})
}

func TestIntegrateIntervalsAcrossStep(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	// A step just above x = 0.3, like the y to y² switch of the Poisson rule.
	step := func(dst, x []float64) {
		for i, v := range x {
			dst[i] = 1
			if v > 0.3 {
				dst[i] = 3
			}
		}
	}
	above := math.Nextafter(0.3, 1)
	got, err := e.integrateIntervals(step, []interval{{-1, 0.3}, {above, 2}})
	require.NoError(t, err)
	assert.InEpsilon(t, 1.3+3*(2-above), got, 1e-12)
}

func TestExclusionWindow(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1, exclusionWindow(1e-4, 0.5), 1e-8)
	assert.InDelta(t, 0, exclusionWindow(4.4934094579/(2*0.5), 0.5), 1e-9, "first zero of the top hat")
}

func TestGeometry(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)

	mStar := e.mass.MStar()
	c, err := e.Concentration(mStar)
	require.NoError(t, err)
	assert.InEpsilon(t, e.HaloShape().C0, c, 1e-6, "c(M*) = c0 at z=0")

	m := 1e13
	rv, err := e.VirialRadius(m)
	require.NoError(t, err)
	want := math.Cbrt(3 * m / (4 * math.Pi * e.cosmo.DeltaV() * e.cosmo.RhoBar()))
	assert.InEpsilon(t, want, rv, 1e-6)

	norm, err := e.HaloNormalization(m)
	require.NoError(t, err)
	assert.Greater(t, norm, 0.0)

	// The profile integrates to unity in the k → 0 limit and decays after.
	y0, err := e.ProfileFT(math.Log(1e-4), m)
	require.NoError(t, err)
	assert.InDelta(t, 1, y0, 1e-4)
	y1, err := e.ProfileFT(math.Log(10), m)
	require.NoError(t, err)
	assert.Less(t, y1, y0)
}

func TestGeometryFollowsDeltaVOverride(t *testing.T) {
	t.Parallel()
	s := testSetup()
	s.Halo.DeltaV = 200
	e, err := NewEngine(s)
	require.NoError(t, err)

	m := 1e14
	rv, err := e.VirialRadius(m)
	require.NoError(t, err)
	assert.InEpsilon(t, math.Cbrt(3*m/(4*math.Pi*200*e.cosmo.RhoBar())), rv, 1e-6)
}

func TestProfileBoundedProperty(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	e.mu.Lock()
	g, err := e.geometryLocked()
	h := e.cosmo.H()
	e.mu.Unlock()
	require.NoError(t, err)

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 300
	properties := gopter.NewProperties(parameters)

	properties.Property("|y(k, M)| <= 1", prop.ForAll(
		func(lnK, lnM float64) bool {
			y := g.profile(lnK, h, math.Exp(lnM))
			return !math.IsNaN(y) && math.Abs(y) <= 1+1e-9
		},
		gen.Float64Range(math.Log(1e-3), math.Log(1e2)),
		gen.Float64Range(math.Log(testutil.MassMin), math.Log(testutil.MassMax)),
	))

	properties.TestingRun(t)
}

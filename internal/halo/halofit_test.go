package halo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/agbru/halocalc/internal/errors"
)

func TestNonLinearScale(t *testing.T) {
	t.Parallel()
	fit := NewEmpiricalFit(newTestEngine(t))

	kSigma, nEff, curvature, err := fit.NonLinearScale()
	require.NoError(t, err)
	assert.Greater(t, kSigma, 0.1)
	assert.Less(t, kSigma, 2.0)
	assert.Greater(t, nEff, -2.5)
	assert.Less(t, nEff, -0.5)
	assert.Greater(t, curvature, 0.0)
	assert.Less(t, curvature, 1.5)
}

func TestNonLinearScaleMovesWithRedshift(t *testing.T) {
	t.Parallel()
	e := newTestEngine(t)
	fit := NewEmpiricalFit(e)
	now, _, _, err := fit.NonLinearScale()
	require.NoError(t, err)

	require.NoError(t, e.SetRedshift(1))
	then, _, _, err := fit.NonLinearScale()
	require.NoError(t, err)
	assert.Greater(t, then, now, "structure was linear to smaller scales in the past")
}

func TestHalofitBoostsSmallScales(t *testing.T) {
	t.Parallel()
	fit := NewEmpiricalFit(newTestEngine(t))

	k := []float64{1, 10}
	lin := fit.LinearPower(k)
	mm, err := fit.PowerMM(k)
	require.NoError(t, err)
	for i := range k {
		assert.Greater(t, mm[i], lin[i], "k=%g", k[i])
	}
}

func TestHalofitNeedsNonLinearScale(t *testing.T) {
	t.Parallel()
	s := testSetup()
	s.Cosmology.Sigma8 = 0.02
	e, err := NewEngine(s)
	require.NoError(t, err)

	_, err = NewEmpiricalFit(e).PowerMM(sampleK)
	require.Error(t, err)
	assert.True(t, apperrors.IsConfigError(err), "got %v", err)
	assert.ErrorContains(t, err, "never crosses 1")
}

func TestFitCoefficientsOutsideDomain(t *testing.T) {
	t.Parallel()
	c := &fitCoefficients{kSigma: 1, kMin: 1e-3, kMax: 100, nu: 1}
	for _, k := range []float64{0, 1e-4, 101, math.Inf(1), math.NaN()} {
		assert.Zero(t, c.power(k, 1), "k=%g", k)
	}
}

func TestDeltaSquared(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 1.0, deltaSquared(1, 2*math.Pi*math.Pi), 1e-15)
	assert.InDelta(t, 8.0, deltaSquared(2, 2*math.Pi*math.Pi), 1e-14)
}

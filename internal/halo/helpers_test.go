package halo

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/agbru/halocalc/internal/config"
	"github.com/agbru/halocalc/internal/testutil"
)

func newTestCosmology(p config.Cosmology, z float64) (Cosmology, error) {
	c, err := testutil.NewCosmology(p, z)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newTestMassFunction(c Cosmology, s config.HaloShape) (MassFunction, error) {
	tc, ok := c.(*testutil.Cosmology)
	if !ok {
		return nil, fmt.Errorf("unexpected cosmology %T", c)
	}
	mf, err := testutil.NewMassFunction(tc, s)
	if err != nil {
		return nil, err
	}
	return mf, nil
}

// testPrecision is coarse enough to keep each engine under a second.
func testPrecision() config.Precision {
	p := config.DefaultPrecision()
	p.KPoints = 20
	p.AbsTol = 1e-10
	p.RelTol = 1e-4
	p.SigmaPoints = 20
	return p
}

func testSetup() Setup {
	return Setup{
		Cosmology:       config.DefaultCosmology(),
		Redshift:        0,
		Halo:            config.DefaultHaloShape(),
		HOD:             testutil.ReferenceHOD(),
		Precision:       testPrecision(),
		NewCosmology:    newTestCosmology,
		NewMassFunction: newTestMassFunction,
	}
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(testSetup())
	require.NoError(t, err)
	return e
}

// allModels builds every registered strategy, each over its own engine.
func allModels(t *testing.T) []Model {
	t.Helper()
	r := NewRegistry()
	models := make([]Model, 0, 3)
	for _, name := range r.List() {
		m, err := r.Create(name, newTestEngine(t))
		require.NoError(t, err)
		models = append(models, m)
	}
	return models
}

// sampleK spans the wavenumber domain including both edges.
var sampleK = []float64{1e-3, 0.01, 0.2, 1, 4.7, 30, 100}

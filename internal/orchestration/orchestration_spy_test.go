package orchestration

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/agbru/halocalc/internal/config"
	"github.com/agbru/halocalc/internal/halo"
	"github.com/agbru/halocalc/internal/testutil"
)

// TestEvaluateBuildsOneModelPerRedshift verifies that each goroutine gets
// its own model, built for its own redshift.
func TestEvaluateBuildsOneModelPerRedshift(t *testing.T) {
	t.Parallel()
	spy := &SpyFactory{seen: make(map[float64]int)}
	zs := []float64{0, 0.25, 0.5, 1, 2}

	evaluate(context.Background(), zs, []float64{1}, spy.At)

	spy.mu.Lock()
	defer spy.mu.Unlock()
	for _, z := range zs {
		if spy.seen[z] != 1 {
			t.Errorf("redshift %g requested %d times, want 1", z, spy.seen[z])
		}
	}
}

type SpyFactory struct {
	mu   sync.Mutex
	seen map[float64]int
}

func (s *SpyFactory) At(z float64) (Spectra, error) {
	s.mu.Lock()
	s.seen[z]++
	s.mu.Unlock()
	return &MockSpectra{}, nil
}

// TestEvaluateRedshiftsLeavesModelUntouched runs the real engine: every
// redshift is evaluated on a clone and the caller's model stays at its own
// redshift.
func TestEvaluateRedshiftsLeavesModelUntouched(t *testing.T) {
	t.Parallel()
	prec := config.DefaultPrecision()
	prec.KPoints = 16
	prec.AbsTol = 1e-10
	prec.RelTol = 1e-4

	e, err := halo.NewEngine(halo.Setup{
		Cosmology: config.DefaultCosmology(),
		Halo:      config.DefaultHaloShape(),
		HOD:       testutil.ReferenceHOD(),
		Precision: prec,
		NewCosmology: func(p config.Cosmology, z float64) (halo.Cosmology, error) {
			c, err := testutil.NewCosmology(p, z)
			if err != nil {
				return nil, err
			}
			return c, nil
		},
		NewMassFunction: func(c halo.Cosmology, s config.HaloShape) (halo.MassFunction, error) {
			tc, ok := c.(*testutil.Cosmology)
			if !ok {
				return nil, fmt.Errorf("unexpected cosmology %T", c)
			}
			mf, err := testutil.NewMassFunction(tc, s)
			if err != nil {
				return nil, err
			}
			return mf, nil
		},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	m := halo.NewStandard(e)

	k := []float64{1e-3, 0.1}
	results := EvaluateRedshifts(context.Background(), m, []float64{0, 0.5, -1}, k)

	if e.Redshift() != 0 {
		t.Errorf("caller's engine moved to z=%g", e.Redshift())
	}
	if results[0].Err != nil || results[1].Err != nil {
		t.Fatalf("unexpected errors: %v, %v", results[0].Err, results[1].Err)
	}
	if results[0].Model != halo.NameStandard {
		t.Errorf("model name = %q", results[0].Model)
	}
	if !(results[1].MM[0] < results[0].MM[0]) {
		t.Errorf("power at z=0.5 (%g) should be below z=0 (%g)", results[1].MM[0], results[0].MM[0])
	}
	if results[2].Err == nil {
		t.Error("a negative redshift must be rejected")
	}
}

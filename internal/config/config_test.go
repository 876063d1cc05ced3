package config

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	apperrors "github.com/agbru/halocalc/internal/errors"
)

func TestDefaultsAreValid(t *testing.T) {
	t.Parallel()
	if err := DefaultPrecision().Validate(); err != nil {
		t.Errorf("default precision should be valid: %v", err)
	}
	if err := DefaultCosmology().Validate(); err != nil {
		t.Errorf("default cosmology should be valid: %v", err)
	}
	if err := DefaultHaloShape().Validate(); err != nil {
		t.Errorf("default halo shape should be valid: %v", err)
	}
	if err := DefaultFile().Validate(); err != nil {
		t.Errorf("default file should be valid: %v", err)
	}
}

func TestDefaultCosmologyIsFlat(t *testing.T) {
	t.Parallel()
	c := DefaultCosmology()
	total := c.OmegaM0 + c.OmegaL0 + c.OmegaR0
	if math.Abs(total-1) > 1e-12 {
		t.Errorf("expected a flat cosmology, got total density %v", total)
	}
}

func TestPrecisionValidate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		mutate func(*Precision)
		field  string
	}{
		{"TooFewKPoints", func(p *Precision) { p.KPoints = 3 }, "k_points"},
		{"ZeroKMin", func(p *Precision) { p.KMin = 0 }, "k_min"},
		{"KMaxBelowKMin", func(p *Precision) { p.KMax = p.KMin / 2 }, "k_max"},
		{"NegativeAbsTol", func(p *Precision) { p.AbsTol = -1 }, "abs_tol"},
		{"ZeroRelTol", func(p *Precision) { p.RelTol = 0 }, "rel_tol"},
		{"NaNRelTol", func(p *Precision) { p.RelTol = math.NaN() }, "rel_tol"},
		{"ZeroDepth", func(p *Precision) { p.MaxDepth = 0 }, "max_depth"},
		{"HugeDepth", func(p *Precision) { p.MaxDepth = 31 }, "max_depth"},
		{"TooFewSigmaPoints", func(p *Precision) { p.SigmaPoints = 2 }, "sigma_points"},
		{"NoWorkers", func(p *Precision) { p.Workers = 0 }, "workers"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			p := DefaultPrecision()
			tc.mutate(&p)
			err := p.Validate()
			if err == nil {
				t.Fatal("expected validation error but got nil")
			}
			if !apperrors.IsConfigError(err) {
				t.Errorf("expected a ConfigError, got %T", err)
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q should name field %s", err, tc.field)
			}
		})
	}
}

func TestCosmologyValidate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name   string
		mutate func(*Cosmology)
		field  string
	}{
		{"NegativeMatter", func(c *Cosmology) { c.OmegaM0 = -0.3 }, "omega_m0"},
		{"BaryonsExceedMatter", func(c *Cosmology) { c.OmegaB0 = c.OmegaM0 + 0.1 }, "omega_b0"},
		{"NegativeLambda", func(c *Cosmology) { c.OmegaL0 = -0.1 }, "omega_l0"},
		{"ZeroHubble", func(c *Cosmology) { c.H = 0 }, "cosmology.h"},
		{"ZeroSigma8", func(c *Cosmology) { c.Sigma8 = 0 }, "sigma_8"},
		{"InfiniteIndex", func(c *Cosmology) { c.NScalar = math.Inf(1) }, "n_scalar"},
		{"ZeroTemperature", func(c *Cosmology) { c.CMBTemp = 0 }, "cmb_temp"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := DefaultCosmology()
			tc.mutate(&c)
			err := c.Validate()
			if err == nil {
				t.Fatal("expected validation error but got nil")
			}
			if !strings.Contains(err.Error(), tc.field) {
				t.Errorf("error %q should name field %s", err, tc.field)
			}
		})
	}

	t.Run("EinsteinDeSitterIsValid", func(t *testing.T) {
		t.Parallel()
		c := DefaultCosmology()
		c.OmegaM0 = 1.0 - c.OmegaR0
		c.OmegaL0 = 0
		if err := c.Validate(); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})
}

func TestHaloShapeValidate(t *testing.T) {
	t.Parallel()
	testCases := []struct {
		name        string
		mutate      func(*HaloShape)
		expectError bool
	}{
		{"Default", func(h *HaloShape) {}, false},
		{"FixedDeltaV", func(h *HaloShape) { h.DeltaV = 200 }, false},
		{"ZeroDeltaV", func(h *HaloShape) { h.DeltaV = 0 }, true},
		{"NegativeConcentration", func(h *HaloShape) { h.C0 = -5 }, true},
		{"NonNFWSlope", func(h *HaloShape) { h.Alpha = -1.5 }, true},
		{"LargeSTQ", func(h *HaloShape) { h.STQ = 0.5 }, true},
		{"ZeroSTA", func(h *HaloShape) { h.STLittleA = 0 }, true},
		{"NaNBeta", func(h *HaloShape) { h.Beta = math.NaN() }, true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			h := DefaultHaloShape()
			tc.mutate(&h)
			err := h.Validate()
			if tc.expectError && err == nil {
				t.Error("expected validation error but got nil")
			}
			if !tc.expectError && err != nil {
				t.Errorf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoad(t *testing.T) {
	t.Run("EmptyInputKeepsDefaults", func(t *testing.T) {
		cfg, err := Load(strings.NewReader(""))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg != DefaultFile() {
			t.Errorf("expected defaults, got %+v", cfg)
		}
	})

	t.Run("PartialSections", func(t *testing.T) {
		src := "redshift: 1.0\ncosmology:\n  sigma_8: 0.9\nhalo:\n  c0: 5.0\n  beta: -0.2\n  delta_v: 200\nprecision:\n  k_points: 80\n"
		cfg, err := Load(strings.NewReader(src))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Redshift != 1.0 {
			t.Errorf("expected redshift 1.0, got %v", cfg.Redshift)
		}
		if cfg.Cosmology.Sigma8 != 0.9 || cfg.Cosmology.H != 0.7 {
			t.Errorf("expected sigma_8 override with default h, got %+v", cfg.Cosmology)
		}
		if cfg.Halo.C0 != 5.0 || cfg.Halo.DeltaV != 200 || cfg.Halo.STLittleA != 0.707 {
			t.Errorf("unexpected halo section %+v", cfg.Halo)
		}
		if cfg.Precision.KPoints != 80 || cfg.Precision.RelTol != DefaultRelTol {
			t.Errorf("unexpected precision section %+v", cfg.Precision)
		}
	})

	t.Run("UnknownKeyRejected", func(t *testing.T) {
		_, err := Load(strings.NewReader("cosmology:\n  sigma8: 0.9\n"))
		if !apperrors.IsConfigError(err) {
			t.Errorf("expected a ConfigError for a misspelled key, got %v", err)
		}
	})

	t.Run("InvalidValueRejected", func(t *testing.T) {
		_, err := Load(strings.NewReader("halo:\n  alpha: -1.5\n"))
		if !apperrors.IsConfigError(err) {
			t.Errorf("expected a ConfigError, got %v", err)
		}
	})

	t.Run("EnvOverrides", func(t *testing.T) {
		t.Setenv("HALOCALC_REDSHIFT", "0.5")
		t.Setenv("HALOCALC_K_POINTS", "30")
		t.Setenv("HALOCALC_REL_TOL", "1e-4")
		t.Setenv("HALOCALC_WORKERS", "4")
		t.Setenv("HALOCALC_MAX_DEPTH", "not-a-number")

		cfg, err := Load(strings.NewReader("precision:\n  k_points: 80\n"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Redshift != 0.5 {
			t.Errorf("expected redshift 0.5 from env, got %v", cfg.Redshift)
		}
		if cfg.Precision.KPoints != 30 {
			t.Errorf("env should take precedence over the file, got %d", cfg.Precision.KPoints)
		}
		if cfg.Precision.RelTol != 1e-4 {
			t.Errorf("expected rel_tol 1e-4, got %v", cfg.Precision.RelTol)
		}
		if cfg.Precision.Workers != 4 {
			t.Errorf("expected 4 workers, got %d", cfg.Precision.Workers)
		}
		if cfg.Precision.MaxDepth != DefaultMaxDepth {
			t.Errorf("invalid env values should be ignored, got %d", cfg.Precision.MaxDepth)
		}
	})
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "halo.yaml")

	want := DefaultFile()
	want.Redshift = 2.0
	want.Halo.C0 = 7.5
	data, err := want.Marshal()
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Redshift != 2.0 || got.Halo.C0 != 7.5 {
		t.Errorf("round trip lost values: %+v", got)
	}

	if _, err := LoadFile(filepath.Join(dir, "missing.yaml")); !apperrors.IsConfigError(err) {
		t.Errorf("expected a ConfigError for a missing file, got %v", err)
	}
}

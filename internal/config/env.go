// Package config provides the configuration values of the halo-model engine.
// This file contains environment variable utilities for configuration override.
package config

import (
	"os"
	"strconv"
)

// ─────────────────────────────────────────────────────────────────────────────
// Environment Variable Utilities
// ─────────────────────────────────────────────────────────────────────────────

// getEnvInt returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as int, or the default value if not set
// or invalid.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// getEnvFloat returns the value of the environment variable with the given key
// (prefixed with EnvPrefix) parsed as float64, or the default value if not
// set or invalid. Scientific notation ("1.48e-5") is accepted.
func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(EnvPrefix + key); val != "" {
		if parsed, err := strconv.ParseFloat(val, 64); err == nil {
			return parsed
		}
	}
	return defaultVal
}

// ApplyEnvOverrides applies environment variable values on top of a loaded
// configuration. This implements the priority:
// Environment variables > Configuration file > Defaults.
//
// Supported environment variables:
//   - HALOCALC_REDSHIFT: Evaluation redshift (float)
//   - HALOCALC_K_POINTS: Wavenumbers per term spline (int)
//   - HALOCALC_K_MIN, HALOCALC_K_MAX: Wavenumber domain [h/Mpc] (float)
//   - HALOCALC_ABS_TOL, HALOCALC_REL_TOL: Quadrature tolerances (float)
//   - HALOCALC_MAX_DEPTH: Maximum Romberg refinements (int)
//   - HALOCALC_SIGMA_POINTS: Smoothing radii of the empirical fit (int)
//   - HALOCALC_WORKERS: Goroutines per term rebuild (int)
func ApplyEnvOverrides(f *File) {
	f.Redshift = getEnvFloat("REDSHIFT", f.Redshift)
	applyPrecisionOverrides(&f.Precision)
}

func applyPrecisionOverrides(p *Precision) {
	p.KPoints = getEnvInt("K_POINTS", p.KPoints)
	p.KMin = getEnvFloat("K_MIN", p.KMin)
	p.KMax = getEnvFloat("K_MAX", p.KMax)
	p.AbsTol = getEnvFloat("ABS_TOL", p.AbsTol)
	p.RelTol = getEnvFloat("REL_TOL", p.RelTol)
	p.MaxDepth = getEnvInt("MAX_DEPTH", p.MaxDepth)
	p.SigmaPoints = getEnvInt("SIGMA_POINTS", p.SigmaPoints)
	p.Workers = getEnvInt("WORKERS", p.Workers)
}

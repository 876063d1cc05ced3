package config

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	apperrors "github.com/agbru/halocalc/internal/errors"
)

// File is the on-disk configuration of an engine: the evaluation redshift
// and the three parameter groups. Sections omitted from the file keep their
// defaults.
//
// Example:
//
//	redshift: 0.5
//	cosmology:
//	  sigma_8: 0.82
//	halo:
//	  c0: 5.0
//	precision:
//	  k_points: 80
type File struct {
	Redshift  float64   `yaml:"redshift"`
	Cosmology Cosmology `yaml:"cosmology"`
	Halo      HaloShape `yaml:"halo"`
	Precision Precision `yaml:"precision"`
}

// DefaultFile returns the configuration used when no file is supplied.
func DefaultFile() File {
	return File{
		Redshift:  0,
		Cosmology: DefaultCosmology(),
		Halo:      DefaultHaloShape(),
		Precision: DefaultPrecision(),
	}
}

// Validate checks every section of the file.
func (f File) Validate() error {
	if math.IsNaN(f.Redshift) || math.IsInf(f.Redshift, 0) || f.Redshift < 0 {
		return invalid("file", "redshift", "must be a finite non-negative number", f.Redshift)
	}
	if err := f.Cosmology.Validate(); err != nil {
		return err
	}
	if err := f.Halo.Validate(); err != nil {
		return err
	}
	return f.Precision.Validate()
}

// Load decodes a YAML configuration from r on top of the defaults, applies
// environment overrides and validates the result. Unknown keys are rejected
// so that a misspelled parameter cannot silently fall back to its default.
//
// Parameters:
//   - r: The YAML source.
//
// Returns:
//   - File: The merged configuration.
//   - error: A ConfigError if decoding or validation fails.
func Load(r io.Reader) (File, error) {
	cfg := DefaultFile()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return File{}, apperrors.NewConfigError("decoding configuration: %v", err)
	}
	ApplyEnvOverrides(&cfg)
	if err := cfg.Validate(); err != nil {
		return File{}, err
	}
	return cfg, nil
}

// LoadFile reads the YAML configuration at path. See Load.
func LoadFile(path string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, apperrors.NewConfigError("opening configuration %s: %v", path, err)
	}
	defer fh.Close()

	cfg, err := Load(fh)
	if err != nil {
		return File{}, apperrors.WrapError(err, "configuration %s", path)
	}
	return cfg, nil
}

// Marshal renders the configuration as YAML, e.g. to record the settings that
// produced a golden table.
func (f File) Marshal() ([]byte, error) {
	out, err := yaml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("encoding configuration: %w", err)
	}
	return out, nil
}

package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/agbru/halocalc/internal/config"
	apperrors "github.com/agbru/halocalc/internal/errors"
	"github.com/agbru/halocalc/internal/halo"
	"github.com/agbru/halocalc/internal/logging"
	"github.com/agbru/halocalc/internal/testutil"
)

// GoldenData is the golden file layout read by the halo package tests.
type GoldenData struct {
	Redshift  float64                   `json:"redshift"`
	Cosmology config.Cosmology          `json:"cosmology"`
	Halo      config.HaloShape          `json:"halo"`
	Precision config.Precision          `json:"precision"`
	K         []float64                 `json:"k"`
	Linear    []float64                 `json:"linear"`
	Models    map[string]GoldenSpectrum `json:"models"`
}

// GoldenSpectrum holds the spectra of one strategy.
type GoldenSpectrum struct {
	MM []float64 `json:"power_mm"`
	GM []float64 `json:"power_gm"`
	GG []float64 `json:"power_gg"`
}

// goldenK are four log-spaced wavenumbers spanning the default domain
// [h/Mpc].
var goldenK = []float64{1e-3, math.Pow(10, -4.0/3), math.Pow(10, 1.0/3), 1e2}

func main() {
	outputDir := flag.String("out", "internal/halo/testdata", "Output directory for the golden file")
	configPath := flag.String("config", "", "Optional YAML configuration overriding the reference scenario")
	debug := flag.Bool("debug", false, "Log cache rebuilds")
	flag.Parse()

	log := logging.NewLogger(os.Stderr, "generate-golden", *debug)
	start := time.Now()
	err := run(*outputDir, *configPath, log)
	os.Exit(apperrors.HandleEvaluationError(err, time.Since(start), os.Stderr))
}

func run(outputDir, configPath string, log *logging.ZerologAdapter) error {
	cfg := config.DefaultFile()
	if configPath != "" {
		var err error
		if cfg, err = config.LoadFile(configPath); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data := GoldenData{
		Redshift:  cfg.Redshift,
		Cosmology: cfg.Cosmology,
		Halo:      cfg.Halo,
		Precision: cfg.Precision,
		K:         goldenK,
		Models:    make(map[string]GoldenSpectrum),
	}

	registry := halo.NewRegistry()
	for _, name := range registry.List() {
		e, err := halo.NewEngine(halo.Setup{
			Cosmology:       cfg.Cosmology,
			Redshift:        cfg.Redshift,
			Halo:            cfg.Halo,
			HOD:             testutil.ReferenceHOD(),
			Precision:       cfg.Precision,
			NewCosmology:    newCosmology,
			NewMassFunction: newMassFunction,
		}, halo.WithLogger(log.With(logging.String("model", name))))
		if err != nil {
			return err
		}
		m, err := registry.Create(name, e)
		if err != nil {
			return err
		}
		if data.Linear == nil {
			data.Linear = m.LinearPower(goldenK)
		}

		var s GoldenSpectrum
		if s.MM, err = m.PowerMM(goldenK); err != nil {
			return apperrors.WrapError(err, "%s power_mm", name)
		}
		if s.GM, err = m.PowerGM(goldenK); err != nil {
			return apperrors.WrapError(err, "%s power_gm", name)
		}
		if s.GG, err = m.PowerGG(goldenK); err != nil {
			return apperrors.WrapError(err, "%s power_gg", name)
		}
		data.Models[name] = s
		log.Info("generated spectra", logging.String("model", name), logging.Int("points", len(goldenK)))
	}

	filename := filepath.Join(outputDir, "power_golden.json")
	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating output file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(data); err != nil {
		return fmt.Errorf("encoding JSON: %w", err)
	}

	log.Info("golden file written", logging.String("path", filename))
	return nil
}

func newCosmology(p config.Cosmology, z float64) (halo.Cosmology, error) {
	c, err := testutil.NewCosmology(p, z)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func newMassFunction(c halo.Cosmology, s config.HaloShape) (halo.MassFunction, error) {
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

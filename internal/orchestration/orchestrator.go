// Package orchestration evaluates a power-spectrum model at several redshifts
// concurrently and reports the outcome.
package orchestration

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"golang.org/x/sync/errgroup"

	apperrors "github.com/agbru/halocalc/internal/errors"
	"github.com/agbru/halocalc/internal/halo"
)

// RedshiftResult encapsulates the spectra of one model at one redshift.
type RedshiftResult struct {
	// Model is the registry name of the strategy.
	Model string
	// Redshift is the epoch the spectra were evaluated at.
	Redshift float64
	// K are the wavenumbers [h/Mpc] shared by every spectrum below.
	K []float64
	// Linear, MM, GM and GG are nil if an error occurred.
	Linear []float64
	MM     []float64
	GM     []float64
	GG     []float64
	// Duration is the time taken by the evaluation, cache rebuilds included.
	Duration time.Duration
	// Err contains any error that occurred during the evaluation.
	Err error
}

// Spectra is the part of a model the orchestrator reads.
type Spectra interface {
	Name() string
	LinearPower(k []float64) []float64
	PowerMM(k []float64) ([]float64, error)
	PowerGM(k []float64) ([]float64, error)
	PowerGG(k []float64) ([]float64, error)
}

// AtRedshift returns an independent copy of m moved to redshift z. The
// original model and its caches are untouched.
func AtRedshift(m halo.Model, z float64) (Spectra, error) {
	c := m.Clone()
	if err := c.Engine().SetRedshift(z); err != nil {
		return nil, err
	}
	return c, nil
}

// EvaluateRedshifts evaluates every spectrum of m at each redshift of zs.
//
// Each redshift runs on its own clone of m, in its own goroutine, so the
// per-redshift cache rebuilds proceed in parallel. The context is checked
// between spectra; a quadrature already running is not interrupted.
//
// Parameters:
//   - ctx: The context for managing cancellation and deadlines.
//   - m: The model to evaluate. It is only cloned, never mutated.
//   - zs: The redshifts.
//   - k: The wavenumbers [h/Mpc].
//
// Returns:
//   - []RedshiftResult: One result per redshift, in the order of zs.
func EvaluateRedshifts(ctx context.Context, m halo.Model, zs, k []float64) []RedshiftResult {
	return evaluate(ctx, zs, k, func(z float64) (Spectra, error) {
		return AtRedshift(m, z)
	})
}

func evaluate(ctx context.Context, zs, k []float64, at func(z float64) (Spectra, error)) []RedshiftResult {
	g, ctx := errgroup.WithContext(ctx)
	results := make([]RedshiftResult, len(zs))

	for i, z := range zs {
		g.Go(func() error {
			start := time.Now()
			res := RedshiftResult{Redshift: z, K: k}
			res.Err = evaluateOne(ctx, z, k, at, &res)
			if res.Err != nil {
				res.Linear, res.MM, res.GM, res.GG = nil, nil, nil, nil
			}
			res.Duration = time.Since(start)
			results[i] = res
			return nil
		})
	}

	_ = g.Wait()
	return results
}

func evaluateOne(ctx context.Context, z float64, k []float64, at func(float64) (Spectra, error), res *RedshiftResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s, err := at(z)
	if err != nil {
		return err
	}
	res.Model = s.Name()
	res.Linear = s.LinearPower(k)

	steps := []struct {
		name string
		call func([]float64) ([]float64, error)
		dst  *[]float64
	}{
		{"power_mm", s.PowerMM, &res.MM},
		{"power_gm", s.PowerGM, &res.GM},
		{"power_gg", s.PowerGG, &res.GG},
	}
	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return err
		}
		v, err := step.call(k)
		if err != nil {
			return apperrors.WrapError(err, "%s at z=%g", step.name, z)
		}
		*step.dst = v
	}
	return nil
}

// AnalyzeResults prints a summary table of the evaluations and returns the
// exit code: success only if every redshift was evaluated.
//
// Parameters:
//   - results: The results to report. They are sorted by redshift in place.
//   - out: The io.Writer for the summary report.
//
// Returns:
//   - int: An exit code indicating success (0) or the type of the first failure.
func AnalyzeResults(results []RedshiftResult, out io.Writer) int {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Redshift < results[j].Redshift
	})

	var firstError error
	fmt.Fprintf(out, "\n--- Evaluation Summary ---\n")
	tw := tabwriter.NewWriter(out, 0, 0, 3, ' ', 0)
	fmt.Fprintf(tw, "Redshift\tModel\tDuration\tP_mm(k_min)\tStatus\n")

	for _, res := range results {
		status, first := "Success", "-"
		switch {
		case res.Err != nil:
			status = fmt.Sprintf("Failure (%v)", res.Err)
			if apperrors.IsContextError(res.Err) {
				status = "Canceled"
			}
			if firstError == nil {
				firstError = res.Err
			}
		case len(res.MM) > 0:
			first = fmt.Sprintf("%.6e", res.MM[0])
		}
		duration := res.Duration.Round(time.Microsecond).String()
		if res.Duration < time.Microsecond {
			duration = "< 1µs"
		}
		fmt.Fprintf(tw, "%g\t%s\t%s\t%s\t%s\n", res.Redshift, res.Model, duration, first, status)
	}
	if err := tw.Flush(); err != nil {
		fmt.Fprintf(out, "Warning: failed to flush tabwriter: %v\n", err)
	}

	if firstError != nil {
		fmt.Fprintf(out, "\nGlobal Status: Failure. Not every redshift could be evaluated.\n")
		return apperrors.HandleEvaluationError(firstError, 0, out)
	}
	fmt.Fprintf(out, "\nGlobal Status: Success. %d redshifts evaluated.\n", len(results))
	return apperrors.ExitSuccess
}

// Package spline wraps gonum's not-a-knot cubic interpolation with the
// domain policies of the halo model: curves over a closed interval, curves
// fitted in log-log space, and tabulated power-spectrum terms that vanish
// outside their wavenumber domain.
package spline

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/interp"
)

// MinPoints is the smallest table a cubic curve can be fitted to.
const MinPoints = 4

// Curve is a cubic interpolant y(x) over [xs[0], xs[n-1]]. Evaluation
// outside the domain returns the nearest end value.
type Curve struct {
	fit        interp.NotAKnotCubic
	xMin, xMax float64
}

// FitCurve fits a cubic through (xs, ys). xs must be strictly increasing and
// every value finite.
func FitCurve(xs, ys []float64) (*Curve, error) {
	if err := checkTable(xs, ys); err != nil {
		return nil, err
	}
	c := &Curve{xMin: xs[0], xMax: xs[len(xs)-1]}
	if err := c.fit.Fit(xs, ys); err != nil {
		return nil, fmt.Errorf("spline: %w", err)
	}
	return c, nil
}

// At returns y(x).
func (c *Curve) At(x float64) float64 {
	return c.fit.Predict(clamp(x, c.xMin, c.xMax))
}

// Derivative returns dy/dx at x.
func (c *Curve) Derivative(x float64) float64 {
	return c.fit.PredictDerivative(clamp(x, c.xMin, c.xMax))
}

// Domain returns the fitted interval.
func (c *Curve) Domain() (lo, hi float64) { return c.xMin, c.xMax }

// LogLog interpolates a positive function y(x) of a positive variable as a
// cubic in (ln x, ln y).
type LogLog struct {
	curve *Curve
}

// FitLogLog fits ln ys against ln xs. Both must be strictly positive.
func FitLogLog(xs, ys []float64) (*LogLog, error) {
	if len(xs) != len(ys) {
		return nil, fmt.Errorf("spline: %d abscissas for %d values", len(xs), len(ys))
	}
	lx := make([]float64, len(xs))
	ly := make([]float64, len(ys))
	for i := range xs {
		if !(xs[i] > 0) || !(ys[i] > 0) {
			return nil, fmt.Errorf("spline: log-log point %d (%g, %g) is not positive", i, xs[i], ys[i])
		}
		lx[i] = math.Log(xs[i])
		ly[i] = math.Log(ys[i])
	}
	c, err := FitCurve(lx, ly)
	if err != nil {
		return nil, err
	}
	return &LogLog{curve: c}, nil
}

// FitLogLogLn fits ln ys against abscissas already given in log space.
func FitLogLogLn(lnXs, ys []float64) (*LogLog, error) {
	xs := make([]float64, len(lnXs))
	for i, v := range lnXs {
		xs[i] = math.Exp(v)
	}
	return FitLogLog(xs, ys)
}

// At returns y(x).
func (l *LogLog) At(x float64) float64 {
	return math.Exp(l.curve.At(math.Log(x)))
}

// Term is a tabulated power-spectrum component over [kMin, kMax]. It is
// interpolated as ln(value) against ln k when every tabulated value is
// positive and as the value itself otherwise. Outside the domain the term is
// exactly zero: the halo model makes no prediction there.
type Term struct {
	curve      *Curve
	logValues  bool
	k, values  []float64
	kMin, kMax float64
}

// FitTerm fits a term to values tabulated at the increasing wavenumbers k.
func FitTerm(k, values []float64) (*Term, error) {
	if len(k) != len(values) {
		return nil, fmt.Errorf("spline: %d wavenumbers for %d values", len(k), len(values))
	}
	lnK := make([]float64, len(k))
	for i, v := range k {
		if !(v > 0) {
			return nil, fmt.Errorf("spline: wavenumber %d is not positive: %g", i, v)
		}
		lnK[i] = math.Log(v)
	}

	logValues := true
	for _, v := range values {
		if !(v > 0) {
			logValues = false
			break
		}
	}
	ys := make([]float64, len(values))
	for i, v := range values {
		if logValues {
			ys[i] = math.Log(v)
		} else {
			ys[i] = v
		}
	}

	c, err := FitCurve(lnK, ys)
	if err != nil {
		return nil, err
	}
	return &Term{
		curve:     c,
		logValues: logValues,
		k:         append([]float64(nil), k...),
		values:    append([]float64(nil), values...),
		kMin:      k[0],
		kMax:      k[len(k)-1],
	}, nil
}

// At returns the term at k, or 0 outside [kMin, kMax].
func (t *Term) At(k float64) float64 {
	if !(k >= t.kMin && k <= t.kMax) {
		return 0
	}
	v := t.curve.At(math.Log(k))
	if t.logValues {
		return math.Exp(v)
	}
	return v
}

// Eval writes At(k[i]) to dst[i].
func (t *Term) Eval(dst, k []float64) {
	for i, v := range k {
		dst[i] = t.At(v)
	}
}

// Domain returns the wavenumber interval the term is defined on.
func (t *Term) Domain() (kMin, kMax float64) { return t.kMin, t.kMax }

// Table returns copies of the tabulated wavenumbers and values.
func (t *Term) Table() (k, values []float64) {
	return append([]float64(nil), t.k...), append([]float64(nil), t.values...)
}

// LogValues reports whether the term is interpolated in log space.
func (t *Term) LogValues() bool { return t.logValues }

func checkTable(xs, ys []float64) error {
	if len(xs) != len(ys) {
		return fmt.Errorf("spline: %d abscissas for %d values", len(xs), len(ys))
	}
	if len(xs) < MinPoints {
		return fmt.Errorf("spline: need at least %d points, got %d", MinPoints, len(xs))
	}
	for i := range xs {
		if math.IsNaN(xs[i]) || math.IsInf(xs[i], 0) || math.IsNaN(ys[i]) || math.IsInf(ys[i], 0) {
			return fmt.Errorf("spline: point %d (%g, %g) is not finite", i, xs[i], ys[i])
		}
		if i > 0 && !(xs[i] > xs[i-1]) {
			return fmt.Errorf("spline: abscissas not strictly increasing at %d", i)
		}
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	switch {
	case x < lo:
		return lo
	case x > hi:
		return hi
	}
	return x
}

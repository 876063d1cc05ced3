package halo

import (
	"bufio"
	"fmt"
	"io"
	"math"
)

func writeHeader(w *bufio.Writer, columns ...string) {
	for i, c := range columns {
		fmt.Fprintf(w, "#ttype%d = %s\n", i+1, c)
	}
}

func writeRow(w *bufio.Writer, values ...float64) {
	for i, v := range values {
		if i > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(w, "%.10e", v)
	}
	w.WriteByte('\n')
}

// WriteTable writes the spectra of m over the engine's wavenumber grid as a
// space-delimited table: k, linear power, P_mm, P_gg, P_gm.
func WriteTable(w io.Writer, m Model) error {
	k := m.Engine().K()
	lin := m.LinearPower(k)
	mm, err := m.PowerMM(k)
	if err != nil {
		return err
	}
	gg, err := m.PowerGG(k)
	if err != nil {
		return err
	}
	gm, err := m.PowerGM(k)
	if err != nil {
		return err
	}

	bw := bufio.NewWriter(w)
	writeHeader(bw, "k [h/Mpc]", "linear_power [(Mpc/h)^3]", "power_mm", "power_gg", "power_gm")
	for i := range k {
		writeRow(bw, k[i], lin[i], mm[i], gg[i], gm[i])
	}
	return bw.Flush()
}

// WriteComponents writes the five halo integrals over the wavenumber grid.
func (e *Engine) WriteComponents(w io.Writer) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	ids := []termID{termHM, termPPMM, termHG, termPPGM, termPPGG}
	cols := make([][]float64, len(ids))
	for i, id := range ids {
		v, err := e.evalTerm(id, e.k)
		if err != nil {
			return err
		}
		cols[i] = v
	}

	bw := bufio.NewWriter(w)
	writeHeader(bw, "k [h/Mpc]", "2 halo dark matter component", "dark matter poisson component",
		"2 halo galaxy component", "matter-galaxy poisson component", "galaxy-galaxy poisson component")
	for j, k := range e.k {
		writeRow(bw, k, cols[0][j], cols[1][j], cols[2][j], cols[3][j], cols[4][j])
	}
	return bw.Flush()
}

// WriteProfile writes the halo properties over the mass grid, with the
// profile transform evaluated at wavenumber k [h/Mpc].
func (e *Engine) WriteProfile(w io.Writer, k float64) error {
	if !(k > 0) || math.IsInf(k, 0) {
		return fmt.Errorf("profile wavenumber must be positive and finite, got %g", k)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	g, err := e.geometryLocked()
	if err != nil {
		return err
	}
	lnK, h := math.Log(k), e.cosmo.H()

	bw := bufio.NewWriter(w)
	writeHeader(bw, "mass [M_solar/h]", "y(k, M), NFW Fourier Transform", "concentration",
		"halo_norm", "virial_radius [Mpc/h]")
	for _, lnM := range e.mass.LnMassGrid() {
		m := math.Exp(lnM)
		writeRow(bw, m, g.profile(lnK, h, m), g.concentration.At(m), g.normalization.At(m), g.virialRadius.At(m))
	}
	return bw.Flush()
}

package halo

// Exclusion is the halo model with halo exclusion in the galaxy terms. The
// matter spectrum is the standard one; the galaxy 2-halo terms use that
// non-linear matter spectrum in place of the linear one, and h_g is computed
// with each halo's pairs inside twice its virial radius removed.
type Exclusion struct {
	e *Engine
}

// NewExclusion returns the halo-exclusion model over e.
func NewExclusion(e *Engine) *Exclusion { return &Exclusion{e: e} }

// Name implements Model.
func (x *Exclusion) Name() string { return NameExclusion }

// Engine implements Model.
func (x *Exclusion) Engine() *Engine { return x.e }

// LinearPower implements Model.
func (x *Exclusion) LinearPower(k []float64) []float64 { return x.e.LinearPower(k) }

// PowerMM implements Model.
func (x *Exclusion) PowerMM(k []float64) ([]float64, error) {
	x.e.mu.Lock()
	defer x.e.mu.Unlock()
	return x.e.haloPowerMM(k)
}

// PowerGM implements Model.
func (x *Exclusion) PowerGM(k []float64) ([]float64, error) {
	x.e.mu.Lock()
	defer x.e.mu.Unlock()
	mm, err := x.e.haloPowerMM(k)
	if err != nil {
		return nil, err
	}
	return x.e.galaxyMatterPower(k, mm, termHGExclusion)
}

// PowerMG implements Model.
func (x *Exclusion) PowerMG(k []float64) ([]float64, error) { return x.PowerGM(k) }

// PowerGG implements Model.
func (x *Exclusion) PowerGG(k []float64) ([]float64, error) {
	x.e.mu.Lock()
	defer x.e.mu.Unlock()
	mm, err := x.e.haloPowerMM(k)
	if err != nil {
		return nil, err
	}
	return x.e.galaxyPower(k, mm, termHGExclusion)
}

// Clone implements Model.
func (x *Exclusion) Clone() Model { return NewExclusion(x.e.Clone()) }

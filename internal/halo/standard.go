package halo

// Standard is the plain halo model:
//
//	P_mm = P_lin h_m² + pp_mm
//	P_gm = P_lin h_g h_m + pp_gm
//	P_gg = P_lin h_g² + pp_gg
type Standard struct {
	e *Engine
}

// NewStandard returns the standard halo model over e.
func NewStandard(e *Engine) *Standard { return &Standard{e: e} }

// Name implements Model.
func (s *Standard) Name() string { return NameStandard }

// Engine implements Model.
func (s *Standard) Engine() *Engine { return s.e }

// LinearPower implements Model.
func (s *Standard) LinearPower(k []float64) []float64 { return s.e.LinearPower(k) }

// PowerMM implements Model.
func (s *Standard) PowerMM(k []float64) ([]float64, error) {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	return s.e.haloPowerMM(k)
}

// PowerGM implements Model.
func (s *Standard) PowerGM(k []float64) ([]float64, error) {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	return s.e.galaxyMatterPower(k, s.e.linearPower(k), termHG)
}

// PowerMG implements Model.
func (s *Standard) PowerMG(k []float64) ([]float64, error) { return s.PowerGM(k) }

// PowerGG implements Model.
func (s *Standard) PowerGG(k []float64) ([]float64, error) {
	s.e.mu.Lock()
	defer s.e.mu.Unlock()
	return s.e.galaxyPower(k, s.e.linearPower(k), termHG)
}

// Clone implements Model.
func (s *Standard) Clone() Model { return NewStandard(s.e.Clone()) }

// haloPowerMM is the halo-model matter spectrum. The caller holds e.mu.
func (e *Engine) haloPowerMM(k []float64) ([]float64, error) {
	hm, err := e.evalTerm(termHM, k)
	if err != nil {
		return nil, err
	}
	pp, err := e.evalTerm(termPPMM, k)
	if err != nil {
		return nil, err
	}
	out := e.linearPower(k)
	for i := range out {
		out[i] = out[i]*hm[i]*hm[i] + pp[i]
	}
	return out, nil
}

// galaxyMatterPower combines twoHalo·h_g·h_m + pp_gm, with h_g read from the
// given slot. The caller holds e.mu.
func (e *Engine) galaxyMatterPower(k, twoHalo []float64, hg termID) ([]float64, error) {
	hm, err := e.evalTerm(termHM, k)
	if err != nil {
		return nil, err
	}
	g, err := e.evalTerm(hg, k)
	if err != nil {
		return nil, err
	}
	pp, err := e.evalTerm(termPPGM, k)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(k))
	for i := range out {
		out[i] = twoHalo[i]*g[i]*hm[i] + pp[i]
	}
	return out, nil
}

// galaxyPower combines twoHalo·h_g² + pp_gg. The caller holds e.mu.
func (e *Engine) galaxyPower(k, twoHalo []float64, hg termID) ([]float64, error) {
	g, err := e.evalTerm(hg, k)
	if err != nil {
		return nil, err
	}
	pp, err := e.evalTerm(termPPGG, k)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(k))
	for i := range out {
		out[i] = twoHalo[i]*g[i]*g[i] + pp[i]
	}
	return out, nil
}

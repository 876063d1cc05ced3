package halo

import (
	"fmt"
	"sort"
	"sync"
)

// Model is a power-spectrum strategy over an Engine. All spectra take
// wavenumbers in h/Mpc and return one value per wavenumber in (Mpc/h)^3;
// wavenumbers outside the engine's domain yield 0. PowerMG always equals
// PowerGM.
type Model interface {
	// Name is the registry name of the strategy.
	Name() string
	// Engine returns the term cache the model reads from. Mutations go
	// through the engine.
	Engine() *Engine
	// LinearPower is the linear power spectrum of the current cosmology.
	LinearPower(k []float64) []float64
	PowerMM(k []float64) ([]float64, error)
	PowerGM(k []float64) ([]float64, error)
	PowerMG(k []float64) ([]float64, error)
	PowerGG(k []float64) ([]float64, error)
	// Clone returns the same strategy over a clone of the engine.
	Clone() Model
}

// Strategy names.
const (
	NameStandard  = "standard"
	NameExclusion = "exclusion"
	NameHalofit   = "halofit"
)

// Registry maps strategy names to constructors.
type Registry struct {
	mu       sync.RWMutex
	creators map[string]func(*Engine) Model
}

// NewRegistry returns a registry with the built-in strategies:
//   - "standard": linear 2-halo term plus the Poisson term
//   - "exclusion": non-linear 2-halo galaxy terms with halo exclusion
//   - "halofit": empirical matter spectrum with halo-model galaxy terms
func NewRegistry() *Registry {
	r := &Registry{creators: make(map[string]func(*Engine) Model)}
	r.Register(NameStandard, func(e *Engine) Model { return NewStandard(e) })
	r.Register(NameExclusion, func(e *Engine) Model { return NewExclusion(e) })
	r.Register(NameHalofit, func(e *Engine) Model { return NewEmpiricalFit(e) })
	return r
}

// Register adds or replaces a strategy.
func (r *Registry) Register(name string, creator func(*Engine) Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creators[name] = creator
}

// Create builds the named strategy over e.
func (r *Registry) Create(name string, e *Engine) (Model, error) {
	r.mu.RLock()
	creator, ok := r.creators[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	if e == nil {
		return nil, fmt.Errorf("model %s: nil engine", name)
	}
	return creator(e), nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.creators[name]
	return ok
}

// List returns the registered names in alphabetical order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.creators))
	for name := range r.creators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package nn

import (
	"sync"

	"github.com/born-ml/fixpoint/internal/spectral"
	"github.com/pkg/errors"
)

// Bound tags a weight with the interval its singular values must lie in.
type Bound struct {
	Param  *Parameter
	Lo, Hi float64
}

// BoundRegistry lists the bounded weights of an operator set.
//
// Bounded layers register themselves at construction. Projection rewrites the
// registered weights in place and holds the write lock while doing so; solves
// and gradient evaluations that read those weights hold the read lock.
type BoundRegistry struct {
	mu     sync.RWMutex
	bounds []Bound
}

// NewBoundRegistry creates an empty registry.
func NewBoundRegistry() *BoundRegistry {
	return &BoundRegistry{}
}

// Register adds p with singular values bounded to [lo, hi].
func (r *BoundRegistry) Register(p *Parameter, lo, hi float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bounds = append(r.bounds, Bound{Param: p, Lo: lo, Hi: hi})
}

// Entries returns a copy of the registered bounds in registration order.
func (r *BoundRegistry) Entries() []Bound {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Bound, len(r.bounds))
	copy(out, r.bounds)
	return out
}

// Len returns the number of registered weights.
func (r *BoundRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bounds)
}

// Project clamps every registered weight into its interval.
func (r *BoundRegistry) Project(opts spectral.Options) error {
	return r.ProjectWithFloor(0, opts)
}

// ProjectWithFloor is Project with every lower bound raised to floor, capped
// at the upper bound. Operator sets use it at construction to lift small
// singular values.
func (r *BoundRegistry) ProjectWithFloor(floor float64, opts spectral.Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bounds {
		lo := min(max(b.Lo, floor), b.Hi)
		if err := spectral.Project(b.Param.Value(), lo, b.Hi, opts); err != nil {
			return errors.WithMessagef(err, "projecting %s", b.Param.Name())
		}
	}
	return nil
}

// RLock acquires shared access to the registered weights.
func (r *BoundRegistry) RLock() {
	r.mu.RLock()
}

// RUnlock releases shared access.
func (r *BoundRegistry) RUnlock() {
	r.mu.RUnlock()
}

// Lock acquires exclusive access, e.g. for an optimizer step.
func (r *BoundRegistry) Lock() {
	r.mu.Lock()
}

// Unlock releases exclusive access.
func (r *BoundRegistry) Unlock() {
	r.mu.Unlock()
}

package facet

import (
	"sync"
)

// Container owns exactly one core entity and a set of attached facets
// keyed by facet type. The core reference is fixed at construction; the
// facet set changes at runtime through Attach and Detach.
//
// Two locks split the container's concurrency concerns. opMu serializes
// Attach and Detach end to end, lifecycle hooks included, so concurrent
// mutations cannot interleave and each hook runs exactly once. mu guards
// the facet mapping itself and is never held while a hook or a
// caller-supplied operation runs, so hooks may read the container; they
// must not attach or detach facets on it.
type Container struct {
	opMu sync.Mutex

	mu     sync.RWMutex
	core   any
	facets map[Type]Facet
	order  []Type
}

// New creates a container wrapping core with zero facets attached. The
// core entity is opaque to the engine: it is never introspected beyond
// being the last delegation target.
func New(core any) *Container {
	return &Container{
		core:   core,
		facets: make(map[Type]Facet),
	}
}

// Core returns the wrapped entity. The container never mutates it.
func (c *Container) Core() any {
	return c.core
}

// Attach registers f under f.FacetType() and returns the same facet
// reference for further configuration. It fails with DuplicateFacetError
// when the type is already registered; the attempted facet is neither
// mutated nor retained in that case.
//
// If f implements AttachObserver, OnAttached runs after registration and
// before Attach returns. The whole sequence holds the operation lock, so
// a concurrent Attach or Detach waits until the hook has finished.
func (c *Container) Attach(f Facet) (Facet, error) {
	t := f.FacetType()

	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if _, exists := c.facets[t]; exists {
		c.mu.Unlock()
		return nil, &DuplicateFacetError{Type: t}
	}
	c.facets[t] = f
	c.order = append(c.order, t)
	c.mu.Unlock()

	if obs, ok := f.(AttachObserver); ok {
		obs.OnAttached(c)
	}
	return f, nil
}

// Detach removes and returns the facet registered under t. Detaching an
// absent type is a no-op query: it returns (nil, false) without error and
// leaves the mapping untouched.
//
// If the facet implements DetachObserver, OnDetached runs while the facet
// is still registered; afterwards no lookup path, including delegation,
// can reach it. Ownership of the returned facet transfers to the caller.
// The operation lock covers lookup, hook, and removal, so of two
// concurrent Detach calls for the same type exactly one wins and the
// other reports absence.
func (c *Container) Detach(t Type) (Facet, bool) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	f, ok := c.facets[t]
	c.mu.Unlock()
	if !ok {
		return nil, false
	}

	if obs, ok := f.(DetachObserver); ok {
		obs.OnDetached(c)
	}

	c.mu.Lock()
	delete(c.facets, t)
	for i, existing := range c.order {
		if existing == t {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.mu.Unlock()
	return f, true
}

// Get returns the facet registered under t, if any. It never creates and
// never errors on absence.
func (c *Container) Get(t Type) (Facet, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	f, ok := c.facets[t]
	return f, ok
}

// Has reports whether a facet is registered under t.
func (c *Container) Has(t Type) bool {
	_, ok := c.Get(t)
	return ok
}

// Types returns a snapshot of the attached facet types in attachment
// order. The slice reflects the state at call time only.
func (c *Container) Types() []Type {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Type, len(c.order))
	copy(out, c.order)
	return out
}

// With executes op with the facet registered under t. It fails with
// MissingFacetError when the facet is absent; op is never invoked in that
// case. This is the sanctioned way to perform a facet-typed action: the
// precondition is explicit and the error centralized instead of every
// caller nil-checking.
func (c *Container) With(t Type, op func(Facet) (any, error)) (any, error) {
	c.mu.RLock()
	f, ok := c.facets[t]
	c.mu.RUnlock()
	if !ok {
		return nil, &MissingFacetError{Type: t}
	}
	return op(f)
}

// Require verifies every type in types is attached before invoking op
// with the container. The check is batched: when any are missing it fails
// with MissingFacetsError carrying the complete missing set in the order
// requested, and op is never invoked. When all are present, op runs
// exactly once.
func (c *Container) Require(types []Type, op func(*Container) error) error {
	c.mu.RLock()
	var missing []Type
	for _, t := range types {
		if _, ok := c.facets[t]; !ok {
			missing = append(missing, t)
		}
	}
	c.mu.RUnlock()

	if len(missing) > 0 {
		return &MissingFacetsError{Missing: missing}
	}
	return op(c)
}

// Delegate routes a dynamic operation call: attached facets are searched
// in attachment order for the first Invoker exposing name; if none does,
// the core entity is tried; if neither exposes it, Delegate fails with
// UnknownOperationError. This realizes "the container behaves as if it
// had every attached facet's operations plus the core entity's" without
// regenerating the container's interface on attach or detach.
func (c *Container) Delegate(name string, args ...any) (any, error) {
	op, ok := c.resolve(name)
	if !ok {
		return nil, &UnknownOperationError{Name: name}
	}
	return op(args...)
}

// resolve finds the operation for name under the read lock but does not
// invoke it, so the operation itself runs with the lock released.
func (c *Container) resolve(name string) (Operation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, t := range c.order {
		inv, ok := c.facets[t].(Invoker)
		if !ok {
			continue
		}
		if op, ok := inv.Operation(name); ok {
			return op, true
		}
	}
	if inv, ok := c.core.(Invoker); ok {
		if op, ok := inv.Operation(name); ok {
			return op, true
		}
	}
	return nil, false
}

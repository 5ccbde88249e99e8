package facet

// Type identifies a facet kind. The value is stable per kind, not per
// instance: two facets of the same kind report the same Type, and a
// container holds at most one facet per Type at any time.
//
// Types are declared explicitly by each facet package (typically as a
// package-level constant), never derived from a Go type name.
type Type string

func (t Type) String() string {
	return string(t)
}

// Facet is the minimal contract an attachable behavior unit must satisfy.
//
// FacetType must be pure and deterministic: it returns the same value for
// the lifetime of the instance and matches the value other instances of
// the same kind produce. Violations are a caller bug, not a runtime
// detectable failure.
type Facet interface {
	FacetType() Type
}

// AttachObserver is implemented by facets that want to be notified after
// they are registered on a container. OnAttached runs exactly once,
// synchronously, before Attach returns to its caller. The hook may read
// the container (including other facets) but must not attach or detach
// facets on the same container.
type AttachObserver interface {
	OnAttached(c *Container)
}

// DetachObserver is implemented by facets that want to be notified before
// their removal completes. OnDetached runs exactly once, synchronously,
// while the facet is still registered. The same re-entrancy restriction
// as OnAttached applies.
type DetachObserver interface {
	OnDetached(c *Container)
}

// Operation is a type-erased facet operation invocable through Delegate.
type Operation func(args ...any) (any, error)

// Invoker exposes named operations for dynamic dispatch. Facets (and
// optionally the core entity) implement it to participate in Delegate.
//
// Callers that know the member name at compile time should prefer the
// typed accessors in typed.go over Delegate; Invoker exists for genuinely
// dynamic call sites such as configuration-driven orchestration.
type Invoker interface {
	// Operation returns the named operation, or false when the receiver
	// does not expose it. Lookup must be side-effect free.
	Operation(name string) (Operation, bool)
}

package facet

import "fmt"

// Lookup returns the facet registered under t asserted to its concrete
// type F. It is the compile-time-typed companion to Container.Get for
// call sites that know the facet kind statically; ok is false when the
// facet is absent or has a different concrete type.
func Lookup[F Facet](c *Container, t Type) (F, bool) {
	var zero F
	f, ok := c.Get(t)
	if !ok {
		return zero, false
	}
	typed, ok := f.(F)
	if !ok {
		return zero, false
	}
	return typed, true
}

// With executes op with the facet registered under t asserted to F.
// Absence fails with MissingFacetError; a present facet of a different
// concrete type fails with WrongFacetTypeError (a caller bug, surfaced
// explicitly rather than panicking).
func With[F Facet](c *Container, t Type, op func(F) error) error {
	f, ok := c.Get(t)
	if !ok {
		return &MissingFacetError{Type: t}
	}
	typed, ok := f.(F)
	if !ok {
		return &WrongFacetTypeError{Type: t, Got: fmt.Sprintf("%T", f)}
	}
	return op(typed)
}

package facet

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for composition failures. Typed errors below match these
// through errors.Is so callers can branch without losing the detail the
// typed forms carry.
var (
	// ErrDuplicateFacet indicates an attach with a facet type that is
	// already registered on the container.
	ErrDuplicateFacet = errors.New("facet type already attached")

	// ErrMissingFacet indicates a single-facet precondition was unmet.
	ErrMissingFacet = errors.New("required facet not attached")

	// ErrMissingFacets indicates a multi-facet precondition was unmet.
	ErrMissingFacets = errors.New("required facets not attached")

	// ErrUnknownOperation indicates delegation found no facet or core
	// entity exposing the requested operation.
	ErrUnknownOperation = errors.New("unknown operation")

	// ErrWrongFacetType indicates a facet is registered under the
	// requested type but its concrete Go type differs from what a typed
	// accessor expected.
	ErrWrongFacetType = errors.New("facet has wrong concrete type")
)

// DuplicateFacetError reports the facet type that was already attached.
type DuplicateFacetError struct {
	Type Type
}

func (e *DuplicateFacetError) Error() string {
	return fmt.Sprintf("facet type already attached: %s", e.Type)
}

func (e *DuplicateFacetError) Is(target error) bool {
	return target == ErrDuplicateFacet
}

// MissingFacetError reports the facet type a gated operation required.
type MissingFacetError struct {
	Type Type
}

func (e *MissingFacetError) Error() string {
	return fmt.Sprintf("required facet not attached: %s", e.Type)
}

func (e *MissingFacetError) Is(target error) bool {
	return target == ErrMissingFacet
}

// MissingFacetsError carries the complete set of missing facet types for
// a batch precondition, in the order they were requested.
type MissingFacetsError struct {
	Missing []Type
}

func (e *MissingFacetsError) Error() string {
	names := make([]string, len(e.Missing))
	for i, t := range e.Missing {
		names[i] = string(t)
	}
	return fmt.Sprintf("required facets not attached: %s", strings.Join(names, ", "))
}

func (e *MissingFacetsError) Is(target error) bool {
	return target == ErrMissingFacets
}

// UnknownOperationError reports the operation name delegation failed to
// route.
type UnknownOperationError struct {
	Name string
}

func (e *UnknownOperationError) Error() string {
	return fmt.Sprintf("unknown operation: %s", e.Name)
}

func (e *UnknownOperationError) Is(target error) bool {
	return target == ErrUnknownOperation
}

// WrongFacetTypeError reports a typed accessor mismatch: the facet type is
// attached but its concrete Go type is not what the caller asked for.
type WrongFacetTypeError struct {
	Type Type
	Got  string
}

func (e *WrongFacetTypeError) Error() string {
	return fmt.Sprintf("facet %s has wrong concrete type (%s)", e.Type, e.Got)
}

func (e *WrongFacetTypeError) Is(target error) bool {
	return target == ErrWrongFacetType
}

// IsDuplicateFacet reports whether err indicates a duplicate attach.
func IsDuplicateFacet(err error) bool {
	return errors.Is(err, ErrDuplicateFacet)
}

// IsMissingFacet reports whether err indicates an unmet single-facet
// precondition.
func IsMissingFacet(err error) bool {
	return errors.Is(err, ErrMissingFacet)
}

// IsMissingFacets reports whether err indicates an unmet batch
// precondition.
func IsMissingFacets(err error) bool {
	return errors.Is(err, ErrMissingFacets)
}

// IsUnknownOperation reports whether err indicates a failed delegation.
func IsUnknownOperation(err error) bool {
	return errors.Is(err, ErrUnknownOperation)
}

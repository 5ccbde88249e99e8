// Package domain defines the core business types for the faceted
// composition demo: the entities that containers wrap.
//
// This package contains pure domain data with no dependencies beyond the
// Go standard library and the engine contract in pkg/facet. Facet
// packages and the assembly layer depend on these types; the dependency
// direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain

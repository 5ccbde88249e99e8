// Package facet implements the capability-composition engine: a container
// that wraps a single core entity and lets independent behavior units
// (facets) be attached and detached at runtime.
//
// Architecture:
//
// facet.go     - Facet contract, lifecycle observers, Invoker dispatch surface
// container.go - Container (attach/detach/lookup, gated execution, delegation)
// errors.go    - Sentinel and typed errors for composition failures
// typed.go     - Generic typed accessors for compile-time known facet kinds
//
// The engine is deliberately free of logging and retry behavior; all
// failures are synchronous and recoverable, and observability belongs to
// the caller.
package facet

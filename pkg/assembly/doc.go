// Package assembly is the orchestration layer on top of the composition
// engine: YAML profiles describe which facets a container gets, a factory
// registry builds facets from profile config, and EmployeeService carries
// the composite operations that span multiple facets.
//
// The engine in pkg/facet performs no logging; observability for
// composite operations (structured logs, trace spans) lives here.
package assembly

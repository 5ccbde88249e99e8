// Package audit implements the audit-trail facet: a bounded, in-memory
// record of operations performed against the container the facet is
// attached to.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/polisai/facets-oss/pkg/facet"
)

// FacetType is the identifier the audit facet registers under.
const FacetType facet.Type = "audit"

// DefaultMaxEntries bounds the trail when New is given a non-positive
// limit. Oldest entries are evicted first.
const DefaultMaxEntries = 1000

// Entry is a single audit record.
type Entry struct {
	Time      time.Time
	Operation string
	Details   string
}

// Audit records operations with timestamps. It registers its own attach
// and detach through the container lifecycle hooks, so the trail always
// brackets the facet's time on a container.
type Audit struct {
	mu      sync.Mutex
	entries []Entry
	max     int

	now func() time.Time // swapped in tests
}

// New creates an audit facet keeping at most maxEntries records.
func New(maxEntries int) *Audit {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Audit{max: maxEntries, now: time.Now}
}

// FacetType implements facet.Facet.
func (a *Audit) FacetType() facet.Type {
	return FacetType
}

// OnAttached implements facet.AttachObserver.
func (a *Audit) OnAttached(*facet.Container) {
	a.Record("audit.attached", "audit facet attached")
}

// OnDetached implements facet.DetachObserver.
func (a *Audit) OnDetached(*facet.Container) {
	a.Record("audit.detached", "audit facet detaching")
}

// Record appends an entry, evicting the oldest when the trail is full.
func (a *Audit) Record(operation, details string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, Entry{
		Time:      a.now(),
		Operation: operation,
		Details:   details,
	})
	if len(a.entries) > a.max {
		a.entries = a.entries[len(a.entries)-a.max:]
	}
}

// Trail returns a copy of all recorded entries, oldest first.
func (a *Audit) Trail() []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Entry, len(a.entries))
	copy(out, a.entries)
	return out
}

// Recent returns a copy of the newest n entries, oldest first.
func (a *Audit) Recent(n int) []Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	if n > len(a.entries) {
		n = len(a.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]Entry, n)
	copy(out, a.entries[len(a.entries)-n:])
	return out
}

// Operation implements facet.Invoker, exposing audit_trail.
func (a *Audit) Operation(name string) (facet.Operation, bool) {
	if name != "audit_trail" {
		return nil, false
	}
	return func(args ...any) (any, error) {
		if len(args) != 0 {
			return nil, fmt.Errorf("audit_trail takes no arguments, got %d", len(args))
		}
		return a.Trail(), nil
	}, true
}

// From returns the audit facet attached to c, if present.
func From(c *facet.Container) (*Audit, bool) {
	return facet.Lookup[*Audit](c, FacetType)
}

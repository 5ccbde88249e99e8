package assembly

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/polisai/facets-oss/pkg/facet"
	"github.com/polisai/facets-oss/pkg/facets/account"
	"github.com/polisai/facets-oss/pkg/facets/audit"
	"github.com/polisai/facets-oss/pkg/facets/notify"
	"github.com/polisai/facets-oss/pkg/facets/perf"
	"github.com/polisai/facets-oss/pkg/facets/policy"
	"github.com/polisai/facets-oss/pkg/facets/security"
)

// ErrUnknownFacetType indicates a profile referenced a facet type no
// factory is registered for.
var ErrUnknownFacetType = errors.New("no factory for facet type")

// UnknownFacetTypeError reports the unregistered facet type by name.
type UnknownFacetTypeError struct {
	Type facet.Type
}

func (e *UnknownFacetTypeError) Error() string {
	return fmt.Sprintf("no factory for facet type: %s", e.Type)
}

func (e *UnknownFacetTypeError) Is(target error) bool {
	return target == ErrUnknownFacetType
}

// Factory builds a facet instance from profile configuration.
type Factory func(ctx context.Context, cfg map[string]any) (facet.Facet, error)

// Assembler turns profiles into assembled containers using a registry of
// facet factories. Factories for every built-in facet kind are registered
// at construction; callers add their own with Register.
type Assembler struct {
	mu         sync.RWMutex
	factories  map[facet.Type]Factory
	registerer prometheus.Registerer
}

// NewAssembler creates an assembler. Perf facets built by the default
// factory register their collectors on reg; a nil reg selects the
// process-default registerer.
func NewAssembler(reg prometheus.Registerer) *Assembler {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	a := &Assembler{
		factories:  make(map[facet.Type]Factory),
		registerer: reg,
	}
	a.registerDefaultFactories()
	return a
}

// Register adds or replaces the factory for a facet type.
func (a *Assembler) Register(t facet.Type, f Factory) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.factories[t] = f
}

// Build constructs a single facet of type t from factory configuration,
// without attaching it anywhere.
func (a *Assembler) Build(ctx context.Context, t facet.Type, cfg map[string]any) (facet.Facet, error) {
	a.mu.RLock()
	factory, ok := a.factories[t]
	a.mu.RUnlock()
	if !ok {
		return nil, &UnknownFacetTypeError{Type: t}
	}
	f, err := factory(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build facet %s: %w", t, err)
	}
	return f, nil
}

// Assemble builds a container around core and attaches one facet per
// profile spec, in profile order. The first failing factory or attach
// aborts assembly.
func (a *Assembler) Assemble(ctx context.Context, profile Profile, core any) (*facet.Container, error) {
	c := facet.New(core)
	for _, spec := range profile.Facets {
		t := facet.Type(spec.Type)
		f, err := a.Build(ctx, t, spec.Config)
		if err != nil {
			return nil, err
		}
		if _, err := c.Attach(f); err != nil {
			return nil, fmt.Errorf("attach facet %s: %w", t, err)
		}
	}
	return c, nil
}

func (a *Assembler) registerDefaultFactories() {
	a.factories[account.FacetType] = func(_ context.Context, cfg map[string]any) (facet.Facet, error) {
		number, _ := stringOpt(cfg, "account_number")
		if number == "" {
			return nil, errors.New("account facet requires account_number")
		}
		return account.New(number), nil
	}

	a.factories[security.FacetType] = func(_ context.Context, cfg map[string]any) (facet.Facet, error) {
		role, _ := stringOpt(cfg, "role")
		if role == "" {
			return nil, errors.New("security facet requires role")
		}
		ttl, err := durationOpt(cfg, "session_ttl")
		if err != nil {
			return nil, err
		}
		return security.New(role, ttl), nil
	}

	a.factories[audit.FacetType] = func(_ context.Context, cfg map[string]any) (facet.Facet, error) {
		max, err := intOpt(cfg, "max_entries")
		if err != nil {
			return nil, err
		}
		return audit.New(max), nil
	}

	a.factories[notify.FacetType] = func(_ context.Context, cfg map[string]any) (facet.Facet, error) {
		buffer, err := intOpt(cfg, "buffer")
		if err != nil {
			return nil, err
		}
		return notify.New(buffer), nil
	}

	a.factories[perf.FacetType] = func(_ context.Context, _ map[string]any) (facet.Facet, error) {
		// Collectors need distinct label sets per container to coexist on
		// one registry.
		labels := prometheus.Labels{"container": uuid.New().String()}
		return perf.New(a.registerer, labels)
	}

	a.factories[policy.FacetType] = func(ctx context.Context, cfg map[string]any) (facet.Facet, error) {
		modules, err := moduleOpt(cfg, "modules")
		if err != nil {
			return nil, err
		}
		entrypoint, _ := stringOpt(cfg, "entrypoint")
		return policy.New(ctx, modules, entrypoint)
	}
}

func stringOpt(cfg map[string]any, key string) (string, bool) {
	v, ok := cfg[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// intOpt returns 0 when the key is absent; the facet constructors treat
// zero as "use the default".
func intOpt(cfg map[string]any, key string) (int, error) {
	v, ok := cfg[key]
	if !ok {
		return 0, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%s must be an integer, got %v", key, n)
		}
		return int(n), nil
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T", key, v)
	}
}

func durationOpt(cfg map[string]any, key string) (time.Duration, error) {
	v, ok := cfg[key]
	if !ok {
		return 0, nil
	}
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("%s must be a duration string, got %T", key, v)
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return d, nil
}

func moduleOpt(cfg map[string]any, key string) (map[string]string, error) {
	v, ok := cfg[key]
	if !ok {
		return nil, fmt.Errorf("policy facet requires %s", key)
	}
	raw, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("%s must be a map of module name to rego source, got %T", key, v)
	}
	modules := make(map[string]string, len(raw))
	for name, src := range raw {
		s, ok := src.(string)
		if !ok {
			return nil, fmt.Errorf("%s[%s] must be a string, got %T", key, name, src)
		}
		modules[name] = s
	}
	return modules, nil
}

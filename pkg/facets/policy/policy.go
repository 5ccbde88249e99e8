// Package policy implements a policy-as-code facet backed by an embedded
// OPA Rego engine, for callers that want capability gating expressed as
// policy rather than a static permission map.
package policy

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/ast"
	//nolint:staticcheck // OPA v1 migration pending
	"github.com/open-policy-agent/opa/rego"

	"github.com/polisai/facets-oss/pkg/facet"
)

// FacetType is the identifier the policy facet registers under.
const FacetType facet.Type = "policy"

const defaultEntrypoint = "facets/authz/decision"

// ErrNoModules indicates the facet was constructed without Rego modules.
var ErrNoModules = errors.New("policy facet requires at least one rego module")

// Decision is the structured outcome of a policy evaluation.
type Decision struct {
	Allow  bool
	Reason string
}

// Policy evaluates Rego decisions for the entity it is attached to.
// Modules are parsed and compiled once at construction so syntax errors
// surface early, before the facet is ever attached.
type Policy struct {
	entrypoint string
	modules    map[string]*ast.Module
	order      []string

	mu       sync.RWMutex
	prepared map[string]*rego.PreparedEvalQuery
}

// New constructs a policy facet from Rego module sources keyed by module
// name. An empty entrypoint selects the default decision path.
func New(ctx context.Context, modules map[string]string, entrypoint string) (*Policy, error) {
	entry := strings.TrimSpace(entrypoint)
	if entry == "" {
		entry = defaultEntrypoint
	}
	if len(modules) == 0 {
		return nil, ErrNoModules
	}

	order := make([]string, 0, len(modules))
	for name := range modules {
		order = append(order, name)
	}
	sort.Strings(order)

	parsed := make(map[string]*ast.Module, len(modules))
	for _, name := range order {
		module, err := ast.ParseModuleWithOpts(name, modules[name], ast.ParserOptions{RegoVersion: ast.RegoV1})
		if err != nil {
			return nil, fmt.Errorf("parse rego module %q: %w", name, err)
		}
		parsed[name] = module
	}

	p := &Policy{
		entrypoint: entry,
		modules:    parsed,
		order:      order,
		prepared:   make(map[string]*rego.PreparedEvalQuery),
	}

	// Warm the default entrypoint to surface compile errors early.
	if _, err := p.preparedQuery(ctx, entry); err != nil {
		return nil, fmt.Errorf("compile rego modules: %w", err)
	}
	return p, nil
}

// FacetType implements facet.Facet.
func (p *Policy) FacetType() facet.Type {
	return FacetType
}

// Evaluate runs the default entrypoint against input and interprets the
// result document as a Decision. A missing or undefined result denies.
func (p *Policy) Evaluate(ctx context.Context, input map[string]any) (Decision, error) {
	prepared, err := p.preparedQuery(ctx, p.entrypoint)
	if err != nil {
		return Decision{}, fmt.Errorf("prepare query: %w", err)
	}

	results, err := prepared.Eval(ctx, rego.EvalInput(input))
	if err != nil {
		return Decision{}, fmt.Errorf("opa decision: %w", err)
	}
	if len(results) == 0 || len(results[0].Expressions) == 0 {
		return Decision{Allow: false, Reason: "undefined decision"}, nil
	}

	switch value := results[0].Expressions[0].Value.(type) {
	case bool:
		return Decision{Allow: value}, nil
	case map[string]any:
		allow, _ := value["allow"].(bool)
		reason, _ := value["reason"].(string)
		return Decision{Allow: allow, Reason: reason}, nil
	default:
		return Decision{}, fmt.Errorf("opa decision: unexpected result type %T", value)
	}
}

// Allowed is a convenience wrapper around Evaluate for callers that only
// need the boolean outcome.
func (p *Policy) Allowed(ctx context.Context, input map[string]any) (bool, error) {
	decision, err := p.Evaluate(ctx, input)
	if err != nil {
		return false, err
	}
	return decision.Allow, nil
}

func (p *Policy) preparedQuery(ctx context.Context, entry string) (*rego.PreparedEvalQuery, error) {
	p.mu.RLock()
	if prepared, ok := p.prepared[entry]; ok {
		p.mu.RUnlock()
		return prepared, nil
	}
	p.mu.RUnlock()

	query := "data." + strings.ReplaceAll(entry, "/", ".")

	opts := make([]func(*rego.Rego), 0, len(p.modules)+1)
	opts = append(opts, rego.Query(query))
	for _, name := range p.order {
		opts = append(opts, rego.ParsedModule(p.modules[name]))
	}

	prepared, err := rego.New(opts...).PrepareForEval(ctx)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.prepared[entry] = &prepared
	return &prepared, nil
}

// From returns the policy facet attached to c, if present.
func From(c *facet.Container) (*Policy, bool) {
	return facet.Lookup[*Policy](c, FacetType)
}

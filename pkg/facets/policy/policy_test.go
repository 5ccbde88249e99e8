package policy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/polisai/facets-oss/pkg/facet"
	"github.com/polisai/facets-oss/pkg/facets/policy"
)

const authzModule = `package facets.authz

default decision := {"allow": false, "reason": "role not permitted"}

decision := {"allow": true, "reason": "manager role"} if input.role == "manager"
`

const boolModule = `package facets.authz

default allow := false

allow if input.role == "admin"
`

func TestEvaluateDecisionDocument(t *testing.T) {
	ctx := context.Background()
	p, err := policy.New(ctx, map[string]string{"authz.rego": authzModule}, "")
	require.NoError(t, err)

	decision, err := p.Evaluate(ctx, map[string]any{"role": "manager"})
	require.NoError(t, err)
	assert.True(t, decision.Allow)
	assert.Equal(t, "manager role", decision.Reason)

	decision, err = p.Evaluate(ctx, map[string]any{"role": "intern"})
	require.NoError(t, err)
	assert.False(t, decision.Allow)
	assert.Equal(t, "role not permitted", decision.Reason)
}

func TestAllowedWithBooleanEntrypoint(t *testing.T) {
	ctx := context.Background()
	p, err := policy.New(ctx, map[string]string{"authz.rego": boolModule}, "facets/authz/allow")
	require.NoError(t, err)

	allowed, err := p.Allowed(ctx, map[string]any{"role": "admin"})
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, err = p.Allowed(ctx, map[string]any{"role": "employee"})
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestUndefinedDecisionDenies(t *testing.T) {
	ctx := context.Background()
	// No default rule: the entrypoint is undefined unless the input matches.
	module := `package facets.authz

allow if input.role == "admin"
`
	p, err := policy.New(ctx, map[string]string{"authz.rego": module}, "facets/authz/allow")
	require.NoError(t, err)

	decision, err := p.Evaluate(ctx, map[string]any{"role": "employee"})
	require.NoError(t, err)
	assert.False(t, decision.Allow)
}

func TestConstructionErrors(t *testing.T) {
	ctx := context.Background()

	_, err := policy.New(ctx, nil, "")
	assert.ErrorIs(t, err, policy.ErrNoModules)

	_, err = policy.New(ctx, map[string]string{"bad.rego": "not rego at all"}, "")
	assert.Error(t, err)
}

func TestFacetIntegration(t *testing.T) {
	ctx := context.Background()
	p, err := policy.New(ctx, map[string]string{"authz.rego": authzModule}, "")
	require.NoError(t, err)

	c := facet.New("core")
	_, err = c.Attach(p)
	require.NoError(t, err)

	got, ok := policy.From(c)
	require.True(t, ok)
	assert.Same(t, p, got)
	assert.Equal(t, policy.FacetType, got.FacetType())
}

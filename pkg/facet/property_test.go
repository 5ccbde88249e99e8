package facet_test

import (
	"testing"

	"pgregory.net/rapid"

	"github.com/polisai/facets-oss/pkg/facet"
)

// TestContainerStateMachineProperty drives random attach/detach sequences
// against a model map and checks the container agrees at every step:
// uniqueness per type, lookup consistency, and Types() preserving
// attachment order.
func TestContainerStateMachineProperty(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		c := facet.New("core")
		model := make(map[facet.Type]*stub)
		var order []facet.Type

		typeGen := rapid.SampledFrom([]facet.Type{"a", "b", "c", "d", "e"})
		steps := rapid.IntRange(1, 200).Draw(t, "steps")

		for i := 0; i < steps; i++ {
			tt := typeGen.Draw(t, "type")
			_, exists := model[tt]

			switch rapid.IntRange(0, 2).Draw(t, "action") {
			case 0: // attach
				f := &stub{t: tt}
				_, err := c.Attach(f)
				if exists {
					if !facet.IsDuplicateFacet(err) {
						t.Fatalf("attach of duplicate %q: got %v, want DuplicateFacetError", tt, err)
					}
					if f.attached != 0 {
						t.Fatalf("rejected facet %q saw OnAttached", tt)
					}
				} else {
					if err != nil {
						t.Fatalf("attach of fresh %q failed: %v", tt, err)
					}
					if f.attached != 1 {
						t.Fatalf("attached facet %q: OnAttached ran %d times", tt, f.attached)
					}
					model[tt] = f
					order = append(order, tt)
				}
			case 1: // detach
				got, ok := c.Detach(tt)
				if ok != exists {
					t.Fatalf("detach %q: got ok=%v, model says %v", tt, ok, exists)
				}
				if exists {
					if got != model[tt] {
						t.Fatalf("detach %q returned a different instance", tt)
					}
					if model[tt].detached != 1 {
						t.Fatalf("detached facet %q: OnDetached ran %d times", tt, model[tt].detached)
					}
					delete(model, tt)
					for j, existing := range order {
						if existing == tt {
							order = append(order[:j], order[j+1:]...)
							break
						}
					}
				}
			case 2: // lookup
				if c.Has(tt) != exists {
					t.Fatalf("has %q: got %v, model says %v", tt, c.Has(tt), exists)
				}
				got, ok := c.Get(tt)
				if ok != exists {
					t.Fatalf("get %q: got ok=%v, model says %v", tt, ok, exists)
				}
				if exists && got != model[tt] {
					t.Fatalf("get %q returned a different instance", tt)
				}
			}

			types := c.Types()
			if len(types) != len(order) {
				t.Fatalf("types length %d, model has %d", len(types), len(order))
			}
			for j, tt := range order {
				if types[j] != tt {
					t.Fatalf("types[%d] = %q, model says %q", j, types[j], tt)
				}
			}
		}
	})
}

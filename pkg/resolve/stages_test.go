package resolve_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

func unit(depth int, r *rule.Rule) *rule.Unit {
	return &rule.Unit{Rule: r, Agent: "code-editor", Depth: depth}
}

func TestFilterByPriority(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		units       []*rule.Unit
		wantKept    []string
		wantDropped []string
	}{
		"higher order is dropped first, then shallower depth": {
			units: []*rule.Unit{
				unit(0, newRule("a.md", priority(1), order(1))),
				unit(0, newRule("b.md", priority(1), order(5))),
				unit(1, newRule("c.md", priority(1), order(1))),
			},
			wantKept:    []string{"c.md"},
			wantDropped: []string{"b.md", "a.md"},
		},
		"earlier path is dropped first": {
			units: []*rule.Unit{
				unit(0, newRule("z.md")),
				unit(0, newRule("y.md", priority(2))),
				unit(0, newRule("x.md", priority(2))),
			},
			wantKept:    []string{"y.md", "z.md"},
			wantDropped: []string{"x.md"},
		},
		"unset priorities are kept": {
			units: []*rule.Unit{
				unit(0, newRule("a.md")),
				unit(0, newRule("b.md")),
			},
			wantKept: []string{"a.md", "b.md"},
		},
		"priority zero is always dropped": {
			units: []*rule.Unit{
				unit(0, newRule("a.md", priority(0))),
			},
			wantDropped: []string{"a.md"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			kept, dropped := resolve.FilterByPriority(tc.units)
			assert.Equal(t, tc.wantKept, nilIfEmpty(paths(kept)))
			assert.Equal(t, tc.wantDropped, nilIfEmpty(paths(dropped)))
		})
	}
}

func TestSortForDisplay(t *testing.T) {
	t.Parallel()

	units := []*rule.Unit{
		unit(1, newRule("b.md", order(1))),
		unit(0, newRule("c.md")),
		unit(0, newRule("b.md", order(1))),
		unit(0, newRule("a.md", order(1))),
		unit(0, newRule("d.md", order(0))),
	}

	resolve.SortForDisplay(units)

	assert.Equal(t, []string{"d.md", "a.md", "b.md", "b.md", "c.md"}, paths(units))
	assert.Equal(t, 0, units[2].Depth)
	assert.Equal(t, 1, units[3].Depth)
}

package resolve

import (
	"cmp"
	"errors"
	"fmt"
	"slices"

	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

// LoadUnits loads the rules of each agent, tagging them with the agent's
// index in agents as their depth. Agents without rules produce a warning
// instead of an error. When the same rule path is loaded by more than one
// agent, only the shallowest copy is kept.
func LoadUnits(store Store, agents []string) ([]*rule.Unit, []string, error) {
	var (
		units    []*rule.Unit
		warnings []string
		seen     = map[string]struct{}{}
	)

	for depth, agent := range agents {
		rules, err := store.ListRules(agent)
		if errors.Is(err, ErrAgentNotFound) {
			warnings = append(warnings, fmt.Sprintf("No rules found for agent '%s' in cache", agent))

			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("list rules for agent %q: %w", agent, err)
		}

		for _, r := range rules {
			u := &rule.Unit{Rule: r, Agent: agent, Depth: depth}
			if _, ok := seen[u.Key()]; ok {
				continue
			}

			seen[u.Key()] = struct{}{}
			units = append(units, u)
		}
	}

	return units, warnings, nil
}

// Select returns the top-level matches for path together with every rule
// reachable from them through tag references.
//
// A rule's referencesAlways tags are followed wherever the rule is reached.
// Its referencesIfTop tags are followed only if the rule itself is a
// top-level match for path. Ignore patterns gate top-level matching only, so
// an ignored rule can still be pulled in by reference.
//
// Each rule is visited at most once, so cyclic references terminate. The
// returned slice is in encounter order; callers sort it.
func Select(units []*rule.Unit, path string) []*rule.Unit {
	byTag := map[string][]*rule.Unit{}
	for _, u := range units {
		for _, tag := range u.Tags {
			byTag[tag] = append(byTag[tag], u)
		}
	}

	top := map[string]bool{}
	for _, u := range units {
		if u.IsTopLevel(path) {
			top[u.Key()] = true
		}
	}

	var (
		selected []*rule.Unit
		visited  = map[string]struct{}{}
		stack    []*rule.Unit
	)

	visit := func(u *rule.Unit) {
		if _, ok := visited[u.Key()]; ok {
			return
		}

		visited[u.Key()] = struct{}{}
		selected = append(selected, u)
		stack = append(stack, u)
	}

	follow := func(tags []string) {
		for _, tag := range tags {
			for _, target := range byTag[tag] {
				visit(target)
			}
		}
	}

	for _, u := range units {
		if !top[u.Key()] {
			continue
		}

		visit(u)

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			follow(cur.ReferencesAlways)
			if top[cur.Key()] {
				follow(cur.ReferencesIfTop)
			}
		}
	}

	return selected
}

// FilterByPriority applies the priority cap to the selected rules.
//
// Rules are walked in (priority asc, order desc, depth asc, path asc) order
// with a counter starting at the number of rules. A rule whose priority is
// below the counter is dropped and the counter decremented; otherwise it is
// kept and the counter is unchanged. Unset priorities are never dropped.
func FilterByPriority(selected []*rule.Unit) ([]*rule.Unit, []*rule.Unit) {
	sorted := slices.Clone(selected)
	slices.SortFunc(sorted, comparePriority)

	var (
		kept      []*rule.Unit
		dropped   []*rule.Unit
		remaining = len(sorted)
	)

	for _, u := range sorted {
		if remaining > u.PriorityRank() {
			dropped = append(dropped, u)
			remaining--

			continue
		}

		kept = append(kept, u)
	}

	return kept, dropped
}

// SortForDisplay sorts units in place by (order asc, depth asc, path asc).
func SortForDisplay(units []*rule.Unit) {
	slices.SortFunc(units, compareDisplay)
}

func comparePriority(a, b *rule.Unit) int {
	return cmp.Or(
		cmp.Compare(a.PriorityRank(), b.PriorityRank()),
		cmp.Compare(b.OrderRank(), a.OrderRank()),
		cmp.Compare(a.Depth, b.Depth),
		cmp.Compare(a.Path, b.Path),
	)
}

func compareDisplay(a, b *rule.Unit) int {
	return cmp.Or(
		cmp.Compare(a.OrderRank(), b.OrderRank()),
		cmp.Compare(a.Depth, b.Depth),
		cmp.Compare(a.Path, b.Path),
	)
}

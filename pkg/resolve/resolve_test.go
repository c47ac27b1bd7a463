package resolve_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

type memStore struct {
	rules  map[string][]*rule.Rule
	refs   map[string][]string
	bodies map[string]string
	delays map[string]time.Duration

	mu      sync.Mutex
	fetched []string
}

func (m *memStore) ListRules(agent string) ([]*rule.Rule, error) {
	rules, ok := m.rules[agent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resolve.ErrAgentNotFound, agent)
	}

	return rules, nil
}

func (m *memStore) FetchBody(ctx context.Context, path string) (string, error) {
	if d, ok := m.delays[path]; ok {
		select {
		case <-time.After(d):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	m.mu.Lock()
	m.fetched = append(m.fetched, path)
	m.mu.Unlock()

	body, ok := m.bodies[path]
	if !ok {
		return "", errors.New("no such file")
	}

	return body, nil
}

func (m *memStore) References(agent string) ([]string, error) {
	return m.refs[agent], nil
}

// newStore builds a store where each rule's body is "body of <path>".
func newStore(rules map[string][]*rule.Rule, refs map[string][]string) *memStore {
	bodies := map[string]string{}
	for _, rs := range rules {
		for _, r := range rs {
			bodies[r.Path] = "body of " + r.Path
		}
	}

	return &memStore{rules: rules, refs: refs, bodies: bodies}
}

type ruleOpt func(*rule.Rule)

func newRule(path string, opts ...ruleOpt) *rule.Rule {
	r := &rule.Rule{Path: path}
	for _, opt := range opts {
		opt(r)
	}

	return r
}

func patterns(p ...string) ruleOpt {
	return func(r *rule.Rule) { r.Patterns = p }
}

func ignore(p ...string) ruleOpt {
	return func(r *rule.Rule) { r.IgnorePatterns = p }
}

func tags(t ...string) ruleOpt {
	return func(r *rule.Rule) { r.Tags = t }
}

func always(t ...string) ruleOpt {
	return func(r *rule.Rule) { r.ReferencesAlways = t }
}

func ifTop(t ...string) ruleOpt {
	return func(r *rule.Rule) { r.ReferencesIfTop = t }
}

func priority(p int) ruleOpt {
	return func(r *rule.Rule) { r.Priority = &p }
}

func order(o int) ruleOpt {
	return func(r *rule.Rule) { r.Order = &o }
}

func paths(units []*rule.Unit) []string {
	out := make([]string, 0, len(units))
	for _, u := range units {
		out = append(out, u.Path)
	}

	return out
}

func resolveOne(t *testing.T, s *memStore, agent, path string) *resolve.Result {
	t.Helper()

	res, err := resolve.New(s, s).Resolve(t.Context(), agent, path)
	require.NoError(t, err)

	return res
}

func TestResolve(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		rules        map[string][]*rule.Rule
		refs         map[string][]string
		path         string
		want         []string
		wantDropped  []string
		wantWarnings []string
	}{
		"references example": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("A.md", patterns("src/**/*.tsx")),
					newRule("B.md", patterns("**/lib/**"), always("WillCalled")),
					newRule("C.md", tags("WillCalled"), ifTop("WillNotCalled")),
					newRule("D.md", tags("WillNotCalled")),
				},
			},
			path: "src/lib/Button.tsx",
			want: []string{"A.md", "B.md", "C.md"},
		},
		"no matching rule": {
			rules: map[string][]*rule.Rule{
				"code-editor": {newRule("A.md", patterns("*.go"))},
			},
			path: "README.md",
			want: nil,
		},
		"ignore patterns exclude top-level matches": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("A.md", patterns("**/*.ts"), ignore("**/*.test.ts")),
				},
			},
			path: "src/a.test.ts",
			want: nil,
		},
		"ignored rule is still reachable by reference": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("A.md", patterns("**/*.ts"), always("shared")),
					newRule("B.md", patterns("**/*.ts"), ignore("**/*.test.ts"), tags("shared")),
				},
			},
			path: "src/a.test.ts",
			want: []string{"A.md", "B.md"},
		},
		"references if top apply to a top-level rule reached by reference": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("A.md", patterns("**"), always("x")),
					newRule("X.md", patterns("**"), tags("x"), ifTop("y")),
					newRule("Y.md", tags("y")),
				},
			},
			path: "main.go",
			want: []string{"A.md", "X.md", "Y.md"},
		},
		"references if top do not apply to referenced rules": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("A.md", patterns("**"), always("x")),
					newRule("X.md", patterns("*.md"), tags("x"), ifTop("y")),
					newRule("Y.md", tags("y")),
				},
			},
			path: "main.go",
			want: []string{"A.md", "X.md"},
		},
		"references always are transitive": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("A.md", patterns("**"), always("b")),
					newRule("B.md", tags("b"), always("c")),
					newRule("C.md", tags("c")),
				},
			},
			path: "main.go",
			want: []string{"A.md", "B.md", "C.md"},
		},
		"cyclic references terminate": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("A.md", patterns("**"), tags("a"), always("b")),
					newRule("B.md", tags("b"), always("a", "b")),
				},
			},
			path: "main.go",
			want: []string{"A.md", "B.md"},
		},
		"priority cap": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("R1.md", patterns("**"), priority(1)),
					newRule("R2.md", patterns("**"), priority(3)),
					newRule("R3.md", patterns("**")),
				},
			},
			path:        "main.go",
			want:        []string{"R2.md", "R3.md"},
			wantDropped: []string{"R1.md"},
		},
		"display order uses order then path": {
			rules: map[string][]*rule.Rule{
				"code-editor": {
					newRule("a.md", patterns("**")),
					newRule("b.md", patterns("**"), order(2)),
					newRule("c.md", patterns("**"), order(1)),
				},
			},
			path: "main.go",
			want: []string{"c.md", "b.md", "a.md"},
		},
		"referenced agent rules follow own rules": {
			rules: map[string][]*rule.Rule{
				"main":   {newRule("z.md", patterns("**"))},
				"shared": {newRule("a.md", patterns("**"))},
			},
			refs: map[string][]string{"main": {"shared"}},
			path: "main.go",
			want: []string{"z.md", "a.md"},
		},
		"tags resolve across referenced agents": {
			rules: map[string][]*rule.Rule{
				"main":   {newRule("main.md", patterns("**"), always("common"))},
				"shared": {newRule("common.md", tags("common"))},
			},
			refs: map[string][]string{"main": {"shared"}},
			path: "main.go",
			want: []string{"main.md", "common.md"},
		},
		"missing referenced agent warns": {
			rules: map[string][]*rule.Rule{
				"main": {newRule("main.md", patterns("**"))},
			},
			refs:         map[string][]string{"main": {"gone"}},
			path:         "main.go",
			want:         []string{"main.md"},
			wantWarnings: []string{"No rules found for agent 'gone' in cache"},
		},
		"same rule path in two agents is loaded once": {
			rules: map[string][]*rule.Rule{
				"main":   {newRule("x.md", patterns("**"))},
				"shared": {newRule("x.md", patterns("**"))},
			},
			refs: map[string][]string{"main": {"shared"}},
			path: "main.go",
			want: []string{"x.md"},
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			s := newStore(tc.rules, tc.refs)

			agent := "code-editor"
			if _, ok := tc.rules[agent]; !ok {
				agent = "main"
			}

			res := resolveOne(t, s, agent, tc.path)

			assert.Equal(t, tc.want, nilIfEmpty(paths(res.Rules)))
			assert.Equal(t, tc.wantDropped, nilIfEmpty(paths(res.Dropped)))
			assert.Equal(t, tc.wantWarnings, res.Warnings)
			assert.Len(t, res.Bodies, len(res.Rules))

			for i, u := range res.Rules {
				assert.Equal(t, "body of "+u.Path, res.Bodies[i])
			}
		})
	}
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}

	return s
}

func TestResolve_Output(t *testing.T) {
	t.Parallel()

	s := newStore(map[string][]*rule.Rule{
		"code-editor": {
			newRule("b.md", patterns("**/*.go"), order(2)),
			newRule("a.md", patterns("**/*.go"), order(1)),
		},
	}, nil)

	res := resolveOne(t, s, "code-editor", "cmd/main.go")
	assert.Equal(t,
		"body of a.md\nbody of b.md\n* * *\n\nEnd of additional context for cmd/main.go. Continue.\n",
		res.String(),
	)

	empty := resolveOne(t, s, "code-editor", "README.md")
	assert.True(t, empty.Empty())
	assert.Equal(t, "No additional context found for README.md. Continue.\n", empty.String())

	s = newStore(map[string][]*rule.Rule{
		"code-editor": {newRule("a.md", patterns("**"), priority(0))},
	}, nil)

	allDropped := resolveOne(t, s, "code-editor", "main.go")
	assert.False(t, allDropped.Empty())
	assert.Empty(t, allDropped.Rules)
	assert.Equal(t, []string{"a.md"}, paths(allDropped.Dropped))
	assert.Equal(t, "* * *\n\nEnd of additional context for main.go. Continue.\n", allDropped.String())
}

func TestResolve_Deterministic(t *testing.T) {
	t.Parallel()

	rules := []*rule.Rule{
		newRule("a.md", patterns("**"), priority(2), tags("t")),
		newRule("b.md", patterns("**"), always("t", "u"), order(3)),
		newRule("c.md", tags("u"), priority(4), order(1)),
		newRule("d.md", patterns("*.go"), ifTop("t")),
		newRule("e.md", patterns("**"), priority(1)),
	}

	reversed := make([]*rule.Rule, len(rules))
	for i, r := range rules {
		reversed[len(rules)-1-i] = r
	}

	first := resolveOne(t, newStore(map[string][]*rule.Rule{"code-editor": rules}, nil), "code-editor", "main.go")
	second := resolveOne(t, newStore(map[string][]*rule.Rule{"code-editor": rules}, nil), "code-editor", "main.go")
	shuffled := resolveOne(t, newStore(map[string][]*rule.Rule{"code-editor": reversed}, nil), "code-editor", "main.go")

	assert.Equal(t, first.String(), second.String())
	assert.Equal(t, first.String(), shuffled.String())
}

func TestResolve_ConcurrentFetchKeepsOrder(t *testing.T) {
	t.Parallel()

	s := newStore(map[string][]*rule.Rule{
		"code-editor": {
			newRule("1.md", patterns("**"), order(1)),
			newRule("2.md", patterns("**"), order(2)),
			newRule("3.md", patterns("**"), order(3)),
		},
	}, nil)
	s.delays = map[string]time.Duration{
		"1.md": 30 * time.Millisecond,
		"2.md": 15 * time.Millisecond,
	}

	res, err := resolve.New(s, s, resolve.WithConcurrency(3)).Resolve(t.Context(), "code-editor", "x")
	require.NoError(t, err)
	assert.Equal(t, []string{"body of 1.md", "body of 2.md", "body of 3.md"}, res.Bodies)
	assert.Len(t, s.fetched, 3)
}

func TestResolve_FetchError(t *testing.T) {
	t.Parallel()

	s := newStore(map[string][]*rule.Rule{
		"code-editor": {newRule("a.md", patterns("**"))},
	}, nil)
	delete(s.bodies, "a.md")

	_, err := resolve.New(s, s).Resolve(t.Context(), "code-editor", "main.go")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a.md")
	assert.Contains(t, err.Error(), "main.go")
}

func TestResolve_MissingRequestedAgent(t *testing.T) {
	t.Parallel()

	s := newStore(map[string][]*rule.Rule{}, nil)

	res := resolveOne(t, s, "code-editor", "main.go")
	assert.True(t, res.Empty())
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], "code-editor")
}

package expr_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirt-rain/code-editor-agent/pkg/expr"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

func TestRuleFilter_Match(t *testing.T) {
	t.Parallel()

	priority := 2
	r := &rule.Rule{
		Path:     "docs/frontend.code-editor-agent.md",
		Patterns: rule.Patterns{"src/**/*.tsx"},
		Tags:     []string{"frontend", "react"},
		Priority: &priority,
	}

	tcs := map[string]struct {
		expression string
		want       bool
		errMsg     string
	}{
		"tag membership": {
			expression: `"react" in rule.tags`,
			want:       true,
		},
		"agent": {
			expression: `rule.agent == "reviewer"`,
			want:       false,
		},
		"priority set": {
			expression: `has(rule.priority) && rule.priority <= 3`,
			want:       true,
		},
		"order unset": {
			expression: `!has(rule.order)`,
			want:       true,
		},
		"glob over patterns": {
			expression: `rule.patterns.exists(p, glob(p, "src/ui/Button.tsx"))`,
			want:       true,
		},
		"glob no match": {
			expression: `rule.patterns.exists(p, glob(p, "src/ui/Button.ts"))`,
			want:       false,
		},
		"path functions": {
			expression: `pathBase(rule.path) == "frontend.code-editor-agent.md" && pathDir(rule.path) == "docs" && pathExt(rule.path) == ".md"`,
			want:       true,
		},
		"empty list": {
			expression: `size(rule.referencesAlways) == 0`,
			want:       true,
		},
		"compile error": {
			expression: `rule.tags +`,
			errMsg:     "compile expression",
		},
		"non-bool type": {
			expression: `size(rule.tags) + 1`,
			errMsg:     "expected bool result",
		},
		"non-bool result": {
			expression: `rule.path`,
			errMsg:     "expected bool result",
		},
		"missing key": {
			expression: `rule.order > 1`,
			errMsg:     "evaluate filter",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			f, err := expr.NewRuleFilter(tc.expression)
			if err == nil {
				var got bool

				got, err = f.Match("code-editor", r)
				if tc.errMsg == "" {
					require.NoError(t, err)
					assert.Equal(t, tc.want, got)

					return
				}
			}

			require.Error(t, err)
			assert.ErrorContains(t, err, tc.errMsg)
		})
	}
}

func TestEnvironment_CompileCaches(t *testing.T) {
	t.Parallel()

	env, err := expr.NewEnvironment()
	require.NoError(t, err)

	first, err := env.Compile(`"go" in rule.tags`)
	require.NoError(t, err)

	second, err := env.Compile(`"go" in rule.tags`)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = env.Compile(`rule.tags +`)
	require.ErrorContains(t, err, "compile expression")
}

func TestVars(t *testing.T) {
	t.Parallel()

	order := 4
	vars := expr.Vars("a", &rule.Rule{Path: "x.md", Order: &order})

	assert.Equal(t, "x.md", vars["path"])
	assert.Equal(t, "a", vars["agent"])
	assert.Equal(t, 4, vars["order"])
	assert.NotContains(t, vars, "priority")
	assert.Equal(t, []string{}, vars["tags"])
}

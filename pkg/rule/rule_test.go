package rule_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

func intPtr(i int) *int {
	return &i
}

func TestMatchAny(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		path     string
		patterns []string
		want     bool
	}{
		"single star": {
			path:     "main.go",
			patterns: []string{"*.go"},
			want:     true,
		},
		"single star does not cross directories": {
			path:     "cmd/main.go",
			patterns: []string{"*.go"},
			want:     false,
		},
		"double star crosses directories": {
			path:     "src/lib/Button.tsx",
			patterns: []string{"src/**/*.tsx"},
			want:     true,
		},
		"double star matches zero directories": {
			path:     "src/Button.tsx",
			patterns: []string{"src/**/*.tsx"},
			want:     true,
		},
		"brace set": {
			path:     "web/app.ts",
			patterns: []string{"web/*.{ts,tsx}"},
			want:     true,
		},
		"character class": {
			path:     "docs/b.md",
			patterns: []string{"docs/[a-c].md"},
			want:     true,
		},
		"any of several patterns": {
			path:     "lib/x.go",
			patterns: []string{"*.md", "**/lib/**"},
			want:     true,
		},
		"no patterns": {
			path:     "a.go",
			patterns: nil,
			want:     false,
		},
		"malformed pattern never matches": {
			path:     "a.go",
			patterns: []string{"[a.go"},
			want:     false,
		},
		"leading dot slash is ignored": {
			path:     "./src/a.go",
			patterns: []string{"src/*.go"},
			want:     true,
		},
		"leading dot slash in pattern is ignored": {
			path:     "./src/a.go",
			patterns: []string{"./src/*.go"},
			want:     true,
		},
		"dot slash pattern matches clean path": {
			path:     "src/a.go",
			patterns: []string{"./src/*.go"},
			want:     true,
		},
		"empty pattern never matches": {
			path:     ".",
			patterns: []string{""},
			want:     false,
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, rule.MatchAny(tc.path, tc.patterns...))
		})
	}
}

func TestRule_IsTopLevel(t *testing.T) {
	t.Parallel()

	r := &rule.Rule{
		Path:           "a.md",
		Patterns:       rule.Patterns{"src/**/*.ts"},
		IgnorePatterns: []string{"**/*.test.ts"},
	}

	assert.True(t, r.IsTopLevel("src/app.ts"))
	assert.False(t, r.IsTopLevel("src/app.test.ts"))
	assert.False(t, r.IsTopLevel("lib/app.ts"))
}

func TestRule_Ranks(t *testing.T) {
	t.Parallel()

	r := &rule.Rule{}
	assert.Equal(t, rule.Unset, r.PriorityRank())
	assert.Equal(t, rule.Unset, r.OrderRank())

	r.Priority = intPtr(2)
	r.Order = intPtr(0)
	assert.Equal(t, 2, r.PriorityRank())
	assert.Equal(t, 0, r.OrderRank())
}

func TestRule_Validate(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		rule    rule.Rule
		wantErr string
	}{
		"valid": {
			rule: rule.Rule{Path: "a.md", Patterns: rule.Patterns{"**/*.go"}, Priority: intPtr(0)},
		},
		"missing patterns": {
			rule:    rule.Rule{Path: "a.md"},
			wantErr: "missing 'patterns' attribute",
		},
		"negative priority": {
			rule:    rule.Rule{Path: "a.md", Patterns: rule.Patterns{"*"}, Priority: intPtr(-1)},
			wantErr: "'priority' must be a non-negative number",
		},
		"negative order": {
			rule:    rule.Rule{Path: "a.md", Patterns: rule.Patterns{"*"}, Order: intPtr(-3)},
			wantErr: "'order' must be a non-negative number",
		},
		"bad ignore pattern": {
			rule:    rule.Rule{Path: "a.md", Patterns: rule.Patterns{"*"}, IgnorePatterns: []string{"{a"}},
			wantErr: "ignorePatterns",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			err := tc.rule.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)

				return
			}

			require.ErrorIs(t, err, rule.ErrInvalidRule)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestPatterns_UnmarshalJSON(t *testing.T) {
	t.Parallel()

	var r rule.Rule

	err := json.Unmarshal([]byte(`{"path":"a.md","patterns":"**/*.go"}`), &r)
	require.NoError(t, err)
	assert.Equal(t, rule.Patterns{"**/*.go"}, r.Patterns)

	err = json.Unmarshal([]byte(`{"path":"a.md","patterns":["a","b"]}`), &r)
	require.NoError(t, err)
	assert.Equal(t, rule.Patterns{"a", "b"}, r.Patterns)

	err = json.Unmarshal([]byte(`{"path":"a.md","patterns":3}`), &r)
	require.Error(t, err)
}

func TestUnit_Key(t *testing.T) {
	t.Parallel()

	u := &rule.Unit{Rule: &rule.Rule{Path: "rules/a.md"}, Depth: 2}
	assert.Equal(t, "rules/a.md", u.Key())
}

package expr

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

// RuleEnv is the environment rule filters are compiled in.
var RuleEnv = MustNewEnvironment()

// RuleFilter is a compiled boolean expression over a rule.
type RuleFilter struct {
	program    cel.Program
	expression string
}

// NewRuleFilter compiles expression in [RuleEnv].
func NewRuleFilter(expression string) (*RuleFilter, error) {
	program, err := RuleEnv.Compile(expression)
	if err != nil {
		return nil, fmt.Errorf("filter %q: %w", expression, err)
	}

	return &RuleFilter{program: program, expression: expression}, nil
}

// Match evaluates the filter for r, loaded for agent.
func (f *RuleFilter) Match(agent string, r *rule.Rule) (bool, error) {
	out, _, err := f.program.Eval(map[string]any{
		"rule": Vars(agent, r),
	})
	if err != nil {
		return false, fmt.Errorf("evaluate filter %q on %s: %w", f.expression, r.Path, err)
	}

	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("filter %q: expected bool result, got %s", f.expression, out.Type())
	}

	return b, nil
}

// Vars returns the `rule` variable for r.
func Vars(agent string, r *rule.Rule) map[string]any {
	vars := map[string]any{
		"path":             r.Path,
		"agent":            agent,
		"patterns":         nonNil(r.Patterns),
		"ignorePatterns":   nonNil(r.IgnorePatterns),
		"tags":             nonNil(r.Tags),
		"referencesIfTop":  nonNil(r.ReferencesIfTop),
		"referencesAlways": nonNil(r.ReferencesAlways),
	}
	if r.Priority != nil {
		vars["priority"] = *r.Priority
	}
	if r.Order != nil {
		vars["order"] = *r.Order
	}

	return vars
}

func nonNil[S ~[]string](s S) []string {
	if s == nil {
		return []string{}
	}

	return []string(s)
}

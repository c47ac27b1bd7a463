package store

import (
	"errors"
	"fmt"

	"github.com/dirt-rain/code-editor-agent/pkg/frontmatter"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
	"github.com/dirt-rain/code-editor-agent/pkg/yaml"
)

// header is the front matter of a rule file. List fields accept a single
// string or a list of strings.
type header struct {
	Patterns         any  `yaml:"patterns"`
	IgnorePatterns   any  `yaml:"ignorePatterns"`
	Tags             any  `yaml:"tags"`
	ReferencesIfTop  any  `yaml:"referencesIfTop"`
	ReferencesAlways any  `yaml:"referencesAlways"`
	Priority         *int `yaml:"priority"`
	Order            *int `yaml:"order"`
}

// ParseRule builds a validated [rule.Rule] from the contents of the rule
// file name.
func ParseRule(name string, content []byte) (*rule.Rule, error) {
	var h header

	err := frontmatter.Decode(content, &h)
	if err != nil {
		return nil, fmt.Errorf("%w %s: %w", rule.ErrInvalidRule, name,
			yaml.Annotate(err, yaml.WithSource(name, nil)))
	}

	r := &rule.Rule{
		Path:     name,
		Priority: h.Priority,
		Order:    h.Order,
	}

	lists := []struct {
		field string
		value any
		dst   *[]string
	}{
		{"patterns", h.Patterns, (*[]string)(&r.Patterns)},
		{"ignorePatterns", h.IgnorePatterns, &r.IgnorePatterns},
		{"tags", h.Tags, &r.Tags},
		{"referencesIfTop", h.ReferencesIfTop, &r.ReferencesIfTop},
		{"referencesAlways", h.ReferencesAlways, &r.ReferencesAlways},
	}
	for _, l := range lists {
		*l.dst, err = stringList(l.value)
		if err != nil {
			return nil, fmt.Errorf("%w %s: '%s' %w", rule.ErrInvalidRule, name, l.field, err)
		}
	}

	err = r.Validate()
	if err != nil {
		return nil, err //nolint:wrapcheck // Carries the rule path.
	}

	return r, nil
}

// stringList normalizes a decoded YAML value to a list of strings. A missing
// value is an empty list.
func stringList(v any) ([]string, error) {
	switch v := v.(type) {
	case nil:
		return []string{}, nil
	case string:
		return []string{v}, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, errNotStrings
			}

			out = append(out, s)
		}

		return out, nil
	}

	return nil, errNotStrings
}

var errNotStrings = errors.New("must be a string or array of strings")

package rule

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"
)

// Unset is the rank of a priority or order that was not set. It compares
// greater than every value a rule file can declare.
const Unset = math.MaxInt

// ErrInvalidRule is returned for rule records that fail validation.
var ErrInvalidRule = errors.New("invalid rule")

// Rule is a single context rule record, as stored in the rule cache.
type Rule struct {
	// Patterns select the file paths for which this rule is a top-level match.
	Patterns Patterns `json:"patterns"`
	// Path identifies the rule file. It is unique within one resolution.
	Path string `json:"path"`
	// IgnorePatterns exclude file paths from top-level matching.
	IgnorePatterns []string `json:"ignorePatterns"`
	// Priority caps how many rules may be emitted alongside this one. Nil means unset.
	Priority *int `json:"priority,omitempty"`
	// Tags make this rule a target of other rules' references.
	Tags []string `json:"tags"`
	// ReferencesIfTop lists tags pulled in only when this rule matched the path directly.
	ReferencesIfTop []string `json:"referencesIfTop"`
	// ReferencesAlways lists tags pulled in whenever this rule is selected.
	ReferencesAlways []string `json:"referencesAlways"`
	// Order sorts rules for display. Nil means unset.
	Order *int `json:"order,omitempty"`
}

// PriorityRank returns the priority, or [Unset].
func (r *Rule) PriorityRank() int {
	if r.Priority == nil {
		return Unset
	}

	return *r.Priority
}

// OrderRank returns the order, or [Unset].
func (r *Rule) OrderRank() int {
	if r.Order == nil {
		return Unset
	}

	return *r.Order
}

// IsTopLevel reports whether the rule matches path directly: at least one of
// its patterns matches and none of its ignore patterns do.
func (r *Rule) IsTopLevel(path string) bool {
	return MatchAny(path, r.Patterns...) && !MatchAny(path, r.IgnorePatterns...)
}

// Validate checks the values that the resolver assumes to be well-formed.
func (r *Rule) Validate() error {
	var errs []error

	if r.Path == "" {
		errs = append(errs, errors.New("missing path"))
	}
	if len(r.Patterns) == 0 {
		errs = append(errs, errors.New("missing 'patterns' attribute"))
	}
	if r.Priority != nil && *r.Priority < 0 {
		errs = append(errs, errors.New("'priority' must be a non-negative number"))
	}
	if r.Order != nil && *r.Order < 0 {
		errs = append(errs, errors.New("'order' must be a non-negative number"))
	}

	err := ValidatePatterns(r.Patterns...)
	if err != nil {
		errs = append(errs, fmt.Errorf("patterns: %w", err))
	}

	err = ValidatePatterns(r.IgnorePatterns...)
	if err != nil {
		errs = append(errs, fmt.Errorf("ignorePatterns: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w %s: %w", ErrInvalidRule, r.Path, errors.Join(errs...))
	}

	return nil
}

func (r *Rule) String() string {
	var b strings.Builder

	b.WriteString(r.Path)
	if r.Priority != nil {
		fmt.Fprintf(&b, " priority=%d", *r.Priority)
	}
	if r.Order != nil {
		fmt.Fprintf(&b, " order=%d", *r.Order)
	}
	if len(r.Tags) > 0 {
		fmt.Fprintf(&b, " tags=%s", strings.Join(r.Tags, ","))
	}

	return b.String()
}

// Patterns is a list of glob patterns. In JSON it may be written as a single
// string or as a list of strings.
type Patterns []string

// UnmarshalJSON accepts either a string or a list of strings.
func (p *Patterns) UnmarshalJSON(data []byte) error {
	var one string

	err := json.Unmarshal(data, &one)
	if err == nil {
		*p = Patterns{one}

		return nil
	}

	var many []string

	err = json.Unmarshal(data, &many)
	if err != nil {
		return fmt.Errorf("patterns must be a string or an array of strings: %w", err)
	}

	*p = many

	return nil
}

// Unit is a [Rule] taking part in a single resolution, tagged with the agent
// it was loaded from and that agent's distance from the requested agent.
type Unit struct {
	*Rule

	// Agent is the name of the agent the rule was loaded from.
	Agent string
	// Depth is 0 for the requested agent and i for its i-th referenced agent.
	Depth int
}

// Key is the stable identity of the unit within one resolution.
func (u *Unit) Key() string {
	return u.Path
}

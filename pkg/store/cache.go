package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/dirt-rain/code-editor-agent/pkg/frontmatter"
	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

// DefaultCachePath is the cache file location relative to the project root.
const DefaultCachePath = ".claude/agents/code-editor/rules-cache-generated.json"

// ErrNoCache is returned when the cache file does not exist.
var ErrNoCache = errors.New("rule cache not found")

// Rules maps agent names to their rule records.
type Rules map[string][]*rule.Rule

// Cache serves cached rule records and reads rule bodies from fs.
type Cache struct {
	fs    afero.Fs
	rules Rules
}

// NewCache creates a [Cache] over already loaded rules.
func NewCache(fsys afero.Fs, rules Rules) *Cache {
	return &Cache{fs: fsys, rules: rules}
}

// ReadCache reads the cache file name. It returns an error wrapping
// [ErrNoCache] when the file does not exist.
func ReadCache(fsys afero.Fs, name string) (*Cache, error) {
	data, err := afero.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoCache, name)
	}
	if err != nil {
		return nil, fmt.Errorf("read cache: %w", err)
	}

	rules, err := Decode(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return NewCache(fsys, rules), nil
}

// ListRules returns the cached rules of agent.
func (c *Cache) ListRules(agent string) ([]*rule.Rule, error) {
	rules, ok := c.rules[agent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resolve.ErrAgentNotFound, agent)
	}

	return rules, nil
}

// FetchBody reads the rule file at rulePath and returns its body.
func (c *Cache) FetchBody(ctx context.Context, rulePath string) (string, error) {
	err := ctx.Err()
	if err != nil {
		return "", fmt.Errorf("fetch %s: %w", rulePath, err)
	}

	content, err := afero.ReadFile(c.fs, rulePath)
	if err != nil {
		return "", fmt.Errorf("read rule file: %w", err)
	}

	return frontmatter.Body(content), nil
}

// Agents returns the names of the cached agents in sorted order.
func (c *Cache) Agents() []string {
	return slices.Sorted(maps.Keys(c.rules))
}

// Rules returns all cached rules.
func (c *Cache) Rules() Rules {
	return c.rules
}

// Decode parses cache file contents.
func Decode(data []byte) (Rules, error) {
	var rules Rules

	d := json.NewDecoder(bytes.NewReader(data))
	d.DisallowUnknownFields()

	err := d.Decode(&rules)
	if err != nil {
		return nil, fmt.Errorf("decode cache: %w", err)
	}

	return rules, nil
}

// Encode renders rules in the cache file format: two-space indented JSON
// with a trailing newline, each agent's rules sorted by path. Nil lists are
// written as empty arrays.
func Encode(rules Rules) ([]byte, error) {
	out := make(Rules, len(rules))
	for agent, rs := range rules {
		sorted := make([]*rule.Rule, 0, len(rs))
		for _, r := range rs {
			sorted = append(sorted, withEmptyLists(r))
		}

		slices.SortFunc(sorted, func(a, b *rule.Rule) int {
			return strings.Compare(a.Path, b.Path)
		})

		out[agent] = sorted
	}

	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode cache: %w", err)
	}

	return append(data, '\n'), nil
}

// WriteCache writes rules to name, creating parent directories.
func WriteCache(fsys afero.Fs, name string, rules Rules) error {
	data, err := Encode(rules)
	if err != nil {
		return err
	}

	err = fsys.MkdirAll(path.Dir(name), 0o755)
	if err != nil {
		return fmt.Errorf("create cache directory: %w", err)
	}

	err = afero.WriteFile(fsys, name, data, 0o644)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}

	return nil
}

func withEmptyLists(r *rule.Rule) *rule.Rule {
	c := *r
	if c.Patterns == nil {
		c.Patterns = rule.Patterns{}
	}

	for _, l := range []*[]string{&c.IgnorePatterns, &c.Tags, &c.ReferencesIfTop, &c.ReferencesAlways} {
		if *l == nil {
			*l = []string{}
		}
	}

	return &c
}

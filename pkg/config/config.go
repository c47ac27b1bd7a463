package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/sahilm/fuzzy"

	_ "embed"

	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
	"github.com/dirt-rain/code-editor-agent/pkg/yaml"
)

//go:generate go run ../../internal/schemagen -o config.schema.json

const (
	// DefaultPath is the config file location relative to the project root.
	DefaultPath = ".config/code-editor-agent.jsonc"
	// DefaultAgent is the agent configured when the file declares none.
	DefaultAgent = "code-editor"
	// ReservedGroup is the command group used by the built-in subcommands.
	ReservedGroup = "cmd"

	schemaURL = "https://github.com/dirt-rain/code-editor-agent/pkg/config/config.schema.json"
)

var (
	//go:embed config.schema.json
	schemaJSON []byte

	DefaultValidator = yaml.MustNewValidator(schemaURL, schemaJSON)

	ErrInvalidConfig  = errors.New("invalid config")
	ErrReservedGroup  = errors.New("reserved command group")
	ErrDuplicateGroup = errors.New("duplicate command group")
)

// Config is the project configuration.
type Config struct {
	// Schema is an optional JSON schema reference for editors.
	Schema string `json:"$schema,omitempty" jsonschema:"title=Schema"`
	// Exclude lists glob patterns of files that are never scanned for rules.
	Exclude []string `json:"exclude,omitempty" jsonschema:"title=Exclude"`
	// Agents maps agent names to their configuration.
	Agents map[string]*Agent `json:"agents,omitempty" jsonschema:"title=Agents"`
}

// Agent configures one agent.
type Agent struct {
	// RuleFilePattern is a glob matching the agent's rule files.
	RuleFilePattern string `json:"ruleFilePattern" jsonschema:"title=Rule File Pattern"`
	// CommandGroup selects the agent on the command line. Null marks the
	// default agent.
	CommandGroup *string `json:"commandGroup" jsonschema:"title=Command Group"`
	// References lists agents whose rules are also loaded, in order.
	References []string `json:"references,omitempty" jsonschema:"title=References"`
}

// New returns the default configuration.
func New() *Config {
	c := &Config{}
	c.EnsureDefaults()

	return c
}

// EnsureDefaults fills in the default exclude list and agent.
func (c *Config) EnsureDefaults() {
	if c.Exclude == nil {
		c.Exclude = []string{"./node_modules/**"}
	}

	if len(c.Agents) == 0 {
		c.Agents = map[string]*Agent{
			DefaultAgent: {RuleFilePattern: "**/*.code-editor-agent.md"},
		}
	}
}

// JSONSchemaExtend allows a null command group and requires the key.
func (Agent) JSONSchemaExtend(jss *jsonschema.Schema) {
	jss.Required = []string{"ruleFilePattern", "commandGroup"}

	group, ok := jss.Properties.Get("commandGroup")
	if !ok {
		panic("commandGroup property not found in schema")
	}

	group.Type = ""
	group.AnyOf = []*jsonschema.Schema{
		{Type: "string"},
		{Type: "null"},
	}
}

// Validate checks the rules the schema cannot express. Agents are checked in
// name order so the reported error is stable.
func (c *Config) Validate() error {
	for _, p := range c.Exclude {
		err := rule.ValidatePatterns(strings.TrimPrefix(p, "./"))
		if err != nil {
			return fmt.Errorf("%w: exclude: %w", ErrInvalidConfig, err)
		}
	}

	groups := map[string]string{}

	for _, name := range c.AgentNames() {
		a := c.Agents[name]
		if a == nil {
			return fmt.Errorf("%w: agent '%s' configuration must be an object", ErrInvalidConfig, name)
		}

		err := rule.ValidatePatterns(a.RuleFilePattern)
		if err != nil {
			return fmt.Errorf("%w: agent '%s' ruleFilePattern: %w", ErrInvalidConfig, name, err)
		}

		if a.CommandGroup != nil && *a.CommandGroup == ReservedGroup {
			return fmt.Errorf("%w: agent '%s' cannot use commandGroup '%s'", ErrReservedGroup, name, ReservedGroup)
		}

		key := groupName(a.CommandGroup)
		if other, ok := groups[key]; ok {
			return fmt.Errorf("%w: agents '%s' and '%s' both use commandGroup %s",
				ErrDuplicateGroup, other, name, key)
		}

		groups[key] = name
	}

	return nil
}

// Warnings returns non-fatal problems, such as references to agents that
// are not configured.
func (c *Config) Warnings() []string {
	var warnings []string

	for _, name := range c.AgentNames() {
		for _, ref := range c.Agents[name].References {
			if _, ok := c.Agents[ref]; !ok {
				warnings = append(warnings, fmt.Sprintf("agent '%s' references unknown agent '%s'", name, ref))
			}
		}
	}

	return warnings
}

// AgentNames returns the configured agent names in sorted order.
func (c *Config) AgentNames() []string {
	return slices.Sorted(maps.Keys(c.Agents))
}

// AgentByCommandGroup returns the agent selected by group. A nil group
// selects the agent whose command group is null.
func (c *Config) AgentByCommandGroup(group *string) (string, error) {
	for _, name := range c.AgentNames() {
		a := c.Agents[name]
		if group == nil && a.CommandGroup == nil {
			return name, nil
		}
		if group != nil && a.CommandGroup != nil && *group == *a.CommandGroup {
			return name, nil
		}
	}

	err := fmt.Errorf("%w with commandGroup: %s", resolve.ErrAgentNotFound, groupName(group))
	if group == nil {
		return "", err
	}

	if s := c.suggestGroup(*group); s != "" {
		return "", fmt.Errorf("%w (did you mean %q?)", err, s)
	}

	return "", err
}

func (c *Config) suggestGroup(group string) string {
	var groups []string

	for _, name := range c.AgentNames() {
		if g := c.Agents[name].CommandGroup; g != nil {
			groups = append(groups, *g)
		}
	}

	matches := fuzzy.Find(group, groups)
	if len(matches) == 0 {
		return ""
	}

	return matches[0].Str
}

// References returns the agents referenced by agent, in declared order.
func (c *Config) References(agent string) ([]string, error) {
	a, ok := c.Agents[agent]
	if !ok {
		return nil, fmt.Errorf("%w: %s", resolve.ErrAgentNotFound, agent)
	}

	return a.References, nil
}

// RuleFilePatterns maps each agent to its rule file pattern.
func (c *Config) RuleFilePatterns() map[string]string {
	patterns := make(map[string]string, len(c.Agents))
	for name, a := range c.Agents {
		patterns[name] = a.RuleFilePattern
	}

	return patterns
}

// Marshal renders the config as two-space indented JSON.
func (c *Config) Marshal() ([]byte, error) {
	b, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal config: %w", err)
	}

	return append(b, '\n'), nil
}

func groupName(group *string) string {
	if group == nil {
		return "null"
	}

	return "'" + *group + "'"
}

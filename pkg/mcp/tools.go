package mcp

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
	"github.com/dirt-rain/code-editor-agent/pkg/workspace"
)

// InitParams defines parameters for the code_editor_agent_init tool.
type InitParams struct{}

// GenerateParams defines parameters for the code_editor_agent_generate tool.
type GenerateParams struct{}

// ListConfigParams defines parameters for the code_editor_agent_list_config tool.
type ListConfigParams struct{}

// LoadParams defines parameters for the code_editor_agent_load tool.
type LoadParams struct {
	AgentName string `json:"agent_name,omitempty" jsonschema:"the agent name or command group to use; if not provided the agent with commandGroup null is used"`
	FilePath  string `json:"file_path" jsonschema:"the file path to load rules for, relative to the project root"`
}

// AgentRuleCount is the number of cached rules of one agent.
type AgentRuleCount struct {
	Agent string `json:"agent"`
	Rules int    `json:"rules"`
}

// GenerateResult contains the result of generating the cache.
type GenerateResult struct {
	Message string           `json:"message"`
	Path    string           `json:"path"`
	Size    string           `json:"size"`
	Agents  []AgentRuleCount `json:"agents"`
}

func newGenerateResult(res *workspace.GenerateResult) GenerateResult {
	out := GenerateResult{
		Path:   res.Path,
		Size:   sizeString(res.Size),
		Agents: []AgentRuleCount{},
	}

	var b strings.Builder

	fmt.Fprintf(&b, "Wrote %s (%s).\n", res.Path, out.Size)

	for _, agent := range slices.Sorted(maps.Keys(res.Rules)) {
		n := len(res.Rules[agent])
		out.Agents = append(out.Agents, AgentRuleCount{Agent: agent, Rules: n})
		fmt.Fprintf(&b, "- %s: %d rule(s)\n", agent, n)
	}

	out.Message = b.String()

	return out
}

// LoadedRule identifies one emitted or dropped rule.
type LoadedRule struct {
	Path  string `json:"path"`
	Agent string `json:"agent"`
	Depth int    `json:"depth"`
}

// LoadResult contains the result of loading the rules for a file.
type LoadResult struct {
	Agent    string       `json:"agent"`
	Path     string       `json:"path"`
	Rules    []LoadedRule `json:"rules"`
	Dropped  []LoadedRule `json:"dropped"`
	Warnings []string     `json:"warnings"`
}

func newLoadResult(res *resolve.Result) LoadResult {
	out := LoadResult{
		Agent:    res.Agent,
		Path:     res.Path,
		Rules:    loadedRules(res.Rules),
		Dropped:  loadedRules(res.Dropped),
		Warnings: []string{},
	}

	out.Warnings = append(out.Warnings, res.Warnings...)

	return out
}

func loadedRules(units []*rule.Unit) []LoadedRule {
	rules := make([]LoadedRule, 0, len(units))
	for _, u := range units {
		rules = append(rules, LoadedRule{Path: u.Path, Agent: u.Agent, Depth: u.Depth})
	}

	return rules
}

// AgentConfig describes one configured agent.
type AgentConfig struct {
	CommandGroup    *string  `json:"commandGroup"`
	Name            string   `json:"name"`
	RuleFilePattern string   `json:"ruleFilePattern"`
	References      []string `json:"references"`
	Rules           int      `json:"rules"`
}

// ListConfigResult contains the configured agents.
type ListConfigResult struct {
	Message string        `json:"message"`
	Agents  []AgentConfig `json:"agents"`
}

func newListConfigResult(agents []workspace.AgentInfo) ListConfigResult {
	out := ListConfigResult{
		Agents: make([]AgentConfig, 0, len(agents)),
	}

	var b strings.Builder

	b.WriteString("Configured agents:\n")

	for _, a := range agents {
		refs := a.References
		if refs == nil {
			refs = []string{}
		}

		out.Agents = append(out.Agents, AgentConfig{
			CommandGroup:    a.CommandGroup,
			Name:            a.Name,
			RuleFilePattern: a.RuleFilePattern,
			References:      refs,
			Rules:           a.Rules,
		})

		usage := "code-editor-agent <file>"
		if a.CommandGroup != nil {
			usage = fmt.Sprintf("code-editor-agent %s <file>", *a.CommandGroup)
		}

		fmt.Fprintf(&b, "\n%s\n  usage: %s\n  ruleFilePattern: %s\n", a.Name, usage, a.RuleFilePattern)

		if len(refs) > 0 {
			fmt.Fprintf(&b, "  references: %s\n", strings.Join(refs, ", "))
		}

		if a.Rules >= 0 {
			fmt.Fprintf(&b, "  cached rules: %d\n", a.Rules)
		} else {
			b.WriteString("  cached rules: none, run code_editor_agent_generate\n")
		}
	}

	out.Message = b.String()

	return out
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: truncateString(text, maxTextLen)},
		},
	}
}

func loadTextResult(res *resolve.Result) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			&mcp.TextContent{Text: truncateLoad(res, maxTextLen)},
		},
	}
}

const maxTextLen = 256 * 1024

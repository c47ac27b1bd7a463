// Package mcp exposes a [workspace.Workspace] as a Model Context Protocol
// server.
//
// The server registers four tools:
//
//   - code_editor_agent_init
//   - code_editor_agent_generate
//   - code_editor_agent_load
//   - code_editor_agent_list_config
//
// Tools call the workspace in-process. The server speaks stdio by default and
// streamable HTTP when an address is configured.
package mcp

import (
	"strings"
	"unicode/utf8"

	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
)

const (
	name         = "code-editor-agent"
	instructions = `MCP Server 'code-editor-agent' returns the project's context rules that apply to a file.

Context rules are Markdown files with front matter (patterns, ignorePatterns, priority, order, tags, references).
They are compiled into a cache file, which is what 'code_editor_agent_load' reads.

REQUIRED workflow:
1. Before reading or editing a file, call 'code_editor_agent_load' with its path relative to the project root
2. READ the returned rules and follow them while working on that file
3. After adding or modifying any rule file (*.code-editor-agent.md by default), call 'code_editor_agent_generate'

Use 'code_editor_agent_list_config' to see the configured agents, their command groups and references.
Use 'code_editor_agent_init' only in a project that has not been set up yet.
`
)

const (
	toolInit       = "code_editor_agent_init"
	toolGenerate   = "code_editor_agent_generate"
	toolLoad       = "code_editor_agent_load"
	toolListConfig = "code_editor_agent_list_config"
)

const truncatedMarker = "\n[OUTPUT TRUNCATED]"

// truncateString truncates a string to at most maxLen bytes, backing up to a
// rune boundary, and appends a marker if anything was cut.
func truncateString(str string, maxLen int) string {
	if len(str) <= maxLen {
		return str
	}

	cut := max(maxLen, 0)
	for cut > 0 && !utf8.RuneStart(str[cut]) {
		cut--
	}

	return str[:cut] + truncatedMarker
}

// truncateLoad truncates the rule bodies of res so that the whole text fits
// in maxLen bytes, keeping the footer intact.
func truncateLoad(res *resolve.Result, maxLen int) string {
	footer := res.Footer()
	text := res.String()

	if len(text) <= maxLen {
		return text
	}

	body := strings.TrimSuffix(text, footer)

	return truncateString(body, maxLen-len(footer)-len(truncatedMarker)-1) + "\n" + footer
}

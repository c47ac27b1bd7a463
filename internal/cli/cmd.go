package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/dirt-rain/code-editor-agent/pkg/mcp"
	"github.com/dirt-rain/code-editor-agent/pkg/render"
	"github.com/dirt-rain/code-editor-agent/pkg/workspace"
	"github.com/dirt-rain/code-editor-agent/pkg/yaml"
)

// Output formats of `cmd list`.
const (
	OutputText = "text"
	OutputJSON = "json"
	OutputYAML = "yaml"
)

var outputFormats = []string{OutputText, OutputJSON, OutputYAML}

// NewCmdCmd returns the `cmd` command, which groups the project commands.
// Its name is reserved and cannot be used as a command group.
func NewCmdCmd(ra *RootArgs) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cmd",
		Short: "Manage the project configuration and rule cache",
		Args:  cobra.NoArgs,
	}

	cmd.AddCommand(
		newInitCmd(ra),
		newGenerateCmd(ra),
		newListCmd(ra),
		newConfigCmd(ra),
		newMCPCmd(ra),
	)

	return cmd
}

func newInitCmd(ra *RootArgs) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the config file, an example rule, the agent definition and the rule cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ws := workspace.Open(ra.Dir)

			res, err := ws.Init(cmd.Context())
			if err != nil {
				return fmt.Errorf("initialize: %w", err)
			}

			out := cmd.OutOrStdout()
			for _, name := range []string{ws.ConfigPath(), workspace.ExampleRulePath, workspace.AgentDefinitionPath} {
				mustN(fmt.Fprintf(out, "Created %s\n", name))
			}

			writeGenerateSummary(out, res)

			return nil
		},
	}
}

type GenerateArgs struct {
	*RootArgs

	Check bool
	Watch bool
	Force bool
}

func newGenerateCmd(ra *RootArgs) *cobra.Command {
	ga := &GenerateArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Scan the rule files of every agent and write the rule cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGenerate(cmd, ga)
		},
	}

	cmd.Flags().BoolVar(&ga.Check, "check", false, "Fail if the rule cache is out of date instead of writing it")
	cmd.Flags().BoolVarP(&ga.Watch, "watch", "w", false, "Regenerate the rule cache when rule files change")
	cmd.Flags().BoolVar(&ga.Force, "force", false, "Generate even if no rule cache exists yet")
	cmd.MarkFlagsMutuallyExclusive("check", "watch")

	return cmd
}

func runGenerate(cmd *cobra.Command, ga *GenerateArgs) error {
	ctx := cmd.Context()
	ws := workspace.Open(ga.Dir)
	out := cmd.OutOrStdout()

	res, err := ws.Generate(ctx, workspace.GenerateOpts{Force: ga.Force, Check: ga.Check})
	if errors.Is(err, workspace.ErrStaleCache) {
		mustN(fmt.Fprint(out, res.Diff))

		return err //nolint:wrapcheck // Already descriptive.
	}
	if err != nil {
		return err //nolint:wrapcheck // Already descriptive.
	}

	if ga.Check {
		mustN(fmt.Fprintf(out, "%s is up to date\n", res.Path))

		return nil
	}

	writeGenerateSummary(out, res)

	if !ga.Watch {
		return nil
	}

	err = ws.Watch(ctx, func(res *workspace.GenerateResult) {
		writeGenerateSummary(out, res)
	})
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("watch: %w", err)
	}

	return nil
}

func writeGenerateSummary(w io.Writer, res *workspace.GenerateResult) {
	mustN(fmt.Fprintf(w, "Generated %s (%s)\n", res.Path, humanize.Bytes(uint64(max(res.Size, 0)))))

	for _, agent := range slices.Sorted(maps.Keys(res.Rules)) {
		mustN(fmt.Fprintf(w, "  %s: %s\n", agent, pluralRules(len(res.Rules[agent]))))
	}
}

func pluralRules(n int) string {
	if n == 1 {
		return "1 rule"
	}

	return humanize.Comma(int64(n)) + " rules"
}

type ListArgs struct {
	*RootArgs

	Agent  string
	Filter string
	Output string
}

func newListCmd(ra *RootArgs) *cobra.Command {
	la := &ListArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the cached rules",
		Example: `  # Rules of the review agent that carry the "api" tag:
  code-editor-agent cmd list --agent review --filter '"api" in rule.tags'

  # Rules that apply directly to a path:
  code-editor-agent cmd list --filter 'rule.patterns.exists(p, glob(p, "src/main.go"))'`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runList(cmd, la)
		},
	}

	cmd.Flags().StringVarP(&la.Agent, "agent", "a", "", "Only list the rules of this agent")
	cmd.Flags().StringVarP(&la.Filter, "filter", "f", "", "CEL expression each listed rule must satisfy")
	cmd.Flags().StringVarP(&la.Output, "output", "o", OutputText,
		fmt.Sprintf("Output format, one of: %s", outputFormats))

	err := cmd.RegisterFlagCompletionFunc("output",
		cobra.FixedCompletions(outputFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	return cmd
}

func runList(cmd *cobra.Command, la *ListArgs) error {
	ws := workspace.Open(la.Dir)

	rules, err := ws.Rules(la.Agent, la.Filter)
	if err != nil {
		return fmt.Errorf("list rules: %w", err)
	}

	if rules == nil {
		rules = []workspace.ListedRule{}
	}

	out := cmd.OutOrStdout()

	switch la.Output {
	case OutputJSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")

		err := enc.Encode(rules)
		if err != nil {
			return fmt.Errorf("encode json: %w", err)
		}

	case OutputYAML:
		enc := yaml.NewEncoder(out)

		err := enc.EncodeJSON(rules)
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

		err = enc.Close()
		if err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}

	case OutputText:
		mustN(fmt.Fprintln(out, rulesTable(rules)))

	default:
		return fmt.Errorf("invalid argument %q for \"--output\": must be one of %s", la.Output, outputFormats)
	}

	return nil
}

func rulesTable(rules []workspace.ListedRule) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("AGENT", "PATH", "PATTERNS", "TAGS", "PRIORITY", "ORDER")

	for _, r := range rules {
		t.Row(
			r.Agent,
			r.Path,
			strings.Join(r.Patterns, ", "),
			strings.Join(r.Tags, ", "),
			optionalInt(r.Priority),
			optionalInt(r.Order),
		)
	}

	return t.Render()
}

func optionalInt(n *int) string {
	if n == nil {
		return ""
	}

	return strconv.Itoa(*n)
}

type ConfigArgs struct {
	*RootArgs

	Effective bool
}

func newConfigCmd(ra *RootArgs) *cobra.Command {
	ca := &ConfigArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the project configuration and its agents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runConfig(cmd, ca)
		},
	}

	cmd.Flags().BoolVar(&ca.Effective, "effective", false, "Print the configuration with defaults applied")

	return cmd
}

func runConfig(cmd *cobra.Command, ca *ConfigArgs) error {
	ctx := cmd.Context()
	fsys := afero.NewBasePathFs(afero.NewOsFs(), ca.Dir)
	ws := workspace.New(fsys, workspace.WithRoot(ca.Dir))

	cfg, err := ws.Config(ctx)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	src, err := afero.ReadFile(fsys, ws.ConfigPath())
	if ca.Effective || errors.Is(err, fs.ErrNotExist) {
		src, err = cfg.Marshal()
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}

	out := cmd.OutOrStdout()

	if render.IsTerminal(out) {
		highlighted, err := render.NewHighlighter("json").Highlight(string(src))
		if err == nil {
			src = []byte(highlighted)
		}
	}

	mustN(out.Write(src))

	agents, err := ws.Agents(ctx)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	errOut := cmd.ErrOrStderr()
	mustN(fmt.Fprintln(errOut))

	for _, a := range agents {
		usage := cmdName + " <file>"
		if a.CommandGroup != nil {
			usage = fmt.Sprintf("%s %s <file>", cmdName, *a.CommandGroup)
		}

		mustN(fmt.Fprintf(errOut, "%s %s\n", headerStyle.Render(a.Name), subtleStyle.Render(usage)))
	}

	return nil
}

type MCPArgs struct {
	*RootArgs

	Address string
}

func newMCPCmd(ra *RootArgs) *cobra.Command {
	ma := &MCPArgs{RootArgs: ra}

	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the code-editor-agent tools over the Model Context Protocol",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			srv := mcp.NewServer(ma.Address, workspace.Open(ma.Dir))

			return srv.Serve(cmd.Context()) //nolint:wrapcheck // Already wrapped.
		},
	}

	cmd.Flags().StringVar(&ma.Address, "addr", "", "Serve streamable HTTP at this address instead of stdio")

	return cmd
}

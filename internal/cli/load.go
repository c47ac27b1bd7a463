package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/dirt-rain/code-editor-agent/pkg/render"
	"github.com/dirt-rain/code-editor-agent/pkg/resolve"
	"github.com/dirt-rain/code-editor-agent/pkg/rule"
	"github.com/dirt-rain/code-editor-agent/pkg/workspace"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	subtleStyle = lipgloss.NewStyle().Faint(true)
)

type LoadArgs struct {
	*RootArgs

	Group       *string
	File        string
	Concurrency int
	Explain     bool
	Pretty      bool
}

func NewLoadArgs(rootArgs *RootArgs) *LoadArgs {
	return &LoadArgs{
		RootArgs: rootArgs,
	}
}

func (la *LoadArgs) AddFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&la.Explain, "explain", false, "Print the selected and dropped rules to stderr")
	cmd.Flags().BoolVar(&la.Pretty, "pretty", false, "Render rule bodies as Markdown when stdout is a terminal")
	cmd.Flags().IntVar(&la.Concurrency, "concurrency", 8, "Maximum number of rule bodies read at once")
}

func runLoad(cmd *cobra.Command, la *LoadArgs) error {
	ctx := cmd.Context()
	ws := workspace.Open(la.Dir, workspace.WithConcurrency(la.Concurrency))

	res, err := ws.LoadGroup(ctx, la.Group, la.File)
	if err != nil {
		return err //nolint:wrapcheck // Carries agent and path.
	}

	if la.Explain {
		writeExplain(cmd.ErrOrStderr(), res)
	}

	out := cmd.OutOrStdout()

	if la.Pretty && !res.Empty() && render.IsTerminal(out) {
		md, err := render.Markdown(res.String(), "", render.TerminalWidth(out, 80))
		if err != nil {
			return fmt.Errorf("render: %w", err)
		}

		mustN(fmt.Fprint(out, md))

		return nil
	}

	_, err = res.WriteTo(out)
	if err != nil {
		return err //nolint:wrapcheck // Already wrapped.
	}

	return nil
}

func writeExplain(w io.Writer, res *resolve.Result) {
	mustN(fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("Rules for %s (agent %s):", res.Path, res.Agent))))

	if len(res.Rules) == 0 {
		mustN(fmt.Fprintln(w, subtleStyle.Render("  none")))
	}

	for i, u := range res.Rules {
		mustN(fmt.Fprintf(w, "  %d. %s %s\n", i+1, u.Path, subtleStyle.Render(unitDetails(u))))
	}

	if len(res.Dropped) == 0 {
		return
	}

	mustN(fmt.Fprintln(w, headerStyle.Render("Dropped by priority:")))

	for _, u := range res.Dropped {
		mustN(fmt.Fprintf(w, "  - %s %s\n", u.Path, subtleStyle.Render(unitDetails(u))))
	}
}

func unitDetails(u *rule.Unit) string {
	return fmt.Sprintf("(agent %s, depth %d, priority %s, order %s)",
		u.Agent, u.Depth, rank(u.PriorityRank()), rank(u.OrderRank()))
}

func rank(n int) string {
	if n == rule.Unset {
		return "unset"
	}

	return strconv.Itoa(n)
}

func loadCompletion(la *LoadArgs) func(*cobra.Command, []string, string) ([]cobra.Completion, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, _ string) ([]cobra.Completion, cobra.ShellCompDirective) {
		if len(args) > 0 {
			return nil, cobra.ShellCompDirectiveDefault
		}

		// First argument: a command group or a file.
		agents, err := workspace.Open(la.Dir).Agents(cmd.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveDefault
		}

		completions := []cobra.Completion{}
		for _, a := range agents {
			if a.CommandGroup != nil {
				completions = append(completions, cobra.CompletionWithDesc(*a.CommandGroup, "agent "+a.Name))
			}
		}

		return completions, cobra.ShellCompDirectiveDefault
	}
}

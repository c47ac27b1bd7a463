package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dirt-rain/code-editor-agent/pkg/log"
)

const (
	cmdName = "code-editor-agent"
	cmdDesc = `Serve file-specific context rules to coding agents.`

	cmdExamples = `  # Print the rules for a file, using the agent whose commandGroup is null:
  code-editor-agent src/components/Button.tsx

  # Use the agent whose commandGroup is "review":
  code-editor-agent review src/components/Button.tsx

  # Show which rules were selected and dropped:
  code-editor-agent --explain src/api/server.go

  # Set up a project, then rebuild the rule cache after editing rules:
  code-editor-agent cmd init
  code-editor-agent cmd generate`
)

type RootArgs struct {
	LogLevel  string
	LogFormat string
	Dir       string
}

func NewRootArgs() *RootArgs {
	return &RootArgs{}
}

func (ra *RootArgs) AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().
		StringVar(&ra.LogLevel, "log-level", "warn", fmt.Sprintf("Log level, one of: %s", log.AllLevels))
	cmd.PersistentFlags().
		StringVar(&ra.LogFormat, "log-format", "text", fmt.Sprintf("Log format, one of: %s", log.AllFormats))
	cmd.PersistentFlags().
		StringVarP(&ra.Dir, "dir", "C", ".", "Project root directory")

	var err error

	err = cmd.RegisterFlagCompletionFunc("log-format",
		cobra.FixedCompletions(log.AllFormats, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.RegisterFlagCompletionFunc("log-level",
		cobra.FixedCompletions(log.AllLevels, cobra.ShellCompDirectiveNoFileComp),
	)
	if err != nil {
		panic(err)
	}

	err = cmd.MarkPersistentFlagDirname("dir")
	if err != nil {
		panic(err)
	}
}

func NewRootCmd() *cobra.Command {
	args := NewRootArgs()
	loadArgs := NewLoadArgs(args)

	cmd := &cobra.Command{
		Use:               cmdName + " [group] <file>",
		Short:             cmdDesc,
		Example:           cmdExamples,
		PersistentPreRunE: setupLogging(args),
		ValidArgsFunction: loadCompletion(loadArgs),
		Args:              cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, argv []string) error {
			if len(argv) == 2 {
				loadArgs.Group = &argv[0]
			}

			loadArgs.File = argv[len(argv)-1]

			return runLoad(cmd, loadArgs)
		},
	}

	args.AddFlags(cmd)
	loadArgs.AddFlags(cmd)
	cmd.AddCommand(NewCmdCmd(args))

	bindEnvVars(cmd)

	return cmd
}

func setupLogging(rc *RootArgs) func(cmd *cobra.Command, _ []string) error {
	return func(cmd *cobra.Command, _ []string) error {
		err := log.Setup(cmd.ErrOrStderr(), rc.LogLevel, rc.LogFormat)
		if err != nil {
			return fmt.Errorf("set up logging: %w", err)
		}

		return nil
	}
}

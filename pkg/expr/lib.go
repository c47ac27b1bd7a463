package expr

import (
	"path"

	"github.com/google/cel-go/cel"
	"github.com/google/cel-go/common/types"
	"github.com/google/cel-go/common/types/ref"
	"github.com/google/cel-go/ext"

	"github.com/dirt-rain/code-editor-agent/pkg/rule"
)

type lib struct{}

func (lib) CompileOptions() []cel.EnvOption {
	return []cel.EnvOption{
		ext.Strings(),
		ext.Lists(),

		// `glob` reports whether a path matches a rule glob pattern.
		// Example: rule.patterns.exists(p, glob(p, "src/lib/Button.tsx")).
		cel.Function("glob",
			cel.Overload("glob_string_string", []*cel.Type{cel.StringType, cel.StringType}, cel.BoolType,
				cel.BinaryBinding(func(pattern, name ref.Val) ref.Val {
					p, ok := pattern.(types.String)
					if !ok {
						return types.NewErr("glob: invalid pattern value")
					}

					n, ok := name.(types.String)
					if !ok {
						return types.NewErr("glob: invalid path value")
					}

					return types.Bool(rule.MatchAny(string(n), string(p)))
				}),
			),
		),

		// `pathBase` returns the last element of the path.
		// Example: pathBase(rule.path) == "RENAME-ME.code-editor-agent.md".
		cel.Function("pathBase",
			cel.Overload("path_base", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathBase", path.Base)),
			),
		),

		// `pathDir` returns all but the last element of the path.
		// Example: pathDir(rule.path).startsWith("docs").
		cel.Function("pathDir",
			cel.Overload("path_dir", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathDir", path.Dir)),
			),
		),

		// `pathExt` returns the file extension of the path.
		// Example: pathExt(rule.path) == ".md".
		cel.Function("pathExt",
			cel.Overload("path_ext", []*cel.Type{cel.StringType}, cel.StringType,
				cel.UnaryBinding(stringFunc("pathExt", path.Ext)),
			),
		),
	}
}

func (lib) ProgramOptions() []cel.ProgramOption {
	return []cel.ProgramOption{}
}

func stringFunc(name string, fn func(string) string) func(ref.Val) ref.Val {
	return func(v ref.Val) ref.Val {
		s, ok := v.(types.String)
		if !ok {
			return types.NewErr("%s: invalid string value", name)
		}

		return types.String(fn(rule.Normalize(string(s))))
	}
}

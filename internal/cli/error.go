package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/fang"
	"github.com/charmbracelet/lipgloss"

	"github.com/dirt-rain/code-editor-agent/pkg/config"
	"github.com/dirt-rain/code-editor-agent/pkg/store"
	"github.com/dirt-rain/code-editor-agent/pkg/workspace"
)

// ErrorHandler prints err in fang's error style, followed by a hint when
// the error has a known remedy.
func ErrorHandler(w io.Writer, styles fang.Styles, err error) {
	mustN(fmt.Fprintln(w, styles.ErrorHeader.String()))
	mustN(fmt.Fprintln(w, lipgloss.NewStyle().MarginLeft(2).Render(err.Error())))
	mustN(fmt.Fprintln(w))

	switch {
	case isUsageError(err):
		mustN(fmt.Fprintln(w, lipgloss.JoinHorizontal(
			lipgloss.Left,
			styles.ErrorText.UnsetWidth().Render("Try"),
			styles.Program.Flag.Render("--help"),
			styles.ErrorText.UnsetWidth().UnsetMargins().UnsetTransform().PaddingLeft(1).Render("for usage."),
		)))
		mustN(fmt.Fprintln(w))

	case hint(err) != "":
		mustN(fmt.Fprintln(w, styles.ErrorText.UnsetWidth().Render(hint(err))))
		mustN(fmt.Fprintln(w))
	}
}

func hint(err error) string {
	switch {
	case errors.Is(err, workspace.ErrAlreadyInitialized):
		return "Run `code-editor-agent cmd generate` to rebuild the rule cache."
	case errors.Is(err, workspace.ErrStaleCache):
		return "Run `code-editor-agent cmd generate` and commit the rule cache."
	case errors.Is(err, store.ErrNoCache):
		return "Run this from the project root, or `code-editor-agent cmd init` to set up a new project."
	case errors.Is(err, config.ErrInvalidConfig):
		return fmt.Sprintf("Check %s.", config.DefaultPath)
	}

	return ""
}

// XXX: this is a hack to detect usage errors.
// See: https://github.com/spf13/cobra/pull/2266
func isUsageError(err error) bool {
	s := err.Error()
	for _, prefix := range []string{
		"flag needs an argument:",
		"unknown flag:",
		"unknown shorthand flag:",
		"unknown command",
		"invalid argument",
		"accepts between",
		"if any flags in the group",
	} {
		if strings.HasPrefix(s, prefix) {
			return true
		}
	}

	return false
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

func mustN(_ int, err error) {
	must(err)
}

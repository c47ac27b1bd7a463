// Package render formats command output for terminals.
//
// Output written to anything other than a terminal is left untouched, since
// rule bodies and configuration are usually read by other programs.
package render

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	glamourstyles "github.com/charmbracelet/glamour/styles"
)

// IsTerminal reports whether w is a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return false
	}

	return term.IsTerminal(int(f.Fd())) //nolint:gosec // File descriptors fit in int.
}

// Highlighter applies chroma syntax highlighting.
type Highlighter struct {
	lexer     chroma.Lexer
	formatter chroma.Formatter
	style     *chroma.Style
}

// HighlighterOpt configures a [Highlighter].
type HighlighterOpt func(*Highlighter)

// WithFormatter sets the chroma formatter by name, e.g. "noop" or "terminal256".
func WithFormatter(name string) HighlighterOpt {
	return func(h *Highlighter) {
		h.formatter = formatters.Get(name)
	}
}

// WithStyle sets the chroma style by name.
func WithStyle(name string) HighlighterOpt {
	return func(h *Highlighter) {
		h.style = styles.Get(name)
	}
}

// NewHighlighter creates a [Highlighter] for the given language. The
// formatter follows the color profile of the environment.
func NewHighlighter(language string, opts ...HighlighterOpt) *Highlighter {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}

	h := &Highlighter{
		lexer:     chroma.Coalesce(lexer),
		formatter: formatters.Get(formatterName(termenv.EnvColorProfile())),
		style:     styles.Get("dracula"),
	}

	for _, opt := range opts {
		opt(h)
	}

	return h
}

// Highlight returns src with syntax highlighting applied.
func (h *Highlighter) Highlight(src string) (string, error) {
	iterator, err := h.lexer.Tokenise(nil, src)
	if err != nil {
		return "", fmt.Errorf("lexer tokenize: %w", err)
	}

	buf := &bytes.Buffer{}

	err = h.formatter.Format(buf, h.style, iterator)
	if err != nil {
		return "", fmt.Errorf("format: %w", err)
	}

	return buf.String(), nil
}

func formatterName(p termenv.Profile) string {
	switch p {
	case termenv.TrueColor:
		return "terminal16m"

	case termenv.ANSI256:
		return "terminal256"

	case termenv.ANSI:
		return "terminal8"

	default:
		return "noop"
	}
}

// Markdown renders Markdown for a terminal of the given width. Style is a
// glamour style name; [glamourstyles.AutoStyle] picks dark or light from the
// terminal background.
func Markdown(src, style string, width int) (string, error) {
	if style == "" {
		style = glamourstyles.AutoStyle
	}

	opts := []glamour.TermRendererOption{
		glamour.WithWordWrap(width),
		glamour.WithPreservedNewLines(),
	}

	if style == glamourstyles.AutoStyle {
		opts = append(opts, glamour.WithAutoStyle())
	} else {
		opts = append(opts, glamour.WithStandardStyle(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("create markdown renderer: %w", err)
	}

	out, err := r.Render(src)
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	return strings.TrimLeft(out, "\n"), nil
}

// TerminalWidth returns the width of w, or fallback when w is not a terminal.
func TerminalWidth(w io.Writer, fallback int) int {
	f, ok := w.(interface{ Fd() uintptr })
	if !ok {
		return fallback
	}

	width, _, err := term.GetSize(int(f.Fd())) //nolint:gosec // File descriptors fit in int.
	if err != nil || width <= 0 {
		return fallback
	}

	return width
}

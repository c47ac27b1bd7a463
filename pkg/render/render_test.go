package render_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirt-rain/code-editor-agent/pkg/render"
)

func TestHighlighter_Highlight(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		language string
		src      string
	}{
		"json": {
			language: "json",
			src:      "{\n  \"exclude\": [\"./node_modules/**\"]\n}\n",
		},
		"unknown language": {
			language: "not-a-language",
			src:      "plain text\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			h := render.NewHighlighter(tc.language, render.WithFormatter("noop"))

			got, err := h.Highlight(tc.src)
			require.NoError(t, err)
			assert.Equal(t, tc.src, got)
		})
	}
}

func TestHighlighter_Colors(t *testing.T) {
	t.Parallel()

	h := render.NewHighlighter("json", render.WithFormatter("terminal256"), render.WithStyle("monokai"))

	got, err := h.Highlight(`{"a": 1}`)
	require.NoError(t, err)
	assert.Contains(t, got, "\x1b[")
	assert.Contains(t, got, `"a"`)
}

func TestMarkdown(t *testing.T) {
	t.Parallel()

	got, err := render.Markdown("# Rules\n\nUse tabs.\n", "notty", 80)
	require.NoError(t, err)
	assert.Contains(t, got, "Rules")
	assert.Contains(t, got, "Use tabs.")
}

func TestIsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, render.IsTerminal(&bytes.Buffer{}))
	assert.Equal(t, 80, render.TerminalWidth(&bytes.Buffer{}, 80))
}

package frontmatter_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dirt-rain/code-editor-agent/pkg/frontmatter"
	"github.com/dirt-rain/code-editor-agent/pkg/yaml"
)

func TestSplit(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content    string
		wantHeader string
		wantBody   string
		wantOK     bool
	}{
		"header and body": {
			content:    "---\npatterns: '*.go'\n---\n\nBody\n",
			wantHeader: "\npatterns: '*.go'\n",
			wantBody:   "\n\nBody\n",
			wantOK:     true,
		},
		"empty header": {
			content:    "------\nBody",
			wantHeader: "",
			wantBody:   "\nBody",
			wantOK:     true,
		},
		"no header": {
			content:  "# Title\n",
			wantBody: "# Title\n",
		},
		"unterminated": {
			content:  "---\npatterns: x\n",
			wantBody: "---\npatterns: x\n",
		},
		"delimiter inside a line is not closing": {
			content:  "---\na: b --- c\n",
			wantBody: "---\na: b --- c\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			header, body, ok := frontmatter.Split([]byte(tc.content))
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.wantHeader, string(header))
			assert.Equal(t, tc.wantBody, string(body))
		})
	}
}

func TestBody(t *testing.T) {
	t.Parallel()

	tcs := map[string]struct {
		content string
		want    string
	}{
		"strips header and leading newlines": {
			content: "---\na: 1\n---\n\n\nRule text\n",
			want:    "Rule text\n",
		},
		"keeps content without header": {
			content: "\nRule text",
			want:    "\nRule text",
		},
		"crlf": {
			content: "---\r\na: 1\r\n---\r\nRule\r\n",
			want:    "Rule\r\n",
		},
	}

	for name, tc := range tcs {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			assert.Equal(t, tc.want, frontmatter.Body([]byte(tc.content)))
		})
	}
}

func TestDecode(t *testing.T) {
	t.Parallel()

	var v struct {
		Patterns []string `yaml:"patterns"`
		Priority int      `yaml:"priority"`
	}

	err := frontmatter.Decode([]byte("---\npatterns: ['a', 'b']\npriority: 2\n---\nbody"), &v)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, v.Patterns)
	assert.Equal(t, 2, v.Priority)

	err = frontmatter.Decode([]byte("body"), &v)
	require.ErrorIs(t, err, frontmatter.ErrMissing)

	err = frontmatter.Decode([]byte("---\npatterns: [a\n---\n"), &v)

	var yamlErr *yaml.Error
	require.ErrorAs(t, err, &yamlErr)
}

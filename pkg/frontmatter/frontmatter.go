// Package frontmatter splits Markdown documents into a YAML header and a body.
//
// A header is present when the document starts with "---" and a later line
// starts with "---":
//
//	---
//	patterns: "**/*.go"
//	---
//	Body text.
package frontmatter

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dirt-rain/code-editor-agent/pkg/yaml"
)

const delimiter = "---"

// ErrMissing is returned by [Decode] when content has no front matter.
var ErrMissing = errors.New("missing front matter")

// Split returns the header between the delimiters and the remaining body.
// ok is false when content has no front matter, in which case body is content.
func Split(content []byte) ([]byte, []byte, bool) {
	if !bytes.HasPrefix(content, []byte(delimiter)) {
		return nil, content, false
	}

	rest := content[len(delimiter):]

	// The closing delimiter may immediately follow the opening one, or must
	// otherwise start a line.
	end := -1
	if bytes.HasPrefix(rest, []byte(delimiter)) {
		end = 0
	} else if i := bytes.Index(rest, []byte("\n"+delimiter)); i >= 0 {
		end = i + 1
	}

	if end < 0 {
		return nil, content, false
	}

	return rest[:end], rest[end+len(delimiter):], true
}

// Body returns the document text after the front matter with leading
// newlines removed, or the whole document when it has no front matter.
func Body(content []byte) string {
	_, body, ok := Split(content)
	if !ok {
		return string(content)
	}

	return string(bytes.TrimLeft(body, "\r\n"))
}

// Decode decodes the front matter of content into v. An empty header leaves
// v untouched. Errors from the YAML
// decoder are [*yaml.Error]s carrying the header source.
func Decode(content []byte, v any) error {
	header, _, ok := Split(content)
	if !ok {
		return ErrMissing
	}

	err := yaml.Decode("", header, v)
	if err != nil {
		return fmt.Errorf("decode front matter: %w", err)
	}

	return nil
}

package yaml

import (
	"bytes"
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

// Decode decodes the single YAML (or JSON) document src into v. An empty
// document leaves v untouched. Decoding errors are [*Error]s that carry src
// and point at the offending token; name labels the source in messages and
// may be empty for inline documents such as front matter.
func Decode(name string, src []byte, v any, opts ...yaml.DecodeOption) error {
	err := yaml.NewDecoder(bytes.NewReader(src), opts...).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		return NewError(errors.New(yamlErr.GetMessage()),
			WithToken(yamlErr.GetToken()),
			WithSource(name, src),
		)
	}

	return NewError(err, WithSource(name, src))
}

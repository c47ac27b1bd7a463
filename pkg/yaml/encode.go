package yaml

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/goccy/go-yaml"
)

var DefaultEncoderOptions = []yaml.EncodeOption{
	yaml.Indent(2),
	yaml.IndentSequence(true),
	yaml.UseJSONMarshaler(),
}

type Encoder struct {
	e *yaml.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		e: yaml.NewEncoder(w, DefaultEncoderOptions...),
	}
}

func (e *Encoder) Encode(v any) error {
	return e.e.Encode(v) //nolint:wrapcheck // Return the original error.
}

// EncodeJSON encodes v as YAML using its JSON representation, so that JSON
// field names, omitempty and embedded structs apply, and key order is kept.
func (e *Encoder) EncodeJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	var ordered any

	err = yaml.UnmarshalWithOptions(data, &ordered, yaml.UseOrderedMap())
	if err != nil {
		return fmt.Errorf("unmarshal json: %w", err)
	}

	return e.Encode(ordered)
}

func (e *Encoder) Close() error {
	return e.e.Close() //nolint:wrapcheck // Return the original error.
}

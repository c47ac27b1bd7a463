package yaml

import (
	"encoding/json"
	"fmt"

	"github.com/invopop/jsonschema"
)

// SchemaGenerator generates JSON schemas from Go types, using the doc
// comments of the given packages as descriptions.
type SchemaGenerator struct {
	v        any
	base     string
	packages []string
}

// NewSchemaGenerator creates a [SchemaGenerator] for v. base is the module
// path and packages are directories relative to the module root.
func NewSchemaGenerator(v any, base string, packages ...string) *SchemaGenerator {
	return &SchemaGenerator{v: v, base: base, packages: packages}
}

// Generate returns the indented schema.
func (g *SchemaGenerator) Generate() ([]byte, error) {
	r := &jsonschema.Reflector{
		ExpandedStruct: true,
		DoNotReference: true,
	}

	for _, pkg := range g.packages {
		err := r.AddGoComments(g.base, pkg)
		if err != nil {
			return nil, fmt.Errorf("add comments from %s: %w", pkg, err)
		}
	}

	b, err := json.MarshalIndent(r.Reflect(g.v), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}

	return append(b, '\n'), nil
}

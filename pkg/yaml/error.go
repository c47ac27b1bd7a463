package yaml

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/goccy/go-yaml/ast"
	"github.com/goccy/go-yaml/parser"
	"github.com/goccy/go-yaml/printer"
	"github.com/goccy/go-yaml/token"
)

func NewPathBuilder() *yaml.PathBuilder {
	return &yaml.PathBuilder{}
}

// Error is a YAML or JSON document error located by a [*yaml.Path] or a
// [*token.Token]. When Source is set, Error renders the offending lines.
type Error struct {
	Err    error
	Path   *yaml.Path
	Token  *token.Token
	Source []byte
	// Name is the file the source was read from, if any.
	Name  string
	Color bool
}

type ErrorOpt func(e *Error)

func NewError(err error, opts ...ErrorOpt) *Error {
	e := &Error{Err: err}
	for _, opt := range opts {
		opt(e)
	}

	return e
}

func WithPath(path *yaml.Path) ErrorOpt {
	return func(e *Error) {
		e.Path = path
	}
}

func WithToken(tk *token.Token) ErrorOpt {
	return func(e *Error) {
		e.Token = tk
	}
}

func WithSource(name string, source []byte) ErrorOpt {
	return func(e *Error) {
		e.Name = name
		e.Source = source
	}
}

func WithColor(color bool) ErrorOpt {
	return func(e *Error) {
		e.Color = color
	}
}

// Annotate applies opts to err if it is an [*Error], and returns err.
func Annotate(err error, opts ...ErrorOpt) error {
	var yamlErr *Error
	if errors.As(err, &yamlErr) {
		for _, opt := range opts {
			opt(yamlErr)
		}
	}

	return err
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Error() string {
	if e.Err == nil {
		return ""
	}
	if e.Path == nil && e.Token == nil {
		return e.prefix() + e.Err.Error()
	}

	tk := e.Token
	if tk == nil && e.Source != nil {
		tk = tokenAtPath(e.Source, e.Path)
	}
	if tk == nil {
		return fmt.Sprintf("%serror at %s: %v", e.prefix(), e.Path.String(), e.Err)
	}

	var p printer.Printer

	return fmt.Sprintf("%s[%d:%d] %v:\n%s",
		e.prefix(), tk.Position.Line, tk.Position.Column, e.Err,
		p.PrintErrorToken(tk, e.Color),
	)
}

func (e *Error) prefix() string {
	if e.Name == "" {
		return ""
	}

	return e.Name + ": "
}

// tokenAtPath returns the token of the mapping key at path, or of the value
// when path does not end in a key. It returns nil when path is not found.
func tokenAtPath(source []byte, path *yaml.Path) *token.Token {
	file, err := parser.ParseBytes(source, 0)
	if err != nil {
		return nil
	}

	node, err := path.FilterFile(file)
	if err != nil {
		return nil
	}

	if key := keyToken(file, path); key != nil {
		return key
	}

	return node.GetToken()
}

func keyToken(file *ast.File, path *yaml.Path) *token.Token {
	s := path.String()

	dot := strings.LastIndex(s, ".")
	if dot == -1 || dot < strings.LastIndex(s, "[") {
		return nil
	}

	parent, err := yaml.PathString(s[:dot])
	if err != nil {
		return nil
	}

	node, err := parent.FilterFile(file)
	if err != nil {
		return nil
	}

	mapping, ok := node.(*ast.MappingNode)
	if !ok {
		return nil
	}

	for _, v := range mapping.Values {
		if v.Key.String() == s[dot+1:] {
			return v.Key.GetToken()
		}
	}

	return nil
}

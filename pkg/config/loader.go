package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"

	"github.com/spf13/afero"
	"github.com/tidwall/jsonc"

	"github.com/dirt-rain/code-editor-agent/pkg/yaml"
)

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// Loader parses configuration files.
type Loader struct {
	validator Validator
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*Loader)

// WithValidator sets a custom validator.
func WithValidator(v Validator) LoaderOpt {
	return func(l *Loader) {
		l.validator = v
	}
}

// NewLoader creates a [Loader] using [DefaultValidator].
func NewLoader(opts ...LoaderOpt) *Loader {
	l := &Loader{validator: DefaultValidator}
	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Load reads the config file name from fsys. A missing file yields the
// default configuration.
func (l *Loader) Load(fsys afero.Fs, name string) (*Config, error) {
	data, err := afero.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	return l.Parse(name, data)
}

// Parse parses JSONC data read from the file name. Errors locating a
// position in the document are [*yaml.Error]s annotated with the source.
func (l *Loader) Parse(name string, data []byte) (*Config, error) {
	// Comments are blanked out, so positions still match the original source.
	src := jsonc.ToJSON(data)

	var anyConfig any

	d := json.NewDecoder(bytes.NewReader(src))
	d.UseNumber()

	err := d.Decode(&anyConfig)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
	}

	if l.validator != nil {
		err = l.validator.Validate(anyConfig)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidConfig,
				yaml.Annotate(err, yaml.WithSource(name, src)))
		}
	}

	cfg := &Config{}

	err = yaml.Decode(name, src, cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	cfg.EnsureDefaults()

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return cfg, nil
}

// Load reads the config file name from fsys with the default [Loader].
func Load(fsys afero.Fs, name string) (*Config, error) {
	return NewLoader().Load(fsys, name)
}

// WriteDefault writes the default configuration to name, creating parent
// directories. An existing file is overwritten.
func WriteDefault(fsys afero.Fs, name string) error {
	b, err := New().Marshal()
	if err != nil {
		return err
	}

	err = fsys.MkdirAll(path.Dir(name), 0o755)
	if err != nil {
		return fmt.Errorf("create directories: %w", err)
	}

	err = afero.WriteFile(fsys, name, b, 0o644)
	if err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	return nil
}

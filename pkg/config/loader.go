package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"

	"github.com/macropower/agentrules/api"
	"github.com/macropower/agentrules/api/v1beta1"
	"github.com/macropower/agentrules/api/v1beta1/configs"
	"github.com/macropower/agentrules/pkg/yaml"
)

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*loaderOptions)

type loaderOptions struct {
	validator Validator
}

// WithValidator sets a custom validator.
func WithValidator(v Validator) LoaderOpt {
	return func(o *loaderOptions) {
		o.validator = v
	}
}

// Loader is a generic configuration loader that handles validation,
// YAML parsing, and error formatting for any config type T.
type Loader[T v1beta1.Object] struct {
	validator Validator
	newFunc   func() T
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] from byte data.
// The newFunc parameter is the constructor for type T (e.g., configs.NewEmpty).
func NewLoaderFromBytes[T v1beta1.Object](
	data []byte,
	newFunc func() T,
	defaultValidator Validator,
	opts ...LoaderOpt,
) *Loader[T] {
	options := &loaderOptions{
		validator: defaultValidator,
	}
	for _, opt := range opts {
		opt(options)
	}

	return &Loader[T]{
		data:      data,
		newFunc:   newFunc,
		validator: options.validator,
	}
}

// NewLoaderFromFile creates a [Loader] from a file path.
func NewLoaderFromFile[T v1beta1.Object](
	path string,
	newFunc func() T,
	defaultValidator Validator,
	opts ...LoaderOpt,
) (*Loader[T], error) {
	data, err := api.ReadFile(path)
	if err != nil {
		return nil, err //nolint:wrapcheck // Return the original error.
	}

	return NewLoaderFromBytes(data, newFunc, defaultValidator, opts...), nil
}

// Validate validates the configuration data against the schema.
func (l *Loader[T]) Validate() error {
	var anyConfig any

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(&anyConfig)
	if err != nil && !errors.Is(err, io.EOF) {
		return l.annotate(err)
	}

	if l.validator != nil {
		err = l.validator.Validate(anyConfig)
		if err != nil {
			return l.annotate(err)
		}
	}

	return nil
}

// Load parses and returns the configuration. Unset fields are defaulted.
// If T has a Validate method, it is run on the result.
//
//nolint:ireturn // Generic type parameter return is intentional.
func (l *Loader[T]) Load() (T, error) {
	var zero T

	cfg := l.newFunc()

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(cfg)
	if err != nil && !errors.Is(err, io.EOF) {
		return zero, l.annotate(err)
	}

	cfg.EnsureDefaults()

	if v, ok := any(cfg).(interface{ Validate() error }); ok {
		err = v.Validate()
		if err != nil {
			return zero, err //nolint:wrapcheck // Return the original error.
		}
	}

	return cfg, nil
}

// annotate attaches the source document to YAML errors so that they can
// point at the offending lines.
func (l *Loader[T]) annotate(err error) error {
	var yamlErr *yaml.Error
	if errors.As(err, &yamlErr) {
		yamlErr.Source = l.data
		return yamlErr
	}

	return err
}

// Load reads, validates and loads the global configuration at path.
// A missing file is not an error; the defaults are returned instead.
func Load(path string) (*configs.Config, error) {
	cl, err := NewLoaderFromFile(path, configs.NewEmpty, configs.DefaultValidator)
	if errors.Is(err, fs.ErrNotExist) {
		slog.Debug("config file not found, using defaults",
			slog.String("path", path),
		)

		return configs.New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	err = cl.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	cfg, err := cl.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	slog.Debug("loaded config",
		slog.String("path", path),
	)

	return cfg, nil
}

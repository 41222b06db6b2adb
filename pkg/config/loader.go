package config

import (
	"bytes"
	"fmt"

	"github.com/macropower/reap/api"
	"github.com/macropower/reap/api/v1beta1"
	"github.com/macropower/reap/api/v1beta1/configs"
	"github.com/macropower/reap/pkg/yaml"
)

// Validator validates configuration data against a schema.
type Validator interface {
	Validate(data any) error
}

// LoaderOpt configures a [Loader].
type LoaderOpt func(*loaderOptions)

type loaderOptions struct {
	validator Validator
	kinds     []string
	colored   bool
}

// WithValidator sets a custom validator.
func WithValidator(v Validator) LoaderOpt {
	return func(o *loaderOptions) {
		o.validator = v
	}
}

// WithKinds makes [Loader.Load] reject objects of any other kind.
func WithKinds(kinds ...string) LoaderOpt {
	return func(o *loaderOptions) {
		o.kinds = kinds
	}
}

// WithColor enables ANSI colors in annotated errors.
func WithColor(colored bool) LoaderOpt {
	return func(o *loaderOptions) {
		o.colored = colored
	}
}

// Loader is a generic configuration loader that handles validation,
// YAML parsing, and error formatting for any config type T.
type Loader[T v1beta1.Object] struct {
	validator Validator
	newFunc   func() T
	yamlError *yaml.ErrorWrapper
	kinds     []string
	data      []byte
}

// NewLoaderFromBytes creates a [Loader] from byte data.
// The newFunc parameter is the constructor for type T (e.g., configs.New).
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
		kinds:     options.kinds,
		yamlError: yaml.NewErrorWrapper(
			yaml.WithSource(data),
			yaml.WithColor(options.colored),
		),
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
	if err != nil {
		return l.yamlError.Wrap(err)
	}

	if l.validator != nil {
		err = l.validator.Validate(anyConfig)
		if err != nil {
			return l.yamlError.Wrap(err)
		}
	}

	return nil
}

// Load parses and returns the configuration. It does not check the schema,
// use [Loader.Validate] for that.
//
//nolint:ireturn // Generic type parameter return is intentional.
func (l *Loader[T]) Load() (T, error) {
	var zero T

	cfg := l.newFunc()

	dec := yaml.NewDecoder(bytes.NewReader(l.data))

	err := dec.Decode(cfg)
	if err != nil {
		return zero, l.yamlError.Wrap(err)
	}

	if len(l.kinds) > 0 {
		err = v1beta1.CheckTypeMeta(cfg, l.kinds)
		if err != nil {
			return zero, err //nolint:wrapcheck // Already descriptive.
		}
	}

	cfg.EnsureDefaults()

	return cfg, nil
}

// LoadConfiguration reads, validates and loads the [configs.Config] at path.
// Schema errors are annotated with the source; strategy errors are
// aggregated by [configs.Config.Validate].
func LoadConfiguration(path string, opts ...LoaderOpt) (*configs.Config, error) {
	opts = append([]LoaderOpt{WithKinds(configs.ValidKinds...)}, opts...)

	cl, err := NewLoaderFromFile(path, configs.New, configs.DefaultValidator, opts...)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	err = cl.Validate()
	if err != nil {
		return nil, fmt.Errorf("validate config %s: %w", path, err)
	}

	cfg, err := cl.Load()
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}

	err = cfg.Validate()
	if err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

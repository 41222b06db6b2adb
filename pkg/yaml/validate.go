package yaml

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/santhosh-tekuri/jsonschema/v6"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Validator checks decoded documents against a JSON schema, using
// [github.com/santhosh-tekuri/jsonschema/v6].
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles the JSON schema in schemaData, registered under url.
func NewValidator(url string, schemaData []byte) (*Validator, error) {
	var schema any

	err := json.Unmarshal(schemaData, &schema)
	if err != nil {
		return nil, fmt.Errorf("unmarshal schema: %w", err)
	}

	compiler := jsonschema.NewCompiler()

	err = compiler.AddResource(url, schema)
	if err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}

	jss, err := compiler.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}

	return &Validator{schema: jss}, nil
}

func MustNewValidator(url string, schemaData []byte) *Validator {
	v, err := NewValidator(url, schemaData)
	if err != nil {
		panic(err)
	}

	return v
}

// Validate validates data, which must be the generic (map/slice) decoding of
// a document. Failures are returned as [*Error] wrapping a [*SchemaError] for
// the most specific failure, with its [*yaml.Path] ready to annotate the
// source.
func (v *Validator) Validate(data any) error {
	err := v.schema.Validate(data)
	if err == nil {
		return nil
	}

	var validationErr *jsonschema.ValidationError
	if !errors.As(err, &validationErr) {
		return fmt.Errorf("schema validation: %w", err)
	}

	leaves := leafErrors(validationErr, nil)
	deepest := leaves[0]

	for _, leaf := range leaves[1:] {
		if len(leaf.InstanceLocation) > len(deepest.InstanceLocation) {
			deepest = leaf
		}
	}

	return &Error{
		Err: &SchemaError{
			Err:     validationErr,
			Message: deepest.ErrorKind.LocalizedString(printer),
			Keyword: strings.Join(deepest.ErrorKind.KeywordPath(), "/"),
			Others:  len(leaves) - 1,
		},
		Path: pathFromLocation(deepest.InstanceLocation),
	}
}

// SchemaError describes the most specific schema violation of a document.
type SchemaError struct {
	// Err holds every violation.
	Err error
	// Message describes the violation, e.g. "missing property 'name'".
	Message string
	// Keyword is the schema keyword that failed, e.g. "required".
	Keyword string
	// Others counts further violations elsewhere in the document.
	Others int
}

func (e *SchemaError) Error() string {
	switch e.Others {
	case 0:
		return e.Message
	case 1:
		return e.Message + " (and 1 more violation)"
	}

	return fmt.Sprintf("%s (and %d more violations)", e.Message, e.Others)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// leafErrors appends the errors of err that have no causes to out.
func leafErrors(err *jsonschema.ValidationError, out []*jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return append(out, err)
	}

	for _, cause := range err.Causes {
		out = leafErrors(cause, out)
	}

	return out
}

func pathFromLocation(location []string) *yaml.Path {
	current := NewPathBuilder().Root()

	for _, part := range location {
		index, err := strconv.ParseUint(part, 10, 64)
		if err == nil {
			current = current.Index(uint(index))
		} else {
			current = current.Child(part)
		}
	}

	return current.Build()
}

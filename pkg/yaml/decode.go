package yaml

import (
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

// Decoder decodes YAML (or JSON) documents, converting goccy errors into
// [*Error]s that keep the offending token.
type Decoder struct {
	d *yaml.Decoder
}

func NewDecoder(r io.Reader, opts ...yaml.DecodeOption) *Decoder {
	opts = append([]yaml.DecodeOption{yaml.AllowDuplicateMapKey()}, opts...)

	return &Decoder{
		d: yaml.NewDecoder(r, opts...),
	}
}

// NewStrictDecoder returns a [Decoder] that rejects fields missing from the
// target struct.
func NewStrictDecoder(r io.Reader) *Decoder {
	return NewDecoder(r, yaml.DisallowUnknownField())
}

func (d *Decoder) Decode(v any) error {
	err := d.d.Decode(v)
	if err == nil {
		return nil
	}

	var yamlErr yaml.Error
	if errors.As(err, &yamlErr) {
		return &Error{
			Err:   errors.New(yamlErr.GetMessage()),
			Token: yamlErr.GetToken(),
		}
	}

	//nolint:wrapcheck // Return the original error if it's not a [yaml.Error].
	return err
}

package yaml

import (
	"errors"
	"io"

	"github.com/goccy/go-yaml"
)

// Encoder writes configuration documents. Sequences are indented under
// their key and multi-line strings use the literal block style, so that
// rendered prompt text stays readable.
type Encoder struct {
	e *yaml.Encoder
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		e: yaml.NewEncoder(w,
			yaml.Indent(2),
			yaml.IndentSequence(true),
			yaml.UseLiteralStyleIfMultiline(true),
		),
	}
}

func (e *Encoder) Encode(v any) error {
	return e.e.Encode(v) //nolint:wrapcheck // Return the original error.
}

func (e *Encoder) Close() error {
	return e.e.Close() //nolint:wrapcheck // Return the original error.
}

// Decoder reads configuration documents. Duplicate map keys are rejected.
// Syntax errors are returned as [*Error] carrying the offending token.
type Decoder struct {
	d *yaml.Decoder
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{
		d: yaml.NewDecoder(r),
	}
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

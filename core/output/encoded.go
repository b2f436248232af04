package output

import (
	"encoding/json"
	"io"

	"gopkg.in/yaml.v3"
)

// JSONFormatter writes JSON documents
type JSONFormatter struct {
	Indent string
}

// Format returns FormatJSON
func (f *JSONFormatter) Format() Format { return FormatJSON }

func (f *JSONFormatter) encode(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", f.Indent)
	return enc.Encode(v)
}

func (f *JSONFormatter) RenderCalculation(w io.Writer, doc Calculation) error {
	return f.encode(w, doc)
}

func (f *JSONFormatter) RenderRates(w io.Writer, rows []RateRow) error {
	return f.encode(w, rows)
}

func (f *JSONFormatter) RenderValidation(w io.Writer, doc Validation) error {
	return f.encode(w, doc)
}

func (f *JSONFormatter) RenderLocation(w io.Writer, doc Location) error {
	return f.encode(w, doc)
}

// YAMLFormatter writes YAML documents
type YAMLFormatter struct{}

// Format returns FormatYAML
func (f *YAMLFormatter) Format() Format { return FormatYAML }

func (f *YAMLFormatter) encode(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

func (f *YAMLFormatter) RenderCalculation(w io.Writer, doc Calculation) error {
	return f.encode(w, doc)
}

func (f *YAMLFormatter) RenderRates(w io.Writer, rows []RateRow) error {
	return f.encode(w, rows)
}

func (f *YAMLFormatter) RenderValidation(w io.Writer, doc Validation) error {
	return f.encode(w, doc)
}

func (f *YAMLFormatter) RenderLocation(w io.Writer, doc Location) error {
	return f.encode(w, doc)
}

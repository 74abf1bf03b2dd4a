// Package renderer defines the narrow contract the field-mapping generator
// drives against a PDF form backend, plus its pdfcpu implementation.
package renderer

// Alignment selects horizontal quadding for a text field.
type Alignment int

const (
	AlignLeft Alignment = iota
	AlignCenter
	AlignRight
)

// FieldOptions controls how a value is written into a form field.
type FieldOptions struct {
	FontSize float64
	Align    Alignment
}

// Backend loads fillable templates. Each call returns an independent document
// instance; no state is shared between concurrent generations.
type Backend interface {
	LoadTemplate(path string) (Document, error)
}

// Document is a loaded template being filled. SetFieldText reports
// ErrFieldNotFound per call when the named field is absent from the template;
// callers treat that as a non-fatal condition and continue.
type Document interface {
	RegisterFont(path string) error
	SetFieldText(name, value string, opts FieldOptions) error
	Flatten() error
	Bytes() ([]byte, error)
}

package renderer

import (
	"errors"
	"fmt"
)

// ErrTemplateLoad indicates the backing template could not be loaded or
// parsed. It is the only fatal error a generation call can surface.
var ErrTemplateLoad = errors.New("template load failed")

// ErrFieldNotFound indicates a mapped field name has no counterpart on the
// template. Expected whenever templates drift from the row/header schema;
// never aborts a generation.
var ErrFieldNotFound = errors.New("form field not found")

// TemplateError carries the template path alongside the underlying cause.
type TemplateError struct {
	Path string
	Err  error
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("template %q: %v", e.Path, e.Err)
}

func (e *TemplateError) Unwrap() error {
	return e.Err
}

// Is makes any TemplateError match ErrTemplateLoad.
func (e *TemplateError) Is(target error) bool {
	return target == ErrTemplateLoad
}

// IsFieldNotFound reports whether err is the per-field not-found condition.
func IsFieldNotFound(err error) bool {
	return errors.Is(err, ErrFieldNotFound)
}

// Package docgen builds field mappings from ledger data and drives the
// rendering backend to produce flattened, download-ready documents.
package docgen

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"go.uber.org/zap"

	"github.com/syawaryo/kawasetu-copy-sub000/internal/handle"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/jptext"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/ledger"
	"github.com/syawaryo/kawasetu-copy-sub000/internal/renderer"
)

// ErrUnknownTemplate is returned when the requested template ID is not in
// the registry.
var ErrUnknownTemplate = errors.New("unknown template")

// Request is one generation call: the template to fill, the preview slot the
// result belongs to, header values and the flattened row sequence. Header
// keys use the template's bare logical field names.
type Request struct {
	TemplateID string
	Slot       string
	Header     map[string]string
	Rows       []ledger.LedgerRow
}

// Result is the outcome of a successful generation. Unmapped lists field
// names the template did not have, so callers can assert on completeness
// instead of reading logs. A superseded request yields a nil Handle.
type Result struct {
	Handle     *handle.Handle
	Unmapped   []string
	FieldCount int
	Superseded bool
}

// FieldValue is one resolved mapping entry in template order.
type FieldValue struct {
	Name  string
	Value string
}

// Generator orchestrates template load, font registration, field mapping,
// flattening and handle publication.
type Generator struct {
	backend     renderer.Backend
	store       *handle.Store
	registry    Registry
	templateDir string
	fontPath    string
	logger      *zap.Logger
}

// NewGenerator creates a generator over the given backend and handle store.
func NewGenerator(backend renderer.Backend, store *handle.Store, templateDir, fontPath string, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		backend:     backend,
		store:       store,
		registry:    DefaultRegistry(),
		templateDir: templateDir,
		fontPath:    fontPath,
		logger:      logger,
	}
}

// Generate fills the named template and publishes the flattened result under
// the request's slot. The only fatal condition is a template (or font) that
// cannot be loaded; missing template fields are skipped and reported in the
// result.
func (g *Generator) Generate(ctx context.Context, req Request) (*Result, error) {
	schema, ok := g.registry[req.TemplateID]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownTemplate, req.TemplateID)
	}

	generation := g.store.Begin(req.Slot)

	doc, err := g.backend.LoadTemplate(filepath.Join(g.templateDir, schema.TemplateFile))
	if err != nil {
		return nil, err
	}
	if err := doc.RegisterFont(g.fontPath); err != nil {
		return nil, &renderer.TemplateError{Path: g.fontPath, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mapping := BuildMapping(schema, req.Header, req.Rows)
	opts := renderer.FieldOptions{FontSize: schema.FontSize, Align: renderer.AlignCenter}

	var unmapped []string
	for _, fv := range mapping {
		err := doc.SetFieldText(fv.Name, fv.Value, opts)
		switch {
		case err == nil:
		case renderer.IsFieldNotFound(err):
			g.logger.Debug("field not found, skipping",
				zap.String("template", req.TemplateID),
				zap.String("field", fv.Name))
			unmapped = append(unmapped, fv.Name)
		default:
			g.logger.Warn("field write failed, skipping",
				zap.String("template", req.TemplateID),
				zap.String("field", fv.Name),
				zap.Error(err))
			unmapped = append(unmapped, fv.Name)
		}
	}

	if err := doc.Flatten(); err != nil {
		return nil, fmt.Errorf("flatten form: %w", err)
	}
	data, err := doc.Bytes()
	if err != nil {
		return nil, fmt.Errorf("serialize document: %w", err)
	}

	h := g.store.Publish(req.Slot, generation, data, "application/pdf")
	if h == nil {
		return &Result{Superseded: true, Unmapped: unmapped, FieldCount: len(mapping)}, nil
	}

	g.logger.Info("document generated",
		zap.String("template", req.TemplateID),
		zap.String("slot", req.Slot),
		zap.Int("fields", len(mapping)),
		zap.Int("unmapped", len(unmapped)),
		zap.Int("bytes", len(data)))

	return &Result{Handle: h, Unmapped: unmapped, FieldCount: len(mapping)}, nil
}

// BuildMapping resolves the full field mapping for a schema: header entries
// under their bare names, then row cells under the row-indexed convention.
// All values are half-width normalized.
func BuildMapping(schema Schema, header map[string]string, rows []ledger.LedgerRow) []FieldValue {
	mapping := make([]FieldValue, 0, len(header)+len(rows)*len(schema.Columns))

	for _, name := range sortedKeys(header) {
		mapping = append(mapping, FieldValue{Name: name, Value: jptext.ToHalfWidth(header[name])})
	}

	for i, row := range rows {
		if schema.MaxRows > 0 && i >= schema.MaxRows {
			break
		}
		rowNum := i + 1
		for _, col := range schema.Columns {
			mapping = append(mapping, FieldValue{
				Name:  schema.RowFieldName(rowNum, col),
				Value: rowValue(row, col),
			})
		}
	}

	return mapping
}

// rowValue renders one row cell. The code/item cell joins work-type code and
// name with a single space, falling back to whichever side is present. The
// balance cell stays empty unless both amounts parse, so an incomplete row
// never implies a false zero balance.
func rowValue(row ledger.LedgerRow, column string) string {
	switch column {
	case ColCodeItem:
		return joinCodeItem(row.WorkTypeCode, row.WorkType)
	case ColBudgetAmount:
		return jptext.ToHalfWidth(row.BudgetAmount)
	case ColOrderAmount:
		return jptext.ToHalfWidth(row.OrderAmount)
	case ColBalance:
		if balance, ok := ledger.RowBalance(row); ok {
			return jptext.FormatAmount(balance)
		}
		return ""
	default:
		return ""
	}
}

// sortedKeys gives header entries a deterministic mapping order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func joinCodeItem(code, item string) string {
	code = jptext.ToHalfWidth(code)
	switch {
	case code != "" && item != "":
		return code + " " + item
	case code != "":
		return code
	default:
		return item
	}
}

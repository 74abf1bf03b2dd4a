package renderer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf16"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// PDFCPUBackend implements Backend on top of the pdfcpu library.
type PDFCPUBackend struct{}

// NewPDFCPUBackend creates a pdfcpu-backed rendering backend.
func NewPDFCPUBackend() *PDFCPUBackend {
	return &PDFCPUBackend{}
}

// LoadTemplate reads and validates a template file into a fresh document
// context. Any failure here is a TemplateError.
func (b *PDFCPUBackend) LoadTemplate(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &TemplateError{Path: path, Err: err}
	}

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	if err != nil {
		return nil, &TemplateError{Path: path, Err: fmt.Errorf("read context: %w", err)}
	}
	if err := ctx.EnsurePageCount(); err != nil {
		return nil, &TemplateError{Path: path, Err: fmt.Errorf("page count: %w", err)}
	}

	return &pdfcpuDocument{ctx: ctx}, nil
}

// pdfcpuDocument is one loaded template instance. It is not safe for
// concurrent use; each generation call owns its own instance.
type pdfcpuDocument struct {
	ctx      *model.Context
	fontName string
	fontRef  *types.IndirectRef
	fields   map[string]types.Dict
}

// RegisterFont embeds a font program into the document and makes it
// available to field appearance strings under /DR /Font.
func (d *pdfcpuDocument) RegisterFont(path string) error {
	program, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read font %q: %w", path, err)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	name = strings.ReplaceAll(name, " ", "")

	fontRef, err := d.embedFontProgram(name, program)
	if err != nil {
		return fmt.Errorf("embed font %q: %w", name, err)
	}
	if err := d.installFontResource(name, fontRef); err != nil {
		return fmt.Errorf("install font resource %q: %w", name, err)
	}

	d.fontName = name
	d.fontRef = fontRef
	return nil
}

// embedFontProgram writes the font file as an embedded CIDFontType0C stream
// with a composite font dictionary referencing it.
func (d *pdfcpuDocument) embedFontProgram(name string, program []byte) (*types.IndirectRef, error) {
	sd := types.StreamDict{
		Dict: types.Dict(map[string]types.Object{
			"Subtype": types.Name("OpenType"),
			"Length1": types.Integer(len(program)),
		}),
		Content: program,
	}
	if err := sd.Encode(); err != nil {
		return nil, fmt.Errorf("encode font stream: %w", err)
	}
	fileRef, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return nil, err
	}

	descriptor := types.Dict(map[string]types.Object{
		"Type":      types.Name("FontDescriptor"),
		"FontName":  types.Name(name),
		"Flags":     types.Integer(4),
		"FontFile3": *fileRef,
	})
	descRef, err := d.ctx.IndRefForNewObject(descriptor)
	if err != nil {
		return nil, err
	}

	cidFont := types.Dict(map[string]types.Object{
		"Type":     types.Name("Font"),
		"Subtype":  types.Name("CIDFontType0"),
		"BaseFont": types.Name(name),
		"CIDSystemInfo": types.Dict(map[string]types.Object{
			"Registry":   types.StringLiteral("Adobe"),
			"Ordering":   types.StringLiteral("Identity"),
			"Supplement": types.Integer(0),
		}),
		"FontDescriptor": *descRef,
		"DW":             types.Integer(1000),
	})
	cidRef, err := d.ctx.IndRefForNewObject(cidFont)
	if err != nil {
		return nil, err
	}

	font := types.Dict(map[string]types.Object{
		"Type":            types.Name("Font"),
		"Subtype":         types.Name("Type0"),
		"BaseFont":        types.Name(name),
		"Encoding":        types.Name("Identity-H"),
		"DescendantFonts": types.Array{*cidRef},
	})
	return d.ctx.IndRefForNewObject(font)
}

// installFontResource registers the font under the AcroForm default
// resources and requests viewer-side appearance regeneration.
func (d *pdfcpuDocument) installFontResource(name string, fontRef *types.IndirectRef) error {
	acro, err := d.acroFormDict()
	if err != nil {
		return err
	}
	if acro == nil {
		// Template without an AcroForm has nothing to fill; SetFieldText
		// will report every field as not found.
		return nil
	}

	var dr types.Dict
	if drObj, found := acro.Find("DR"); found {
		if dict, err := d.ctx.DereferenceDict(drObj); err == nil && dict != nil {
			dr = dict
		}
	}
	if dr == nil {
		dr = types.Dict(map[string]types.Object{})
		acro.Update("DR", dr)
	}

	var fonts types.Dict
	if fObj, found := dr.Find("Font"); found {
		if dict, err := d.ctx.DereferenceDict(fObj); err == nil && dict != nil {
			fonts = dict
		}
	}
	if fonts == nil {
		fonts = types.Dict(map[string]types.Object{})
		dr.Update("Font", fonts)
	}

	fonts.Update(name, *fontRef)
	acro.Update("NeedAppearances", types.Boolean(true))
	return nil
}

// SetFieldText writes a value into the named text field, setting font size
// and quadding and pointing the appearance string at the registered font.
// Returns ErrFieldNotFound when the template has no such field.
func (d *pdfcpuDocument) SetFieldText(name, value string, opts FieldOptions) error {
	if d.fields == nil {
		if err := d.indexFields(); err != nil {
			return fmt.Errorf("index form fields: %w", err)
		}
	}

	fieldDict, ok := d.fields[name]
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrFieldNotFound)
	}

	fieldDict.Update("V", utf16HexLiteral(value))
	fieldDict.Update("Q", types.Integer(int(opts.Align)))

	font := d.fontName
	if font == "" {
		font = "Helv"
	}
	da := fmt.Sprintf("/%s %s Tf 0 g", font, trimFloat(opts.FontSize))
	fieldDict.Update("DA", types.StringLiteral(da))

	if err := d.refreshAppearance(fieldDict, value, opts); err != nil {
		return fmt.Errorf("appearance for %q: %w", name, err)
	}
	return nil
}

// refreshAppearance replaces the widget's appearance stream with one that
// paints the value in the registered font, so the text survives flattening.
// Without a registered font the stale stream is dropped instead and the
// viewer regenerates it from the appearance string.
func (d *pdfcpuDocument) refreshAppearance(fieldDict types.Dict, value string, opts FieldOptions) error {
	fieldDict.Delete("AP")
	if d.fontRef == nil {
		return nil
	}
	rect := d.widgetRect(fieldDict)
	if rect == nil {
		return nil
	}

	w, h := rect.Width(), rect.Height()
	size := opts.FontSize
	if size <= 0 {
		size = 11
	}

	x := 2.0
	switch opts.Align {
	case AlignCenter:
		x = (w - textExtent(value, size)) / 2
	case AlignRight:
		x = w - textExtent(value, size) - 2
	}
	if x < 2 {
		x = 2
	}
	// Baseline sits a little above the vertical midpoint of the box.
	y := (h-size)/2 + size*0.18

	var content bytes.Buffer
	fmt.Fprintf(&content, "/Tx BMC q BT /%s %s Tf 0 g %s %s Td %s Tj ET Q EMC",
		d.fontName, trimFloat(size), trimFloat(x), trimFloat(y), utf16HexLiteral(value).PDFString())

	sd := types.StreamDict{
		Dict: types.Dict(map[string]types.Object{
			"Type":    types.Name("XObject"),
			"Subtype": types.Name("Form"),
			"BBox":    types.NewNumberArray(0, 0, w, h),
			"Resources": types.Dict(map[string]types.Object{
				"Font": types.Dict(map[string]types.Object{
					d.fontName: *d.fontRef,
				}),
			}),
		}),
		Content: content.Bytes(),
	}
	if err := sd.Encode(); err != nil {
		return fmt.Errorf("encode appearance stream: %w", err)
	}
	apRef, err := d.ctx.IndRefForNewObject(sd)
	if err != nil {
		return err
	}

	fieldDict.Update("AP", types.Dict(map[string]types.Object{"N": *apRef}))
	return nil
}

// widgetRect resolves the widget's rectangle, nil when absent or malformed.
func (d *pdfcpuDocument) widgetRect(fieldDict types.Dict) *types.Rectangle {
	rectObj, found := fieldDict.Find("Rect")
	if !found {
		return nil
	}
	arr, err := d.ctx.DereferenceArray(rectObj)
	if err != nil || len(arr) != 4 {
		return nil
	}
	return types.RectForArray(arr)
}

// textExtent approximates the advance width of value: CJK glyphs occupy a
// full em, everything else roughly half.
func textExtent(value string, size float64) float64 {
	var ems float64
	for _, r := range value {
		if r >= 0x2E80 {
			ems++
		} else {
			ems += 0.5
		}
	}
	return ems * size
}

// indexFields walks the AcroForm field tree once and maps fully-qualified
// terminal field names to their dictionaries.
func (d *pdfcpuDocument) indexFields() error {
	d.fields = map[string]types.Dict{}

	acro, err := d.acroFormDict()
	if err != nil {
		return err
	}
	if acro == nil {
		return nil
	}

	fieldsObj, found := acro.Find("Fields")
	if !found {
		return nil
	}
	fieldsArray, err := d.ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return fmt.Errorf("dereference Fields array: %w", err)
	}

	for _, ref := range fieldsArray {
		d.indexFieldTree(ref, "")
	}
	return nil
}

// indexFieldTree records a field and recurses into its kids. Malformed
// entries are skipped; partial templates are the common case, not an error.
func (d *pdfcpuDocument) indexFieldTree(obj types.Object, prefix string) {
	fieldDict, err := d.ctx.DereferenceDict(obj)
	if err != nil || fieldDict == nil {
		return
	}

	name := prefix
	if nameObj, found := fieldDict.Find("T"); found {
		if partial, err := d.ctx.DereferenceStringOrHexLiteral(nameObj, model.V10, nil); err == nil {
			if name == "" {
				name = partial
			} else {
				name = name + "." + partial
			}
		}
	}

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := d.ctx.DereferenceArray(kidsObj); err == nil && len(kids) > 0 {
			for _, kid := range kids {
				d.indexFieldTree(kid, name)
			}
			return
		}
	}

	if name != "" {
		d.fields[name] = fieldDict
	}
}

// Flatten freezes the filled form. With appearance streams synthesized at
// fill time the field entries are stripped and the interactive AcroForm is
// removed from the catalog, leaving each widget as a static, printable
// annotation that carries its rendered text. Without a registered font no
// appearances exist, so the AcroForm stays for viewer-side regeneration and
// the fields are locked read-only instead.
func (d *pdfcpuDocument) Flatten() error {
	if d.fields == nil {
		if err := d.indexFields(); err != nil {
			return fmt.Errorf("index form fields: %w", err)
		}
	}

	if d.fontRef == nil {
		for _, fieldDict := range d.fields {
			fieldDict.Update("Ff", types.Integer(1)) // read-only
		}
		if acro, err := d.acroFormDict(); err == nil && acro != nil {
			acro.Update("NeedAppearances", types.Boolean(true))
		}
		return nil
	}

	for _, fieldDict := range d.fields {
		for _, key := range []string{"FT", "T", "V", "DV", "DA", "Q", "Ff", "AA", "TU"} {
			fieldDict.Delete(key)
		}
		fieldDict.Update("F", types.Integer(4)) // print
	}

	rootDict, err := d.ctx.Catalog()
	if err != nil {
		return fmt.Errorf("get catalog: %w", err)
	}
	rootDict.Delete("AcroForm")
	return nil
}

// Bytes serializes the filled document.
func (d *pdfcpuDocument) Bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := api.WriteContext(d.ctx, &buf); err != nil {
		return nil, fmt.Errorf("write context: %w", err)
	}
	return buf.Bytes(), nil
}

// acroFormDict resolves the catalog's AcroForm dictionary, nil when absent.
func (d *pdfcpuDocument) acroFormDict() (types.Dict, error) {
	rootDict, err := d.ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("get catalog: %w", err)
	}
	acroObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acro, err := d.ctx.DereferenceDict(acroObj)
	if err != nil {
		return nil, fmt.Errorf("dereference AcroForm: %w", err)
	}
	return acro, nil
}

// utf16HexLiteral encodes a value as a BOM-prefixed UTF-16BE hex literal so
// Japanese text survives in the field value entry.
func utf16HexLiteral(s string) types.HexLiteral {
	encoded := utf16.Encode([]rune(s))
	b := make([]byte, 0, 2+len(encoded)*2)
	b = append(b, 0xFE, 0xFF)
	for _, u := range encoded {
		b = append(b, byte(u>>8), byte(u))
	}
	return types.NewHexLiteral(b)
}

// trimFloat renders a font size without a trailing ".0".
func trimFloat(f float64) string {
	s := fmt.Sprintf("%.1f", f)
	return strings.TrimSuffix(s, ".0")
}

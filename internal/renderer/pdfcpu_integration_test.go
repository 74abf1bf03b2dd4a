package renderer

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFormTemplate builds a minimal single-page PDF with one text-field
// widget named fieldName and writes it to dir.
func writeFormTemplate(t *testing.T, dir, fieldName string) string {
	t.Helper()

	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R /AcroForm << /Fields [4 0 R] /DA (/Helv 0 Tf 0 g) >> >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 595 842] /Annots [4 0 R] >>",
		fmt.Sprintf("<< /Type /Annot /Subtype /Widget /FT /Tx /T (%s) /Rect [100 700 300 720] /DA (/Helv 9 Tf 0 g) >>", fieldName),
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n")

	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)

	path := filepath.Join(dir, "form.pdf")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func writeFontFile(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "TestGothic.otf")
	require.NoError(t, os.WriteFile(path, []byte("OTTO fake font program"), 0o644))
	return path
}

func reparse(t *testing.T, data []byte) *model.Context {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	ctx, err := api.ReadContext(bytes.NewReader(data), conf)
	require.NoError(t, err)
	require.NoError(t, ctx.EnsurePageCount())
	return ctx
}

func onlyWidget(t *testing.T, ctx *model.Context) types.Dict {
	t.Helper()
	pageDict, _, _, err := ctx.PageDict(1, false)
	require.NoError(t, err)
	annotsObj, found := pageDict.Find("Annots")
	require.True(t, found)
	annots, err := ctx.DereferenceArray(annotsObj)
	require.NoError(t, err)
	require.Len(t, annots, 1)
	widget, err := ctx.DereferenceDict(annots[0])
	require.NoError(t, err)
	return widget
}

func TestPDFCPUDocument_FillFlattenCarriesValue(t *testing.T) {
	dir := t.TempDir()
	templatePath := writeFormTemplate(t, dir, "row1_codeItem")

	backend := NewPDFCPUBackend()
	doc, err := backend.LoadTemplate(templatePath)
	require.NoError(t, err)
	require.NoError(t, doc.RegisterFont(writeFontFile(t, dir)))

	value := "E01 電気設備"
	require.NoError(t, doc.SetFieldText("row1_codeItem", value, FieldOptions{FontSize: 9, Align: AlignCenter}))

	err = doc.SetFieldText("row2_codeItem", "E02", FieldOptions{FontSize: 9, Align: AlignCenter})
	assert.True(t, IsFieldNotFound(err))

	require.NoError(t, doc.Flatten())
	data, err := doc.Bytes()
	require.NoError(t, err)

	ctx := reparse(t, data)

	rootDict, err := ctx.Catalog()
	require.NoError(t, err)
	_, hasAcroForm := rootDict.Find("AcroForm")
	assert.False(t, hasAcroForm, "flattened document must not stay interactive")

	widget := onlyWidget(t, ctx)
	_, hasName := widget.Find("T")
	assert.False(t, hasName)
	_, hasValue := widget.Find("V")
	assert.False(t, hasValue)

	apObj, found := widget.Find("AP")
	require.True(t, found, "widget must carry a rendered appearance")
	ap, err := ctx.DereferenceDict(apObj)
	require.NoError(t, err)
	nObj, found := ap.Find("N")
	require.True(t, found)
	sd, _, err := ctx.DereferenceStreamDict(nObj)
	require.NoError(t, err)
	require.NoError(t, sd.Decode())

	content := string(sd.Content)
	assert.Contains(t, content, "/TestGothic 9 Tf")
	assert.Contains(t, content, utf16HexLiteral(value).PDFString()+" Tj")

	resObj, found := sd.Find("Resources")
	require.True(t, found)
	res, err := ctx.DereferenceDict(resObj)
	require.NoError(t, err)
	fontsObj, found := res.Find("Font")
	require.True(t, found)
	fonts, err := ctx.DereferenceDict(fontsObj)
	require.NoError(t, err)
	_, found = fonts.Find("TestGothic")
	assert.True(t, found, "appearance must reference the embedded font")
}

func TestPDFCPUDocument_FlattenWithoutFontKeepsForm(t *testing.T) {
	dir := t.TempDir()
	templatePath := writeFormTemplate(t, dir, "projectName")

	backend := NewPDFCPUBackend()
	doc, err := backend.LoadTemplate(templatePath)
	require.NoError(t, err)

	require.NoError(t, doc.SetFieldText("projectName", "新築工事", FieldOptions{FontSize: 11, Align: AlignLeft}))
	require.NoError(t, doc.Flatten())
	data, err := doc.Bytes()
	require.NoError(t, err)

	ctx := reparse(t, data)

	// No appearances could be synthesized, so the form survives for
	// viewer-side regeneration with the field locked.
	rootDict, err := ctx.Catalog()
	require.NoError(t, err)
	_, hasAcroForm := rootDict.Find("AcroForm")
	assert.True(t, hasAcroForm)

	widget := onlyWidget(t, ctx)
	_, hasValue := widget.Find("V")
	assert.True(t, hasValue)
	ff, found := widget.Find("Ff")
	require.True(t, found)
	assert.Equal(t, types.Integer(1), ff)
}

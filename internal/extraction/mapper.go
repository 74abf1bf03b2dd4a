// Package extraction reconstructs structured records from the flat key-value
// result of the external document-understanding service.
package extraction

import "sort"

// Field is one entry of the service result: text content plus an optional
// spatial region given as parallel x/y coordinate slices in page units.
type Field struct {
	Content string    `json:"content"`
	X       []float64 `json:"x,omitempty"`
	Y       []float64 `json:"y,omitempty"`
}

// Region is a polygon retained for overlay highlighting. The mapper passes
// geometry through untouched.
type Region struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// ExtractedRow is one reconstructed repeating row. Index is the service's
// original row index; gaps between indices are preserved, not compacted.
type ExtractedRow struct {
	Name    string            `json:"name"`
	Index   int               `json:"index"`
	Columns map[string]string `json:"columns"`
}

// Document is the structured form of a service result.
type Document struct {
	Header  map[string]string `json:"header"`
	Rows    []ExtractedRow    `json:"rows"`
	Regions map[string]Region `json:"regions"`
}

// RegistrationNumberField is the scalar field carrying the qualified-invoice
// issuer registration number, the one field with a dedicated format rule.
const RegistrationNumberField = "invoiceRegNo"

// Map partitions the flat service result into header scalars and
// reconstructed rows. Spatial regions with at least 4 points are retained
// under their original keys; fewer points means no region. The registration
// number scalar is normalized and dropped entirely when malformed.
func Map(fields map[string]Field) *Document {
	doc := &Document{
		Header:  map[string]string{},
		Regions: map[string]Region{},
	}

	grouped := map[string]map[int]map[string]string{}

	for raw, field := range fields {
		if len(field.X) >= 4 && len(field.Y) >= 4 {
			doc.Regions[raw] = Region{X: field.X, Y: field.Y}
		}

		switch key := ParseKey(raw).(type) {
		case ScalarKey:
			if key.Name == RegistrationNumberField {
				if normalized, ok := NormalizeRegistrationNumber(field.Content); ok {
					doc.Header[key.Name] = normalized
				}
				continue
			}
			doc.Header[key.Name] = field.Content
		case IndexedKey:
			rows := grouped[key.Name]
			if rows == nil {
				rows = map[int]map[string]string{}
				grouped[key.Name] = rows
			}
			columns := rows[key.Index]
			if columns == nil {
				columns = map[string]string{}
				rows[key.Index] = columns
			}
			columns[key.Column] = field.Content
		}
	}

	for name, rows := range grouped {
		for index, columns := range rows {
			doc.Rows = append(doc.Rows, ExtractedRow{Name: name, Index: index, Columns: columns})
		}
	}
	sort.Slice(doc.Rows, func(i, j int) bool {
		if doc.Rows[i].Name != doc.Rows[j].Name {
			return doc.Rows[i].Name < doc.Rows[j].Name
		}
		return doc.Rows[i].Index < doc.Rows[j].Index
	})

	return doc
}

package extraction

import (
	"regexp"
	"strconv"
)

// The document-understanding service flattens repeating rows into
// bracket-indexed keys: name[index].column. This grammar is the service's
// wire contract; changing it there is a breaking change here.
var indexedKeyPattern = regexp.MustCompile(`^(\w+)\[(\d+)\]\.(\w+)$`)

// Key is either a ScalarKey or an IndexedKey.
type Key interface {
	isKey()
}

// ScalarKey is a plain field name with no row structure.
type ScalarKey struct {
	Name string
}

// IndexedKey addresses one column of one repeating row.
type IndexedKey struct {
	Name   string
	Index  int
	Column string
}

func (ScalarKey) isKey()  {}
func (IndexedKey) isKey() {}

// ParseKey classifies a result key against the bracket-indexed grammar.
// Anything that does not match the grammar exactly is a scalar.
func ParseKey(raw string) Key {
	m := indexedKeyPattern.FindStringSubmatch(raw)
	if m == nil {
		return ScalarKey{Name: raw}
	}
	index, err := strconv.Atoi(m[2])
	if err != nil {
		return ScalarKey{Name: raw}
	}
	return IndexedKey{Name: m[1], Index: index, Column: m[3]}
}

package entity

import (
	"fmt"
	"sort"
	"strings"
)

// Record is one raw row from a hospital extract: a mapping from raw column name
// to the unparsed cell content. A missing column and an empty cell are
// equivalent for all conversion purposes. Records are treated as immutable by
// the transformer.
type Record struct {
	// Index is the zero-based data row number in the raw extract, used to
	// identify excluded rows in the run result.
	Index int

	Fields map[string]string
}

// Value returns the raw cell content for col. A missing column yields "".
func (r Record) Value(col string) string {
	return r.Fields[col]
}

// IsEmpty reports whether the cell for col is missing or blank.
func (r Record) IsEmpty(col string) bool {
	return strings.TrimSpace(r.Fields[col]) == ""
}

// Transformed is one standardized record: typed values keyed by the string form
// of the three-level output column path, e.g. "patient.core.age".
// Value types are int, float64, bool or string (dates are ISO formatted
// strings); nil marks a missing value, serialized as an empty cell.
type Transformed struct {
	Data map[string]any
}

func NewTransformed() *Transformed {
	return &Transformed{
		Data: make(map[string]any),
	}
}

func (t *Transformed) Set(path ColPath, value any) {
	t.Data[path.String()] = value
}

func (t *Transformed) Get(path ColPath) any {
	return t.Data[path.String()]
}

func (t *Transformed) String() string {
	keys := make([]string, 0, len(t.Data))
	for key := range t.Data {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var strOut = "{ "
	for i, key := range keys {
		if i > 0 {
			strOut += ", "
		}
		var str string
		switch value := t.Data[key].(type) {
		case nil:
			str = "<null>"
		case bool:
			str = fmt.Sprintf("%v (bool)", value)
		case int:
			str = fmt.Sprintf("%d (int)", value)
		case float64:
			str = fmt.Sprintf("%v (float64)", value)
		case string:
			str = fmt.Sprintf("%s (string)", value)
		default:
			str = fmt.Sprintf("ERROR: unhandled type (%T) in Transformed.String()", value)
		}
		strOut += fmt.Sprintf("\"%s\": \"%s\"", key, str)
	}
	return strOut + " }"
}

package transform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lycosystem/lyproxify/entity"
)

// Transformer converts raw extract records into standardized rows according to
// the mapping of a single dataset spec. It is created once per conversion run;
// the sequential ID counters it owns are thereby scoped to that run.
//
// A Transformer is not safe for concurrent use.
type Transformer struct {
	spec   *entity.Spec
	fields []boundField
}

// boundField is one pre-resolved mapping leaf, with its map function bound to
// its parameters so that Transform only feeds it cells.
type boundField struct {
	path    entity.ColPath
	columns []string
	apply   applyFunc
}

// applyFunc produces the typed output value for one field of one record.
// A non-empty warning reports a data inconsistency that was resolved to nil.
type applyFunc func(cells []string) (value any, warning string)

func NewTransformer(spec *entity.Spec) (*Transformer, error) {
	if spec == nil {
		return nil, fmt.Errorf("spec not provided")
	}
	t := &Transformer{spec: spec}

	for _, section := range spec.Mapping.Sections {
		for _, group := range section.Groups {
			for _, field := range group.Fields {
				path := entity.ColPath{section.Name, group.Name, field.Name}
				apply, err := bindMapFunc(path, field)
				if err != nil {
					return nil, err
				}
				t.fields = append(t.fields, boundField{
					path:    path,
					columns: field.Columns,
					apply:   apply,
				})
			}
		}
	}
	return t, nil
}

// Transform converts one raw record into one standardized row. An excluded
// record yields (nil, nil). A cell that cannot be converted never fails the
// row; its output value is nil. Warnings about inconsistent (rather than
// merely missing) raw data are appended to warnings if non-nil.
func (t *Transformer) Transform(
	ctx context.Context,
	record entity.Record,
	warnings *[]string) (*entity.Transformed, error) {

	if t.excluded(record) {
		return nil, nil
	}

	row := entity.NewTransformed()
	for _, f := range t.fields {
		cells := make([]string, len(f.columns))
		for i, col := range f.columns {
			cells[i] = record.Value(col)
		}
		value, warning := f.apply(cells)
		if warning != "" && warnings != nil {
			*warnings = append(*warnings, fmt.Sprintf("row %d, column %s: %s", record.Index, f.path, warning))
		}
		row.Set(f.path, value)
	}
	return row, nil
}

// excluded reports whether any exclusion rule drops this record. Multiple
// rules are OR filters. Cell values are compared after whitespace trimming, so
// a padded "N/A" still matches.
func (t *Transformer) excluded(record entity.Record) bool {
	for _, rule := range t.spec.Mapping.ExcludeRowsWith {
		value := strings.TrimSpace(record.Value(rule.Column))

		if rule.ValueIsEmpty != nil && *rule.ValueIsEmpty && value == "" {
			return true
		}
		if len(rule.Values) > 0 {
			for _, v := range rule.Values {
				if value == v {
					return true
				}
			}
			continue
		}
		if len(rule.ValuesNotIn) > 0 {
			found := false
			for _, v := range rule.ValuesNotIn {
				if value == v {
					found = true
					break
				}
			}
			if !found {
				return true
			}
		}
	}
	return false
}

// bindMapFunc resolves the declared map function (or constant default) of a
// field into a ready-to-apply closure, validating its parameters in the
// process so that misconfigurations surface at spec registration rather than
// mid-conversion.
func bindMapFunc(path entity.ColPath, field entity.Field) (applyFunc, error) {
	if field.Map == nil {
		value, err := decodeDefault(field.Default, field.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %v", path, err)
		}
		return func([]string) (any, string) { return value, "" }, nil
	}

	m := field.Map
	var fn applyFunc

	switch m.Name {

	case entity.MapFuncStr:
		fn = func(cells []string) (any, string) {
			if v := strings.TrimSpace(cells[0]); v != "" {
				return v, ""
			}
			return nil, ""
		}

	case entity.MapFuncInt:
		fn = func(cells []string) (any, string) { return RobustInt(cells[0]), "" }

	case entity.MapFuncAge:
		fn = func(cells []string) (any, string) { return RobustRoundInt(cells[0]), "" }

	case entity.MapFuncFloat:
		fn = func(cells []string) (any, string) { return RobustFloat(cells[0]), "" }

	case entity.MapFuncBool:
		fn = func(cells []string) (any, string) { return RobustBool(cells[0]), "" }

	case entity.MapFuncDate:
		fn = func(cells []string) (any, string) { return RobustDate(cells[0]), "" }

	case entity.MapFuncEarliestDate:
		fn = func(cells []string) (any, string) { return EarliestDate(cells), "" }

	case entity.MapFuncSmallerOrNaN:
		if m.Threshold == nil {
			return nil, fmt.Errorf("field %s: %q requires a threshold", path, m.Name)
		}
		threshold := *m.Threshold
		fn = func(cells []string) (any, string) { return SmallerOrNaN(cells[0], threshold), "" }

	case entity.MapFuncLookup:
		if len(m.Table) == 0 {
			return nil, fmt.Errorf("field %s: %q requires a table", path, m.Name)
		}
		table, fieldType := m.Table, field.Type
		fn = func(cells []string) (any, string) { return Lookup(cells[0], table, fieldType), "" }

	case entity.MapFuncCategory:
		fn = func(cells []string) (any, string) { return Category(cells[0]), "" }

	case entity.MapFuncICDSubsite:
		fn = func(cells []string) (any, string) { return ICDSubsite(cells[0]), "" }

	case entity.MapFuncRecurrenceDate:
		if len(field.Columns) != 2 {
			return nil, fmt.Errorf("field %s: %q requires a flag column and a date column", path, m.Name)
		}
		fn = func(cells []string) (any, string) { return RecurrenceDate(cells[0], cells[1]) }

	case entity.MapFuncID:
		counter := NewIDCounter(m.Prefix, m.Start, m.Width)
		fn = func([]string) (any, string) { return counter.Next(), "" }

	default:
		return nil, fmt.Errorf("field %s has unknown map function %q", path, m.Name)
	}

	if m.When != nil {
		if len(field.Columns) < 2 {
			return nil, fmt.Errorf("field %s: a gated map requires a gate column after the value columns", path)
		}
		gate := m.When.Value
		inner := fn
		fn = func(cells []string) (any, string) {
			last := len(cells) - 1
			if strings.TrimSpace(cells[last]) != gate {
				return nil, ""
			}
			return inner(cells[:last])
		}
	}
	return fn, nil
}

// decodeDefault decodes a constant field default to its typed value. JSON null
// (or an absent default on a map-less field, caught by spec validation) yields
// a column of empty cells.
func decodeDefault(raw json.RawMessage, fieldType string) (any, error) {
	if raw == nil || string(raw) == "null" {
		return nil, nil
	}
	switch fieldType {
	case entity.FieldTypeInt:
		var v int
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("default %s is not an int", raw)
		}
		return v, nil
	case entity.FieldTypeFloat:
		var v float64
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("default %s is not a float", raw)
		}
		return v, nil
	case entity.FieldTypeBool:
		var v bool
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("default %s is not a bool", raw)
		}
		return v, nil
	default:
		var v string
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("default %s is not a string", raw)
		}
		if fieldType == entity.FieldTypeDate {
			date, ok := RobustDate(v).(string)
			if !ok {
				return nil, fmt.Errorf("default %q is not a date", v)
			}
			return date, nil
		}
		return v, nil
	}
}

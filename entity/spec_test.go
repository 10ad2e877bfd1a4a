package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var specOk = []byte(`{
	"dataset": "2021-clb-oropharynx",
	"description": "Oropharynx patients treated at Centre Leon Berard",
	"version": 1,
	"institution": "Centre Leon Berard",
	"source": { "type": "csvfile", "config": { "path": "raw.csv" } },
	"sink": { "type": "csvfile", "config": { "path": "data.csv" } },
	"mapping": {
		"excludeRowsWith": [
			{ "column": "consent", "valueIsEmpty": true },
			{ "column": "hpv", "values": ["exclude"] }
		],
		"sections": [
			{
				"name": "patient",
				"groups": [
					{
						"name": "core",
						"fields": [
							{ "name": "age", "type": "int", "columns": ["age"], "map": { "name": "age" } },
							{ "name": "sex", "columns": ["sex"], "map": { "name": "lookup", "table": { "1": "male", "2": "female" } } },
							{ "name": "origin", "default": "2021-clb-oropharynx" }
						]
					}
				]
			},
			{
				"name": "tumor",
				"groups": [
					{
						"name": "core",
						"fields": [
							{ "name": "t_stage", "type": "int", "columns": ["t_stage"], "map": { "name": "category" } },
							{ "name": "volume", "type": "float", "columns": ["age"], "map": { "name": "float" } }
						]
					}
				]
			}
		]
	}
}`)

func TestNewSpec(t *testing.T) {
	spec, err := NewSpec(specOk)
	require.NoError(t, err)

	assert.Equal(t, "2021-clb-oropharynx", spec.Id())
	assert.Equal(t, 1, spec.Version)
	assert.False(t, spec.IsDisabled())
	assert.Equal(t, EntityCSVFile, spec.Source.Type)

	// Defaults
	assert.Equal(t, DefaultHeaderRows, spec.Source.Config.HeaderRows)
	assert.Equal(t, DefaultDelimiter, spec.Source.Config.Delimiter)
	assert.Equal(t, DefaultDelimiter, spec.Sink.Config.Delimiter)
	assert.Equal(t, DefaultRowLogInterval, spec.Ops.RowLogInterval)
	assert.Equal(t, FieldTypeStr, spec.Mapping.Sections[0].Groups[0].Fields[1].Type)

	_, err = NewSpec(nil)
	assert.Error(t, err)
	_, err = NewSpec([]byte("not json"))
	assert.Error(t, err)
}

func TestColumnPaths(t *testing.T) {
	spec, err := NewSpec(specOk)
	require.NoError(t, err)

	assert.Equal(t, []ColPath{
		{"patient", "core", "age"},
		{"patient", "core", "sex"},
		{"patient", "core", "origin"},
		{"tumor", "core", "t_stage"},
		{"tumor", "core", "volume"},
	}, spec.ColumnPaths())

	assert.Equal(t, "patient.core.age", spec.ColumnPaths()[0].String())
}

func TestReferencedColumns(t *testing.T) {
	spec, err := NewSpec(specOk)
	require.NoError(t, err)

	// Deduplicated, exclusion rule columns included.
	assert.Equal(t, []string{"consent", "hpv", "age", "sex", "t_stage"}, spec.ReferencedColumns())
}

func TestSpecValidation(t *testing.T) {
	invalid := func(mutate func(spec string) string) error {
		_, err := NewSpec([]byte(mutate(string(specOk))))
		return err
	}

	// Dataset names follow <year>-<institution>-<subsites>.
	assert.Error(t, invalid(func(s string) string {
		return replaceOnce(s, `"2021-clb-oropharynx"`, `"Oropharynx 2021"`)
	}))
	// Unknown field type.
	assert.Error(t, invalid(func(s string) string {
		return replaceOnce(s, `"type": "int", "columns": ["age"]`, `"type": "years", "columns": ["age"]`)
	}))
	// Field with neither map nor default.
	assert.Error(t, invalid(func(s string) string {
		return replaceOnce(s, `{ "name": "origin", "default": "2021-clb-oropharynx" }`, `{ "name": "origin" }`)
	}))
	// Map function without input columns.
	assert.Error(t, invalid(func(s string) string {
		return replaceOnce(s, `"columns": ["sex"], `, ``)
	}))
	// Exclusion rule without a column.
	assert.Error(t, invalid(func(s string) string {
		return replaceOnce(s, `"column": "hpv", `, ``)
	}))
	// Unknown top-level property rejected by the schema.
	assert.Error(t, invalid(func(s string) string {
		return replaceOnce(s, `"version": 1,`, `"version": 1, "verion": 2,`)
	}))
}

func replaceOnce(s, from, to string) string {
	return strings.Replace(s, from, to, 1)
}

func TestSpecJSONRoundTrip(t *testing.T) {
	spec, err := NewSpec(specOk)
	require.NoError(t, err)

	again, err := NewSpec(spec.JSON())
	require.NoError(t, err)
	assert.Equal(t, spec.ColumnPaths(), again.ColumnPaths())
}

func TestRecord(t *testing.T) {
	r := Record{Index: 3, Fields: map[string]string{"age": "61", "pad": "  "}}
	assert.Equal(t, "61", r.Value("age"))
	assert.Equal(t, "", r.Value("missing"))
	assert.False(t, r.IsEmpty("age"))
	assert.True(t, r.IsEmpty("pad"))
	assert.True(t, r.IsEmpty("missing"))
}

func TestTransformedString(t *testing.T) {
	row := NewTransformed()
	row.Set(ColPath{"patient", "core", "age"}, 61)
	row.Set(ColPath{"patient", "core", "hpv_status"}, nil)

	str := row.String()
	assert.Contains(t, str, "patient.core.age")
	assert.Contains(t, str, "61 (int)")
	assert.Contains(t, str, "<null>")

	assert.Equal(t, 61, row.Get(ColPath{"patient", "core", "age"}))
	assert.Nil(t, row.Get(ColPath{"patient", "core", "hpv_status"}))
}

func TestNotifyLevels(t *testing.T) {
	assert.Equal(t, "WARN", NotifyLevelName(NotifyLevelWarn))
	assert.Equal(t, "INVALID", NotifyLevelName(42))
	assert.Equal(t, NotifyLevelError, NotifyLevel("ERROR"))
	assert.Equal(t, NotifyLevelInvalid, NotifyLevel("NOPE"))
}

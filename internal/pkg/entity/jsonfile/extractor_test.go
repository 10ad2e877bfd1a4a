package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lycosystem/lyproxify/entity"
)

var specJson = []byte(`
{
  "dataset": "2023-usz-hypopharynx",
  "description": "Test dataset from a JSON export",
  "version": 1,
  "source": { "type": "jsonfile", "config": { "path": "raw.json", "recordsPath": "patients" } },
  "sink": { "type": "void" },
  "mapping": {
    "sections": [
      {
        "name": "patient",
        "groups": [
          {
            "name": "core",
            "fields": [
              { "name": "age", "type": "int", "columns": ["age"], "map": { "name": "age" } },
              { "name": "hpv_status", "type": "bool", "columns": ["tumor.hpv"], "map": { "name": "bool" } }
            ]
          }
        ]
      }
    ]
  }
}`)

const rawJson = `{
  "exportedBy": "his-4.2",
  "patients": [
    { "age": 61, "tumor": { "hpv": true, "subsite": "C13.2" } },
    { "age": null, "tumor": { "hpv": null } },
    { "age": 52 }
  ]
}`

func extractAll(t *testing.T, raw string) ([]entity.Record, error) {
	dir := t.TempDir()
	path := filepath.Join(dir, "raw.json")
	require.NoError(t, os.WriteFile(path, []byte(raw), 0644))

	spec, err := entity.NewSpec(specJson)
	require.NoError(t, err)
	spec.Source.Config.Path = path

	e, err := newExtractor(entity.Config{Spec: spec, ID: "0"})
	require.NoError(t, err)

	var records []entity.Record
	err = e.Extract(context.Background(), func(ctx context.Context, r entity.Record) entity.RecordProcessingResult {
		records = append(records, r)
		return entity.RecordProcessingResult{Status: entity.ExecutorStatusSuccessful}
	})
	return records, err
}

func TestExtractRecords(t *testing.T) {
	records, err := extractAll(t, rawJson)
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, "61", records[0].Value("age"))
	assert.Equal(t, "true", records[0].Value("tumor.hpv"))
	assert.Equal(t, "C13.2", records[0].Value("tumor.subsite"))

	// JSON null is an empty cell.
	assert.Equal(t, "", records[1].Value("age"))
	assert.True(t, records[1].IsEmpty("tumor.hpv"))

	// Sparse semantics: an absent field is an empty cell, not an error.
	assert.Equal(t, "52", records[2].Value("age"))
	assert.True(t, records[2].IsEmpty("tumor.hpv"))
	assert.Equal(t, 2, records[2].Index)
}

func TestExtractInvalidDocuments(t *testing.T) {
	_, err := extractAll(t, "not json at all")
	assert.Error(t, err)

	// Valid JSON but no record array under recordsPath.
	_, err = extractAll(t, `{"patients": {"oops": true}}`)
	assert.Error(t, err)
}

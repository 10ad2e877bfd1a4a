package void

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lycosystem/lyproxify/entity"
)

var specBytes = []byte(`{
	"dataset": "2021-clb-oropharynx",
	"description": "Tiny test spec discarding all output.",
	"version": 1,
	"source": { "type": "csvfile", "config": { "path": "raw.csv" } },
	"mapping": {
		"sections": [
			{
				"name": "patient",
				"groups": [
					{
						"name": "core",
						"fields": [
							{ "name": "age", "type": "int", "columns": ["age"], "map": { "name": "age" } }
						]
					}
				]
			}
		]
	},
	"sink": {
		"type": "void",
		"config": {
			"properties": [
				{ "key": "logRowData", "value": "true" },
				{ "key": "simulateError", "value": "true" },
				{ "key": "maxErrors", "value": "1" }
			]
		}
	}
}`)

func TestProperties(t *testing.T) {

	ctx := context.Background()
	spec, err := entity.NewSpec(specBytes)
	require.NoError(t, err)

	lf := NewLoaderFactory()
	assert.Equal(t, "void", lf.SinkId())

	l, err := lf.NewLoader(ctx, entity.Config{Spec: spec, ID: "someId"})
	require.NoError(t, err)
	voidLoader := l.(*loader)

	assert.Equal(t, "true", voidLoader.props["logRowData"])
	assert.Equal(t, 1, voidLoader.maxErrors)

	row := entity.NewTransformed()
	row.Set(entity.ColPath{"patient", "core", "age"}, 61)

	// maxErrors=1: the first load fails, subsequent ones succeed.
	_, err = l.Load(ctx, row)
	assert.Error(t, err)
	_, err = l.Load(ctx, row)
	assert.NoError(t, err)

	_, err = l.Load(ctx, nil)
	assert.Error(t, err)

	assert.NoError(t, l.Shutdown())
}

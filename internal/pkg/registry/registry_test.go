package registry

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func specWithVersion(version int) []byte {
	return []byte(fmt.Sprintf(`{
		"dataset": "2021-clb-oropharynx",
		"description": "Test dataset",
		"version": %d,
		"source": { "type": "csvfile", "config": { "path": "raw.csv" } },
		"sink": { "type": "void" },
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
		}
	}`, version))
}

func TestRegisterAndGet(t *testing.T) {
	r := NewDatasetRegistry(nil, "instanceId", false)

	id, err := r.Register(specWithVersion(1))
	require.NoError(t, err)
	assert.Equal(t, "2021-clb-oropharynx", id)
	assert.True(t, r.Exists(id))

	spec, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 1, spec.Version)

	_, err = r.Get("2099-nowhere-unknown")
	assert.Error(t, err)
	assert.False(t, r.Exists("2099-nowhere-unknown"))

	assert.Len(t, r.GetAll(), 1)
}

func TestRegisterVersionHandling(t *testing.T) {
	r := NewDatasetRegistry(nil, "instanceId", false)

	_, err := r.Register(specWithVersion(2))
	require.NoError(t, err)

	// Same or lower versions are rejected.
	_, err = r.Register(specWithVersion(2))
	assert.Error(t, err)
	_, err = r.Register(specWithVersion(1))
	assert.Error(t, err)

	// A higher version upgrades the dataset.
	id, err := r.Register(specWithVersion(3))
	require.NoError(t, err)
	spec, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, 3, spec.Version)
}

func TestRegisterInvalidSpec(t *testing.T) {
	r := NewDatasetRegistry(nil, "instanceId", false)
	_, err := r.Register([]byte(`{"dataset": "bad name"}`))
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	r := NewDatasetRegistry(nil, "instanceId", false)

	id, err := r.Register(specWithVersion(1))
	require.NoError(t, err)

	require.NoError(t, r.Delete(id))
	assert.False(t, r.Exists(id))
	assert.Error(t, r.Delete(id))

	// After deletion any version can be registered again.
	_, err = r.Register(specWithVersion(1))
	assert.NoError(t, err)
}

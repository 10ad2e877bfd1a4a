package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/entity/transform"
)

var specBytes = []byte(`{
	"dataset": "2021-clb-oropharynx",
	"description": "Executor test dataset",
	"version": 1,
	"source": { "type": "csvfile", "config": { "path": "raw.csv" } },
	"sink": { "type": "void" },
	"mapping": {
		"excludeRowsWith": [
			{ "column": "consent", "values": ["no"] }
		],
		"sections": [
			{
				"name": "patient",
				"groups": [
					{
						"name": "core",
						"fields": [
							{ "name": "age", "type": "int", "columns": ["age"], "map": { "name": "age" } },
							{ "name": "recurrence_date", "type": "date", "columns": ["recurrence", "recurrence_date"], "map": { "name": "recurrence_date" } }
						]
					}
				]
			}
		]
	}
}`)

// sliceExtractor reports a fixed set of records, the way a file extractor
// would.
type sliceExtractor struct {
	records []entity.Record
}

func (s *sliceExtractor) Extract(ctx context.Context, proc entity.ProcessRecordFunc) error {
	for _, record := range s.records {
		result := proc(ctx, record)
		switch result.Status {
		case entity.ExecutorStatusSuccessful:
		case entity.ExecutorStatusShutdown:
			return nil
		default:
			return result.Error
		}
	}
	return nil
}

type captureLoader struct {
	rows        []*entity.Transformed
	failAtRow   int // 1-based; 0 disables
	shutdowns   int
	shutdownErr error
}

func (c *captureLoader) Load(ctx context.Context, row *entity.Transformed) (string, error) {
	if c.failAtRow > 0 && len(c.rows)+1 == c.failAtRow {
		return "", errors.New("sink failure")
	}
	c.rows = append(c.rows, row)
	return "data.csv", nil
}

func (c *captureLoader) Shutdown() error {
	c.shutdowns++
	return c.shutdownErr
}

func rawRecords() []entity.Record {
	return []entity.Record{
		{Index: 0, Fields: map[string]string{"consent": "yes", "age": "61"}},
		{Index: 1, Fields: map[string]string{"consent": "no", "age": "52"}},
		{Index: 2, Fields: map[string]string{"consent": "yes", "age": "47.6"}},
	}
}

func newExecutor(t *testing.T, config Config, extractor entity.Extractor, loader entity.Loader) *Executor {
	spec, err := entity.NewSpec(specBytes)
	require.NoError(t, err)
	transformer, err := transform.NewTransformer(spec)
	require.NoError(t, err)
	e := NewExecutor(config, spec, "instanceId", extractor, transformer, loader)
	require.NotNil(t, e)
	return e
}

func TestRunConvertsAndExcludes(t *testing.T) {
	loader := &captureLoader{}
	e := newExecutor(t, Config{}, &sliceExtractor{records: rawRecords()}, loader)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "2021-clb-oropharynx", result.Dataset)
	assert.Equal(t, "data.csv", result.ResourceId)
	assert.Equal(t, int64(3), result.Metrics.RowsExtracted)
	assert.Equal(t, int64(1), result.Metrics.RowsExcluded)
	assert.Equal(t, int64(2), result.Metrics.RowsConverted)
	assert.Equal(t, int64(2), result.Metrics.RowsLoaded)
	assert.Equal(t, []int{1}, result.ExcludedRows)

	require.Len(t, loader.rows, 2)
	assert.Equal(t, 61, loader.rows[0].Get(entity.ColPath{"patient", "core", "age"}))
	assert.Equal(t, 48, loader.rows[1].Get(entity.ColPath{"patient", "core", "age"}))
	assert.Equal(t, 1, loader.shutdowns)
}

func TestRunLoaderFailure(t *testing.T) {
	loader := &captureLoader{failAtRow: 2}
	e := newExecutor(t, Config{}, &sliceExtractor{records: rawRecords()}, loader)

	result, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sink rejected row 2")

	// Shutdown is called exactly once on failed runs too.
	assert.Equal(t, 1, loader.shutdowns)
	assert.Equal(t, int64(1), result.Metrics.RowsLoaded)
}

func TestRunShutdownError(t *testing.T) {
	loader := &captureLoader{shutdownErr: errors.New("flush failed")}
	e := newExecutor(t, Config{}, &sliceExtractor{records: rawRecords()}, loader)

	_, err := e.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "flush failed")
}

func TestRunInconsistencyWarning(t *testing.T) {
	ch := make(entity.NotifyChan, 10)
	loader := &captureLoader{}
	records := []entity.Record{
		{Index: 0, Fields: map[string]string{
			"consent": "yes", "age": "61", "recurrence": "0", "recurrence_date": "2020-05-01",
		}},
	}
	e := newExecutor(t, Config{NotifyChan: ch}, &sliceExtractor{records: records}, loader)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	// Inconsistent raw data yields a nil value plus a WARN event, not a failed
	// run.
	assert.Equal(t, int64(1), result.Metrics.RowsLoaded)
	require.Len(t, loader.rows, 1)
	assert.Nil(t, loader.rows[0].Get(entity.ColPath{"patient", "core", "recurrence_date"}))

	warned := false
	for len(ch) > 0 {
		event := <-ch
		if event.Level == entity.NotifyLevelStrWarn {
			warned = true
			assert.Contains(t, event.Message, "row 0")
		}
	}
	assert.True(t, warned)
}

func TestRunPreMapHook(t *testing.T) {
	hook := func(ctx context.Context, spec *entity.Spec, record *entity.Record) entity.HookAction {
		switch record.Index {
		case 0:
			// Amend the record before mapping.
			record.Fields["age"] = "39"
			return entity.HookActionProceed
		case 1:
			return entity.HookActionSkip
		default:
			return entity.HookActionProceed
		}
	}
	loader := &captureLoader{}
	e := newExecutor(t, Config{PreMapHookFunc: hook}, &sliceExtractor{records: rawRecords()}, loader)

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	// The skipped record is not counted as excluded.
	assert.Equal(t, int64(3), result.Metrics.RowsExtracted)
	assert.Equal(t, int64(0), result.Metrics.RowsExcluded)
	assert.Empty(t, result.ExcludedRows)
	require.Len(t, loader.rows, 2)
	assert.Equal(t, 39, loader.rows[0].Get(entity.ColPath{"patient", "core", "age"}))
}

func TestRunPreMapHookShutdownAndError(t *testing.T) {
	shutdownHook := func(ctx context.Context, spec *entity.Spec, record *entity.Record) entity.HookAction {
		if record.Index == 1 {
			return entity.HookActionShutdown
		}
		return entity.HookActionProceed
	}
	loader := &captureLoader{}
	e := newExecutor(t, Config{PreMapHookFunc: shutdownHook}, &sliceExtractor{records: rawRecords()}, loader)

	// Early shutdown keeps what was converted so far.
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Metrics.RowsLoaded)
	assert.Equal(t, 1, loader.shutdowns)

	errorHook := func(ctx context.Context, spec *entity.Spec, record *entity.Record) entity.HookAction {
		return entity.HookActionError
	}
	e = newExecutor(t, Config{PreMapHookFunc: errorHook}, &sliceExtractor{records: rawRecords()}, &captureLoader{})
	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, ErrHookError)

	invalidHook := func(ctx context.Context, spec *entity.Spec, record *entity.Record) entity.HookAction {
		return entity.HookActionInvalid
	}
	e = newExecutor(t, Config{PreMapHookFunc: invalidHook}, &sliceExtractor{records: rawRecords()}, &captureLoader{})
	_, err = e.Run(context.Background())
	assert.ErrorIs(t, err, ErrHookInvalidAction)
}

func TestNewExecutorInvalid(t *testing.T) {
	spec, err := entity.NewSpec(specBytes)
	require.NoError(t, err)
	transformer, err := transform.NewTransformer(spec)
	require.NoError(t, err)

	assert.Nil(t, NewExecutor(Config{}, nil, "id", &sliceExtractor{}, transformer, &captureLoader{}))
	assert.Nil(t, NewExecutor(Config{}, spec, "id", nil, transformer, &captureLoader{}))
	assert.Nil(t, NewExecutor(Config{}, spec, "id", &sliceExtractor{}, nil, &captureLoader{}))
	assert.Nil(t, NewExecutor(Config{}, spec, "id", &sliceExtractor{}, transformer, nil))
}

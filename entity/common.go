package entity

import (
	"errors"
)

// Native source/sink entity types
type EntityType string

const (
	EntityInvalid  EntityType = "invalid"
	EntityVoid     EntityType = "void"
	EntityCSVFile  EntityType = "csvfile"
	EntityJSONFile EntityType = "jsonfile"
)

var ReservedEntityNames = map[string]bool{
	string(EntityInvalid):  true,
	string(EntityVoid):     true,
	string(EntityCSVFile):  true,
	string(EntityJSONFile): true,
}

// Config is the entity config used with extractor/loader factories.
type Config struct {
	Spec       *Spec
	ID         string
	NotifyChan NotifyChan
	Log        bool
}

// Metrics describes one conversion run. Accessible from the API together with
// the run result.
type Metrics struct {

	// Number of raw rows read from the source extract.
	RowsExtracted int64

	// Number of rows dropped by exclusion rules.
	RowsExcluded int64

	// Number of rows successfully mapped to standardized records.
	RowsConverted int64

	// Total time spent in the row transformer.
	ConvertTimeMicros int64

	// Number of standardized records handed to the sink loader.
	RowsLoaded int64

	// Total time spent ingesting records in the sink.
	LoadTimeMicros int64
}

// RunResult summarizes one completed dataset conversion.
type RunResult struct {
	// Dataset is the dataset ID of the converted spec.
	Dataset string

	// ResourceId identifies what the sink produced, e.g. the output file path.
	ResourceId string

	Metrics Metrics

	// ExcludedRows holds the raw row indices dropped by exclusion rules, in
	// source order. Reported so the caller can log or audit them.
	ExcludedRows []int
}

// ErrSchemaMismatch is wrapped by extractors when the mapping references a raw
// column that does not exist in the extract. This indicates the spec is out of
// sync with the input file and always fails the run.
var ErrSchemaMismatch = errors.New("mapping references columns missing from the raw extract")

package entity

import (
	"context"
)

type ExtractorFactories map[string]ExtractorFactory

// ExtractorFactory enables raw record sources to be handled as plug-ins.
// A factory is registered with the API Config.RegisterExtractorType() for a
// source type to be available to dataset specs.
type ExtractorFactory interface {
	// SourceId returns the source ID for which the extractor is implemented
	SourceId() string

	// NewExtractor creates a new extractor entity
	NewExtractor(ctx context.Context, c Config) (Extractor, error)

	// Close is called during API shutdown
	Close() error
}

// Extractor is the interface required for raw record source implementations.
// The Extractor implementation is given its dataset Spec in the factory call.
type Extractor interface {

	// Extract reads all raw records from the source and reports each one to the
	// executor with proc, in source order, until the source is exhausted, ctx
	// is canceled, or proc reports a non-successful status.
	//
	// Extractors referencing a column-addressed format (e.g. CSV) must verify
	// that every column in Spec.ReferencedColumns() exists in the extract and
	// fail with an error wrapping ErrSchemaMismatch otherwise, before any
	// record is reported. Sparse formats (e.g. JSON objects) treat missing
	// fields as empty cells instead.
	Extract(ctx context.Context, proc ProcessRecordFunc) error
}

// ProcessRecordFunc is the type of func an Extractor calls for each extracted
// record to be processed downstream. The Extractor must stop extracting when
// the returned result has a status other than ExecutorStatusSuccessful.
type ProcessRecordFunc func(context.Context, Record) RecordProcessingResult

type ExecutorStatus int

const (
	ExecutorStatusInvalid ExecutorStatus = iota
	ExecutorStatusSuccessful
	ExecutorStatusError
	ExecutorStatusShutdown
)

type RecordProcessingResult struct {
	Status ExecutorStatus
	Error  error
}

package entity

import (
	"context"
)

type LoaderFactories map[string]LoaderFactory

// LoaderFactory enables sinks to be handled as plug-ins. A factory is
// registered with the API Config.RegisterLoaderType() for a sink type to be
// available to dataset specs.
type LoaderFactory interface {
	// SinkId returns the sink ID for which the loader is implemented
	SinkId() string

	// NewLoader creates a new loader entity
	NewLoader(ctx context.Context, c Config) (Loader, error)

	// Close is called during API shutdown
	Close() error
}

// Loader is the interface required for sink implementations. The executor
// calls Load once per converted record, in row order, and Shutdown exactly
// once when the run ends (also on failed runs, so loaders can release
// resources and flush or discard partial output as appropriate).
type Loader interface {

	// Load ingests one standardized record. If successful the resource ID of
	// the loaded record (e.g. the output file path) is returned.
	// If 'row' is nil an error is to be returned.
	Load(ctx context.Context, row *Transformed) (string, error)

	// Shutdown is called by the executor when the conversion run ends.
	Shutdown() error
}

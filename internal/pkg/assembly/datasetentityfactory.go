// Package assembly creates the source/sink entities of a conversion run based
// on dataset spec config.
package assembly

import (
	"context"
	"fmt"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/internal/pkg/entity/csvfile"
	"github.com/lycosystem/lyproxify/internal/pkg/entity/jsonfile"
	"github.com/lycosystem/lyproxify/internal/pkg/entity/void"
)

// DatasetEntityFactory creates extractors and loaders based on dataset spec
// config. It is a singleton, created by the Service, holding both the native
// connector factories and any client-registered ones.
type DatasetEntityFactory struct {
	config Config
}

func NewDatasetEntityFactory(config Config) *DatasetEntityFactory {
	if config.Extractors == nil {
		config.Extractors = make(entity.ExtractorFactories)
	}
	if config.Loaders == nil {
		config.Loaders = make(entity.LoaderFactories)
	}

	for _, ef := range []entity.ExtractorFactory{
		csvfile.NewExtractorFactory(),
		jsonfile.NewExtractorFactory(),
	} {
		config.Extractors[ef.SourceId()] = ef
	}
	for _, lf := range []entity.LoaderFactory{
		csvfile.NewLoaderFactory(),
		void.NewLoaderFactory(),
	} {
		config.Loaders[lf.SinkId()] = lf
	}

	return &DatasetEntityFactory{config: config}
}

func (d *DatasetEntityFactory) CreateExtractor(ctx context.Context, c entity.Config) (entity.Extractor, error) {
	factory, ok := d.config.Extractors[string(c.Spec.Source.Type)]
	if !ok {
		return nil, fmt.Errorf("could not create extractor, source type %q not registered (dataset: %s)",
			c.Spec.Source.Type, c.Spec.Id())
	}
	return factory.NewExtractor(ctx, c)
}

func (d *DatasetEntityFactory) CreateLoader(ctx context.Context, c entity.Config) (entity.Loader, error) {
	factory, ok := d.config.Loaders[string(c.Spec.Sink.Type)]
	if !ok {
		return nil, fmt.Errorf("could not create loader, sink type %q not registered (dataset: %s)",
			c.Spec.Sink.Type, c.Spec.Id())
	}
	return factory.NewLoader(ctx, c)
}

func (d *DatasetEntityFactory) SourceTypes() []string {
	types := make([]string, 0, len(d.config.Extractors))
	for id := range d.config.Extractors {
		types = append(types, id)
	}
	return types
}

func (d *DatasetEntityFactory) SinkTypes() []string {
	types := make([]string, 0, len(d.config.Loaders))
	for id := range d.config.Loaders {
		types = append(types, id)
	}
	return types
}

func (d *DatasetEntityFactory) Close() error {
	return d.config.Close()
}

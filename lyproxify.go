// Package lyproxify converts raw hospital extracts of head and neck cancer
// patient data, as exported from clinical information systems, into the
// standardized lyDATA table format, driven by declarative per-dataset mapping
// specs.
package lyproxify

import (
	"context"
	"errors"
	"fmt"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/internal/service"
	"github.com/tidwall/sjson"
)

// Error values returned by the API.
// Many of these errors will also contain additional details about the error.
// Error matching can still be done with 'if errors.Is(err, ErrInvalidDatasetId)'
// etc. due to error wrapping.
var (
	ErrConfigNotInitialized   = errors.New("lyproxify.Config need to be created with NewConfig()")
	ErrNotInitialized         = errors.New("lyproxify not initialized")
	ErrSpecAlreadyExists      = errors.New("dataset already exists with that version - increment version number to upgrade")
	ErrInvalidDatasetSpec     = errors.New("dataset specification is not valid")
	ErrInvalidDatasetId       = errors.New("invalid dataset ID")
	ErrInternalDataProcessing = errors.New("internal data processing error")
	ErrInvalidEntityId        = errors.New("invalid source/sink ID")
)

type Lyproxify struct {
	service    *service.Service
	notifyChan entity.NotifyChan
}

// New creates and configures the API instance based on the provided config,
// which needs to be initially created with NewConfig().
func New(config *Config) (*Lyproxify, error) {
	if config == nil || config.extractors == nil || config.loaders == nil {
		return nil, ErrConfigNotInitialized
	}

	chanSize := config.Ops.NotifyChanSize
	if chanSize <= 0 {
		chanSize = defaultNotifyChanSize
	}
	l := &Lyproxify{
		notifyChan: make(entity.NotifyChan, chanSize),
	}

	var err error
	l.service, err = service.New(preProcessConfig(config, l.notifyChan))
	return l, err
}

// RegisterDataset validates and stores the dataset spec in the registry.
// If successful the dataset ID is returned and the dataset is available for
// conversion with Convert(). A registered dataset is upgraded by registering a
// spec with a higher version number.
func (l *Lyproxify) RegisterDataset(ctx context.Context, specData []byte) (id string, err error) {
	if l.service == nil {
		return id, ErrNotInitialized
	}

	spec, err := entity.NewSpec(specData)
	if err != nil {
		return id, errWithDetails(ErrInvalidDatasetSpec, err)
	}

	if registered, getErr := l.service.Registry().Get(spec.Id()); getErr == nil {
		if spec.Version <= registered.Version {
			return id, ErrSpecAlreadyExists
		}
	}
	id, err = l.service.Registry().Register(specData)
	if err != nil {
		return id, errWithDetails(ErrInternalDataProcessing, err)
	}
	return id, nil
}

// Convert runs the full conversion of one registered dataset: the raw extract
// is read record by record, excluded rows are dropped, the remaining records
// are mapped to standardized rows and loaded into the configured sink. The
// returned RunResult holds the sink resource ID (e.g. the output file path),
// the run metrics and the indices of excluded raw rows.
func (l *Lyproxify) Convert(ctx context.Context, datasetId string) (entity.RunResult, error) {
	if l.service == nil {
		return entity.RunResult{}, ErrNotInitialized
	}
	if !l.service.Registry().Exists(datasetId) {
		return entity.RunResult{}, fmt.Errorf("%w: %s", ErrInvalidDatasetId, datasetId)
	}
	return l.service.Convert(ctx, datasetId)
}

// ValidateDatasetSpec returns an error if the provided dataset spec is
// invalid, and the dataset ID if not.
func (l *Lyproxify) ValidateDatasetSpec(specData []byte) (datasetId string, err error) {
	spec, err := entity.NewSpec(specData)
	if err != nil {
		return datasetId, errWithDetails(ErrInvalidDatasetSpec, err)
	}
	return spec.Id(), nil
}

// GetDatasetSpec returns the full spec for a specific dataset ID.
func (l *Lyproxify) GetDatasetSpec(datasetId string) (specData []byte, err error) {
	spec, err := l.service.Registry().Get(datasetId)
	if err != nil {
		return nil, errWithDetails(ErrInvalidDatasetId, err)
	}
	return spec.JSON(), nil
}

// GetDatasetSpecs returns all registered dataset specs.
func (l *Lyproxify) GetDatasetSpecs() map[string][]byte {
	specs := make(map[string][]byte)
	for id, spec := range l.service.Registry().GetAll() {
		specs[id] = spec.JSON()
	}
	return specs
}

// NotifyChannel returns the channel where operational events such as progress
// metrics and data inconsistency warnings are emitted during conversion runs.
func (l *Lyproxify) NotifyChannel() entity.NotifyChan {
	return l.notifyChan
}

// Entities returns the IDs of all registered extractor/loader types for each
// source/sink. The keys of the outer map are "extractor" and "loader".
func (l *Lyproxify) Entities() map[string]map[string]bool {
	entities := map[string]map[string]bool{
		"extractor": make(map[string]bool),
		"loader":    make(map[string]bool),
	}
	for _, id := range l.service.EntityFactory().SourceTypes() {
		entities["extractor"][id] = true
	}
	for _, id := range l.service.EntityFactory().SinkTypes() {
		entities["loader"][id] = true
	}
	return entities
}

// Shutdown should be called when the app is terminating.
func (l *Lyproxify) Shutdown() error {
	if l.service == nil {
		return ErrNotInitialized
	}
	return l.service.Shutdown()
}

// AmendSpec is a convenience function for adjusting a dataset spec document
// before registration, e.g. pointing source.config.path at the actual extract
// location. It's a wrapper on the sjson package.
// See doc at https://github.com/tidwall/sjson.
func AmendSpec(specData []byte, path string, value any) ([]byte, error) {
	return sjson.SetBytes(specData, path, value)
}

func errWithDetails(err error, errDetails error) error {
	return fmt.Errorf("%w, details: %v", err, errDetails)
}

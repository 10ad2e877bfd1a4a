// Package service provides the internal implementation of the public API:
// dataset registration and the orchestration of conversion runs.
package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/entity/transform"
	"github.com/lycosystem/lyproxify/internal/pkg/assembly"
	"github.com/lycosystem/lyproxify/internal/pkg/engine"
	"github.com/lycosystem/lyproxify/internal/pkg/registry"
	"github.com/lycosystem/lyproxify/pkg/notify"
	"github.com/teltech/logger"
)

type Config struct {
	NotifyChan     entity.NotifyChan
	Log            bool
	PreMapHookFunc entity.PreMapHookFunc
	Extractors     entity.ExtractorFactories
	Loaders        entity.LoaderFactories
}

// Service holds the dataset registry and the connector factories of one API
// instance and executes conversion runs on demand. Each run gets its own
// executor, transformer and connector entities; runs of different datasets can
// therefore execute concurrently.
type Service struct {
	config        Config
	instanceId    string
	registry      *registry.DatasetRegistry
	entityFactory *assembly.DatasetEntityFactory
	notifier      *notify.Notifier
}

func New(config Config) (*Service, error) {

	s := &Service{
		config:     config,
		instanceId: uuid.New().String(),
	}
	s.registry = registry.NewDatasetRegistry(config.NotifyChan, s.instanceId, config.Log)
	s.entityFactory = assembly.NewDatasetEntityFactory(assembly.Config{
		Extractors: config.Extractors,
		Loaders:    config.Loaders,
	})

	var log *logger.Log
	if config.Log {
		log = logger.New()
	}
	s.notifier = notify.New(config.NotifyChan, log, 2, "service", s.instanceId, "")

	return s, nil
}

func (s *Service) Registry() *registry.DatasetRegistry {
	return s.registry
}

func (s *Service) EntityFactory() *assembly.DatasetEntityFactory {
	return s.entityFactory
}

// Convert runs the full conversion of one registered dataset: all raw records
// are extracted, excluded or transformed, and loaded into the sink.
func (s *Service) Convert(ctx context.Context, datasetId string) (entity.RunResult, error) {

	var result entity.RunResult

	spec, err := s.registry.Get(datasetId)
	if err != nil {
		return result, err
	}
	if spec.IsDisabled() {
		return result, fmt.Errorf("dataset %s is disabled", datasetId)
	}

	runId := uuid.New().String()
	c := entity.Config{
		Spec:       spec,
		ID:         runId,
		NotifyChan: s.config.NotifyChan,
		Log:        s.config.Log,
	}

	extractor, err := s.entityFactory.CreateExtractor(ctx, c)
	if err != nil {
		return result, err
	}
	loader, err := s.entityFactory.CreateLoader(ctx, c)
	if err != nil {
		return result, err
	}
	transformer, err := transform.NewTransformer(spec)
	if err != nil {
		return result, err
	}

	executor := engine.NewExecutor(
		engine.Config{
			NotifyChan:     s.config.NotifyChan,
			Log:            s.config.Log,
			PreMapHookFunc: s.config.PreMapHookFunc,
		},
		spec, runId, extractor, transformer, loader)
	if executor == nil {
		return result, fmt.Errorf("could not create executor for dataset %s", datasetId)
	}

	s.notifier.Notify(entity.NotifyLevelInfo, "Starting run %s for dataset %s", runId, datasetId)
	return executor.Run(ctx)
}

func (s *Service) Shutdown() error {
	return s.entityFactory.Close()
}

package lyproxify

import (
	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/internal/service"
)

const defaultNotifyChanSize = 512

// Config needs to be created with NewConfig() and filled in with config as
// applicable for the intended setup, and provided in the call to New().
// All config fields are optional.
type Config struct {
	Ops   OpsConfig
	Hooks HookConfig

	// Extractors and Loaders are added to the config with
	// Config.RegisterExtractorType() and Config.RegisterLoaderType().
	extractors entity.ExtractorFactories
	loaders    entity.LoaderFactories
}

// OpsConfig provides options for observability.
type OpsConfig struct {

	// Size of the notification channel buffer
	NotifyChanSize int

	// If set to true native logging will be used (debug, info, warn, and error
	// logs). If set to false (default) no standard logging will be done, but
	// the same type of information will be provided on the notification
	// channel, accessible with Lyproxify.NotifyChannel().
	Log bool
}

// HookConfig enables a client to inject custom logic into the conversion
// processing, such as record enrichment or merging of auxiliary per-patient
// data, when the declarative mapping options are not sufficient.
type HookConfig struct {
	PreMapHookFunc entity.PreMapHookFunc
}

// NewConfig returns an initialized Config struct, required for New().
// With this config applicable source/sink extractors/loaders can be
// registered before calling New().
func NewConfig() *Config {
	return &Config{
		Ops:        OpsConfig{NotifyChanSize: defaultNotifyChanSize},
		extractors: make(entity.ExtractorFactories),
		loaders:    make(entity.LoaderFactories),
	}
}

// RegisterLoaderType is used to prepare config to make this particular
// Sink/Loader type available for dataset specs to use. This can only be done
// after a NewConfig() and prior to creating the API instance with New().
func (c *Config) RegisterLoaderType(loaderFactory entity.LoaderFactory) error {
	if _, ok := entity.ReservedEntityNames[loaderFactory.SinkId()]; ok {
		return ErrInvalidEntityId
	}
	c.loaders[loaderFactory.SinkId()] = loaderFactory
	return nil
}

// RegisterExtractorType is used to prepare config to make this particular
// Source/Extractor type available for dataset specs to use. This can only be
// done after a NewConfig() and prior to creating the API instance with New().
func (c *Config) RegisterExtractorType(extractorFactory entity.ExtractorFactory) error {
	if _, ok := entity.ReservedEntityNames[extractorFactory.SourceId()]; ok {
		return ErrInvalidEntityId
	}
	c.extractors[extractorFactory.SourceId()] = extractorFactory
	return nil
}

func preProcessConfig(config *Config, notifyChan entity.NotifyChan) service.Config {
	return service.Config{
		NotifyChan:     notifyChan,
		Log:            config.Ops.Log,
		PreMapHookFunc: config.Hooks.PreMapHookFunc,
		Extractors:     config.extractors,
		Loaders:        config.loaders,
	}
}

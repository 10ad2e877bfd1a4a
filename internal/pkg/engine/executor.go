// Package engine executes dataset conversion runs: Source to Transform to
// Sink, as specified by a single dataset spec.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/entity/transform"
	"github.com/lycosystem/lyproxify/pkg/notify"
	"github.com/teltech/logger"
)

var (
	ErrHookError         = errors.New("pre-map hook reported an error")
	ErrHookInvalidAction = errors.New("pre-map hook returned invalid action value")
)

type Config struct {
	NotifyChan     entity.NotifyChan
	Log            bool
	PreMapHookFunc entity.PreMapHookFunc
}

// Executor operates one conversion run of one dataset, driving the extractor
// and feeding each raw record through the pre-map hook, the row transformer
// and the sink loader. A new Executor is created for every run; it is not
// reused.
type Executor struct {
	config      Config
	spec        *entity.Spec
	id          string
	extractor   entity.Extractor
	transformer *transform.Transformer
	loader      entity.Loader
	notifier    *notify.Notifier

	metrics      entity.Metrics
	excludedRows []int
	resourceId   string
	runErr       error
}

func NewExecutor(
	config Config,
	spec *entity.Spec,
	id string,
	extractor entity.Extractor,
	transformer *transform.Transformer,
	loader entity.Loader) *Executor {

	e := &Executor{
		config:      config,
		spec:        spec,
		id:          id,
		extractor:   extractor,
		transformer: transformer,
		loader:      loader,
	}
	if !e.valid() {
		return nil
	}

	var log *logger.Log
	if config.Log {
		log = logger.New()
	}
	e.notifier = notify.New(config.NotifyChan, log, 2, "executor", e.id, spec.Id())
	return e
}

func (e *Executor) valid() bool {
	return e.spec != nil &&
		e.extractor != nil &&
		e.transformer != nil &&
		e.loader != nil
}

func (e *Executor) Dataset() string {
	return e.spec.Id()
}

// Run performs the conversion run. The loader is shut down exactly once when
// the run ends, also on failed runs. The returned RunResult is valid on
// success and on early shutdown via a hook; on error it holds the metrics
// gathered up to the failure.
func (e *Executor) Run(ctx context.Context) (entity.RunResult, error) {

	e.notifier.Notify(entity.NotifyLevelInfo, "Starting conversion run")

	err := e.extract(ctx)
	if shutdownErr := e.loader.Shutdown(); shutdownErr != nil && err == nil {
		err = fmt.Errorf("sink shutdown failed: %v", shutdownErr)
	}

	result := entity.RunResult{
		Dataset:      e.spec.Id(),
		ResourceId:   e.resourceId,
		Metrics:      e.metrics,
		ExcludedRows: e.excludedRows,
	}

	if err != nil {
		e.notifier.Notify(entity.NotifyLevelError, "Conversion run failed: %v", err)
		return result, err
	}
	e.notifier.Notify(entity.NotifyLevelInfo,
		"Conversion run finished, extracted: %d, excluded: %d, loaded: %d",
		result.Metrics.RowsExtracted, result.Metrics.RowsExcluded, result.Metrics.RowsLoaded)
	return result, nil
}

func (e *Executor) extract(ctx context.Context) (err error) {
	// Protection against badly written extractor/source plugins
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic (%v) during extraction for dataset %s", r, e.spec.Id())
		}
	}()

	if err = e.extractor.Extract(ctx, e.ProcessRecord); err != nil {
		return err
	}
	return e.runErr
}

// ProcessRecord is called by the Extractor for each record extracted from the
// raw source. This design is chosen instead of a channel based one so that the
// extractor observes the processing outcome of every record and can stop on
// first failure with nothing in flight.
func (e *Executor) ProcessRecord(ctx context.Context, record entity.Record) entity.RecordProcessingResult {

	e.metrics.RowsExtracted++
	if e.metrics.RowsExtracted%int64(e.spec.Ops.RowLogInterval) == 0 {
		e.notifier.Notify(entity.NotifyLevelInfo, "[metric] rows extracted: %d, loaded in sink: %d",
			e.metrics.RowsExtracted, e.metrics.RowsLoaded)
	}

	if e.config.PreMapHookFunc != nil {
		switch action := e.config.PreMapHookFunc(ctx, e.spec, &record); action {
		case entity.HookActionProceed:
		case entity.HookActionSkip:
			return entity.RecordProcessingResult{Status: entity.ExecutorStatusSuccessful}
		case entity.HookActionShutdown:
			return entity.RecordProcessingResult{Status: entity.ExecutorStatusShutdown}
		case entity.HookActionError:
			e.runErr = ErrHookError
			return entity.RecordProcessingResult{Status: entity.ExecutorStatusError, Error: ErrHookError}
		default:
			e.runErr = fmt.Errorf("%w: %v", ErrHookInvalidAction, action)
			return entity.RecordProcessingResult{Status: entity.ExecutorStatusError, Error: e.runErr}
		}
	}

	var warnings []string
	start := time.Now().UnixMicro()
	row, err := e.transformer.Transform(ctx, record, &warnings)
	e.metrics.ConvertTimeMicros += time.Now().UnixMicro() - start

	for _, warning := range warnings {
		e.notifier.Notify(entity.NotifyLevelWarn, "%s", warning)
	}
	if err != nil {
		e.runErr = err
		return entity.RecordProcessingResult{Status: entity.ExecutorStatusError, Error: err}
	}
	if row == nil {
		e.metrics.RowsExcluded++
		e.excludedRows = append(e.excludedRows, record.Index)
		return entity.RecordProcessingResult{Status: entity.ExecutorStatusSuccessful}
	}
	e.metrics.RowsConverted++

	if e.spec.Ops.LogRowData {
		e.notifier.Notify(entity.NotifyLevelDebug, "Record transformed into: %s", row.String())
	}

	start = time.Now().UnixMicro()
	resourceId, err := e.loader.Load(ctx, row)
	e.metrics.LoadTimeMicros += time.Now().UnixMicro() - start
	if err != nil {
		e.runErr = fmt.Errorf("sink rejected row %d: %v", record.Index, err)
		return entity.RecordProcessingResult{Status: entity.ExecutorStatusError, Error: e.runErr}
	}
	e.resourceId = resourceId
	e.metrics.RowsLoaded++

	return entity.RecordProcessingResult{Status: entity.ExecutorStatusSuccessful}
}

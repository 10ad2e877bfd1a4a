// Package void provides a sink that discards all converted records. It is used
// for dry-runs validating a dataset spec against a raw extract without writing
// any output, and as a controllable sink in engine tests.
package void

import (
	"context"
	"errors"
	"math"
	"strconv"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/teltech/logger"
)

var log *logger.Log

func init() {
	log = logger.New()
}

type loaderFactory struct{}

func NewLoaderFactory() entity.LoaderFactory {
	return &loaderFactory{}
}

func (lf *loaderFactory) SinkId() string {
	return string(entity.EntityVoid)
}

func (lf *loaderFactory) NewLoader(ctx context.Context, c entity.Config) (entity.Loader, error) {
	return newLoader(c)
}

func (lf *loaderFactory) Close() error {
	return nil
}

type loader struct {
	spec         *entity.Spec
	props        map[string]string
	maxErrors    int
	numberErrors int
}

func newLoader(c entity.Config) (*loader, error) {
	if c.Spec == nil {
		return nil, errors.New("no spec provided")
	}
	l := &loader{
		spec:      c.Spec,
		props:     make(map[string]string),
		maxErrors: math.MaxInt32,
	}
	if c.Spec.Sink.Config != nil {
		for _, prop := range c.Spec.Sink.Config.Properties {
			l.props[prop.Key] = prop.Value
		}
		if value, ok := l.props["maxErrors"]; ok {
			l.maxErrors, _ = strconv.Atoi(value)
		}
	}
	return l, nil
}

func (l *loader) Load(ctx context.Context, row *entity.Transformed) (string, error) {

	var err error
	resourceId := "<noResourceId>"

	if row == nil {
		return resourceId, errors.New("load called without data (row == nil)")
	}

	if l.spec.Ops.LogRowData || l.props["logRowData"] == "true" {
		log.Infof("received standardized record in void.loader: %s", row.String())
	}

	if _, ok := l.props["simulateError"]; ok {
		if l.numberErrors < l.maxErrors {
			l.numberErrors++
			err = errors.New("void loader simulating error")
		}
	}

	return resourceId, err
}

func (l *loader) Shutdown() error {
	return nil
}

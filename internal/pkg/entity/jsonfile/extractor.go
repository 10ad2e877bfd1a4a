// Package jsonfile provides the native source connector for JSON exports, as
// produced by some clinical information systems instead of CSV. The extract is
// a document holding an array of record objects; nested object fields are
// addressed from the mapping with dot-joined names, e.g. "tumor.hpv".
//
// JSON is a sparse format: a field absent from a record object is an empty
// cell, not a schema mismatch.
package jsonfile

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/tidwall/gjson"
)

type extractorFactory struct{}

func NewExtractorFactory() entity.ExtractorFactory {
	return &extractorFactory{}
}

func (ef *extractorFactory) SourceId() string {
	return string(entity.EntityJSONFile)
}

func (ef *extractorFactory) NewExtractor(ctx context.Context, c entity.Config) (entity.Extractor, error) {
	return newExtractor(c)
}

func (ef *extractorFactory) Close() error {
	return nil
}

type extractor struct {
	spec        *entity.Spec
	path        string
	recordsPath string
}

func newExtractor(c entity.Config) (*extractor, error) {
	if c.Spec == nil {
		return nil, errors.New("no spec provided")
	}
	if c.Spec.Source.Config.Path == "" {
		return nil, fmt.Errorf("no source path provided in spec %s", c.Spec.Id())
	}
	return &extractor{
		spec:        c.Spec,
		path:        c.Spec.Source.Config.Path,
		recordsPath: c.Spec.Source.Config.RecordsPath,
	}, nil
}

func (e *extractor) Extract(ctx context.Context, proc entity.ProcessRecordFunc) error {

	data, err := os.ReadFile(e.path)
	if err != nil {
		return fmt.Errorf("could not read raw extract: %v", err)
	}
	if !gjson.ValidBytes(data) {
		return fmt.Errorf("raw extract %s is not valid JSON", e.path)
	}

	records := gjson.ParseBytes(data)
	if e.recordsPath != "" {
		records = records.Get(e.recordsPath)
	}
	if !records.IsArray() {
		return fmt.Errorf("no record array found in %s (recordsPath: %q)", e.path, e.recordsPath)
	}

	var procErr error
	index := 0
	records.ForEach(func(_, record gjson.Result) bool {
		if err := ctx.Err(); err != nil {
			procErr = err
			return false
		}

		fields := make(map[string]string)
		flatten("", record, fields)

		result := proc(ctx, entity.Record{Index: index, Fields: fields})
		index++
		switch result.Status {
		case entity.ExecutorStatusSuccessful:
			return true
		case entity.ExecutorStatusShutdown:
			return false
		default:
			procErr = result.Error
			return false
		}
	})
	return procErr
}

// flatten maps a record object to cells, dot-joining the keys of nested
// objects. JSON null becomes an empty cell, scalars their plain string form.
func flatten(prefix string, value gjson.Result, fields map[string]string) {
	if !value.IsObject() {
		if value.Type == gjson.Null {
			fields[prefix] = ""
		} else {
			fields[prefix] = value.String()
		}
		return
	}
	value.ForEach(func(key, child gjson.Result) bool {
		name := key.String()
		if prefix != "" {
			name = prefix + "." + name
		}
		flatten(name, child, fields)
		return true
	})
}

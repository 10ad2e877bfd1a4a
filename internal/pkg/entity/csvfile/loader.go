package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/lycosystem/lyproxify/entity"
)

type loaderFactory struct{}

func NewLoaderFactory() entity.LoaderFactory {
	return &loaderFactory{}
}

func (lf *loaderFactory) SinkId() string {
	return string(entity.EntityCSVFile)
}

func (lf *loaderFactory) NewLoader(ctx context.Context, c entity.Config) (entity.Loader, error) {
	return newLoader(c)
}

func (lf *loaderFactory) Close() error {
	return nil
}

// loader writes the standardized table to a CSV file: three header rows built
// from the mapping tree, followed by one row per converted record in source
// order. The file is created eagerly so that path problems fail the run before
// any conversion work is done.
type loader struct {
	path   string
	paths  []entity.ColPath
	file   *os.File
	writer *csv.Writer
}

func newLoader(c entity.Config) (*loader, error) {
	if c.Spec == nil {
		return nil, errors.New("no spec provided")
	}
	path := c.Spec.Sink.Config.Path
	if path == "" {
		return nil, fmt.Errorf("no sink path provided in spec %s", c.Spec.Id())
	}
	comma, err := delimiterRune(c.Spec.Sink.Config.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("spec %s: %v", c.Spec.Id(), err)
	}

	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("could not create output table: %v", err)
	}
	writer := csv.NewWriter(file)
	writer.Comma = comma

	l := &loader{
		path:   path,
		paths:  c.Spec.ColumnPaths(),
		file:   file,
		writer: writer,
	}
	if err := l.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	return l, nil
}

func (l *loader) writeHeader() error {
	for level := 0; level < 3; level++ {
		row := make([]string, len(l.paths))
		for i, path := range l.paths {
			row[i] = path[level]
		}
		if err := l.writer.Write(row); err != nil {
			return fmt.Errorf("could not write header to %s: %v", l.path, err)
		}
	}
	return nil
}

func (l *loader) Load(ctx context.Context, row *entity.Transformed) (string, error) {
	if row == nil {
		return l.path, errors.New("load called without data (row == nil)")
	}
	out := make([]string, len(l.paths))
	for i, path := range l.paths {
		out[i] = formatValue(row.Get(path))
	}
	if err := l.writer.Write(out); err != nil {
		return l.path, fmt.Errorf("could not write row to %s: %v", l.path, err)
	}
	return l.path, nil
}

func (l *loader) Shutdown() error {
	l.writer.Flush()
	err := l.writer.Error()
	if closeErr := l.file.Close(); err == nil {
		err = closeErr
	}
	return err
}

// formatValue serializes one typed value to its output cell. Missing values
// become empty cells and bools the capitalized "True"/"False", so that columns
// round-trip through the robust bool conversion unchanged.
func formatValue(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case bool:
		if v {
			return "True"
		}
		return "False"
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Package csvfile provides the native source/sink connector for CSV extracts
// and standardized CSV output tables.
//
// The extractor reads raw hospital extracts with either a single header row or
// three header rows (extracts already carrying section/group/field levels); the
// levels of a multi-level column are joined with "|" to form the raw column
// name referenced from the mapping. The loader writes the standardized table
// with its fixed three-level header.
package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/lycosystem/lyproxify/entity"
	"github.com/lycosystem/lyproxify/pkg/notify"
	"github.com/teltech/logger"
)

var log *logger.Log

func init() {
	log = logger.New()
}

// multiLevelSeparator joins the levels of a multi-level raw column name.
const multiLevelSeparator = "|"

type extractorFactory struct{}

func NewExtractorFactory() entity.ExtractorFactory {
	return &extractorFactory{}
}

func (ef *extractorFactory) SourceId() string {
	return string(entity.EntityCSVFile)
}

func (ef *extractorFactory) NewExtractor(ctx context.Context, c entity.Config) (entity.Extractor, error) {
	return newExtractor(c)
}

func (ef *extractorFactory) Close() error {
	return nil
}

type extractor struct {
	spec     *entity.Spec
	notifier *notify.Notifier
	path     string
	comma    rune
}

func newExtractor(c entity.Config) (*extractor, error) {
	if c.Spec == nil {
		return nil, errors.New("no spec provided")
	}
	path := c.Spec.Source.Config.Path
	if path == "" {
		return nil, fmt.Errorf("no source path provided in spec %s", c.Spec.Id())
	}
	comma, err := delimiterRune(c.Spec.Source.Config.Delimiter)
	if err != nil {
		return nil, fmt.Errorf("spec %s: %v", c.Spec.Id(), err)
	}

	var lg *logger.Log
	if c.Log {
		lg = log
	}
	return &extractor{
		spec:     c.Spec,
		notifier: notify.New(c.NotifyChan, lg, 2, "csvfile.extractor", c.ID, c.Spec.Id()),
		path:     path,
		comma:    comma,
	}, nil
}

// Extract reads the raw extract row by row and reports each row to proc. The
// full set of mapping-referenced columns is verified against the header before
// the first record is reported; a missing column means the spec is out of sync
// with the extract and fails the run with entity.ErrSchemaMismatch.
func (e *extractor) Extract(ctx context.Context, proc entity.ProcessRecordFunc) error {

	file, err := os.Open(e.path)
	if err != nil {
		return fmt.Errorf("could not open raw extract: %v", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.Comma = e.comma

	header, err := readHeader(reader, e.spec.Source.Config.HeaderRows)
	if err != nil {
		return fmt.Errorf("invalid header in %s: %v", e.path, err)
	}
	if err := verifyColumns(e.spec, header); err != nil {
		return err
	}

	index := 0
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("could not read row %d in %s: %v", index, e.path, err)
		}

		fields := make(map[string]string, len(header))
		for i, col := range header {
			if i < len(row) {
				fields[col] = row[i]
			}
		}

		result := proc(ctx, entity.Record{Index: index, Fields: fields})
		switch result.Status {
		case entity.ExecutorStatusSuccessful:
		case entity.ExecutorStatusShutdown:
			return nil
		default:
			return result.Error
		}
		index++
	}

	e.notifier.Notify(entity.NotifyLevelDebug, "extracted %d rows from %s", index, e.path)
	return nil
}

// readHeader consumes the header rows and returns the effective raw column
// names. With a multi-level header the non-empty levels of each column are
// joined with "|"; repeated upper levels left blank by spreadsheet exports
// inherit the value to their left, like pandas writes them.
func readHeader(reader *csv.Reader, headerRows int) ([]string, error) {
	levels := make([][]string, 0, headerRows)
	for i := 0; i < headerRows; i++ {
		row, err := reader.Read()
		if err != nil {
			return nil, err
		}
		levels = append(levels, row)
	}
	if len(levels) == 0 {
		return nil, errors.New("no header rows")
	}
	if len(levels) == 1 {
		return levels[0], nil
	}

	for _, level := range levels[:len(levels)-1] {
		carryForward(level)
	}

	header := make([]string, len(levels[0]))
	for i := range levels[0] {
		var parts []string
		for _, level := range levels {
			if i >= len(level) {
				continue
			}
			if name := strings.TrimSpace(level[i]); name != "" {
				parts = append(parts, name)
			}
		}
		header[i] = strings.Join(parts, multiLevelSeparator)
	}
	return header, nil
}

func carryForward(level []string) {
	last := ""
	for i, name := range level {
		if strings.TrimSpace(name) == "" {
			level[i] = last
		} else {
			last = name
		}
	}
}

func verifyColumns(spec *entity.Spec, header []string) error {
	present := make(map[string]bool, len(header))
	for _, col := range header {
		present[col] = true
	}
	var missing []string
	for _, col := range spec.ReferencedColumns() {
		if !present[col] {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", entity.ErrSchemaMismatch, strings.Join(missing, ", "))
	}
	return nil
}

func delimiterRune(delimiter string) (rune, error) {
	if utf8.RuneCountInString(delimiter) != 1 {
		return 0, fmt.Errorf("invalid delimiter %q", delimiter)
	}
	r, _ := utf8.DecodeRuneInString(delimiter)
	return r, nil
}

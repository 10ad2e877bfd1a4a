// Package postproc holds post-conversion processing of standardized tables:
// assigning unique patient IDs and shifting dates for anonymization. Both
// operate on an already converted data.csv rather than during a run, matching
// how curators apply them (IDs are assigned once the final row count is known,
// date shifts are applied right before publication).
package postproc

import (
	"encoding/csv"
	"fmt"
	"os"

	"github.com/lycosystem/lyproxify/entity"
)

// Table is an in-memory standardized table: the three-level column paths plus
// the data rows as serialized cells.
type Table struct {
	Paths []entity.ColPath
	Rows  [][]string
}

// LoadTable reads a standardized table from a CSV file with its three header
// rows.
func LoadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open table: %v", err)
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("could not parse table %s: %v", path, err)
	}
	if len(records) < 3 {
		return nil, fmt.Errorf("table %s has no three-level header", path)
	}

	paths := make([]entity.ColPath, len(records[0]))
	for i := range records[0] {
		paths[i] = entity.ColPath{records[0][i], records[1][i], records[2][i]}
	}
	return &Table{Paths: paths, Rows: records[3:]}, nil
}

// Save writes the table back to a CSV file, headers first.
func (t *Table) Save(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("could not create table: %v", err)
	}
	writer := csv.NewWriter(file)

	for level := 0; level < 3; level++ {
		header := make([]string, len(t.Paths))
		for i, p := range t.Paths {
			header[i] = p[level]
		}
		if err := writer.Write(header); err != nil {
			file.Close()
			return err
		}
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			file.Close()
			return err
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		file.Close()
		return err
	}
	return file.Close()
}

// Column returns the index of the given column path, or -1.
func (t *Table) Column(path entity.ColPath) int {
	for i, p := range t.Paths {
		if p == path {
			return i
		}
	}
	return -1
}

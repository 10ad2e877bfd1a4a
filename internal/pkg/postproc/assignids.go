package postproc

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/lycosystem/lyproxify/entity"
)

var idColumn = entity.ColPath{"patient", "core", "id"}

var datasetDirRegexp = regexp.MustCompile(`^([1-9][0-9]{3})-([a-z]+)-([a-z\-]+)$`)

// AssignIDs fills the patient ID column with unique IDs of the form
// <year>-<INSTITUTION><suffix>-<number>, derived from the dataset name. The ID
// column is always the leftmost column afterwards, created or moved there as
// needed. Numbers run from start and are zero-padded to the width needed for
// the row count, so a republished dataset with the same row count keeps the
// same IDs.
func AssignIDs(table *Table, dataset string, start int, suffix string) error {
	match := datasetDirRegexp.FindStringSubmatch(dataset)
	if match == nil {
		return fmt.Errorf("%q is not a valid dataset name", dataset)
	}
	year, institution := match[1], match[2]

	ids := generateIDs(year, institution, len(table.Rows), start, suffix)

	col := table.Column(idColumn)
	if col != 0 {
		removeColumn(table, col)
		table.Paths = append([]entity.ColPath{idColumn}, table.Paths...)
		for i := range table.Rows {
			table.Rows[i] = append([]string{""}, table.Rows[i]...)
		}
	}
	for i := range table.Rows {
		table.Rows[i][0] = ids[i]
	}
	return nil
}

// removeColumn drops column col from the table. A negative col is a no-op.
func removeColumn(table *Table, col int) {
	if col < 0 {
		return
	}
	table.Paths = append(table.Paths[:col], table.Paths[col+1:]...)
	for i, row := range table.Rows {
		if col < len(row) {
			table.Rows[i] = append(row[:col], row[col+1:]...)
		}
	}
}

func generateIDs(year, institution string, num, start int, suffix string) []string {
	base := fmt.Sprintf("%s-%s%s", year, strings.ToUpper(institution), suffix)
	width := int(math.Ceil(math.Log10(float64(num))))

	ids := make([]string, 0, num)
	for i := start; i < start+num; i++ {
		ids = append(ids, fmt.Sprintf("%s-%0*d", base, width, i))
	}
	return ids
}

package postproc

import (
	"fmt"
	"math/rand"
	"regexp"
	"time"
)

var isoDateRegexp = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

const isoDateFormat = "2006-01-02"

// ShiftDates shifts all dates in every row of the table by a random amount of
// days in [-30, 30), drawn per row from a seeded generator, so that all dates
// of one patient keep their relative distances. This is intended for
// anonymization before publication; keep the seed out of any published
// pipeline, otherwise the shift is recoverable.
func ShiftDates(table *Table, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	shifts := make([]int, len(table.Rows))
	for i := range shifts {
		shifts[i] = rng.Intn(60) - 30
	}

	for col := range table.Paths {
		if !columnHasDates(table, col) {
			continue
		}
		for i, row := range table.Rows {
			if col >= len(row) || !isoDateRegexp.MatchString(row[col]) {
				continue
			}
			date, err := time.Parse(isoDateFormat, row[col])
			if err != nil {
				return fmt.Errorf("row %d, column %s: %v", i, table.Paths[col], err)
			}
			row[col] = date.AddDate(0, 0, shifts[i]).Format(isoDateFormat)
		}
	}
	return nil
}

// columnHasDates reports whether any cell in the column looks like an ISO
// date. Only such columns are shifted, leaving e.g. free-text columns that
// merely mention a date-like token untouched at the column level.
func columnHasDates(table *Table, col int) bool {
	for _, row := range table.Rows {
		if col < len(row) && isoDateRegexp.MatchString(row[col]) {
			return true
		}
	}
	return false
}

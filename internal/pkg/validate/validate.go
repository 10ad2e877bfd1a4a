// Package validate checks converted standardized tables against the lyDATA
// column conventions: value domains for the known patient and tumor columns,
// boolean and date serialization, and required cells. It complements the spec
// validation at registration time, which cannot catch bad values produced from
// unexpected raw data.
package validate

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/lycosystem/lyproxify/internal/pkg/postproc"
)

var (
	sexRegexp         = regexp.MustCompile(`^(male|female)$`)
	isoDateRegexp     = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	subsiteRegexp     = regexp.MustCompile(`^C\d{2}(\.\d)?$`)
	stagePrefixRegexp = regexp.MustCompile(`^(p|c)$`)
)

// rule is the value check of one known output column. Rules are matched on the
// field level of the column path, since the group level differs between
// datasets. Columns without a rule are accepted as-is.
type rule struct {
	// required rejects empty cells.
	required bool
	check    func(cell string) error
}

var rules = map[string]rule{
	"institution":     {required: true, check: checkAny},
	"sex":             {required: true, check: checkMatch(sexRegexp, "male or female")},
	"age":             {required: true, check: checkInt(0, 130)},
	"diagnose_date":   {required: true, check: checkMatch(isoDateRegexp, "an ISO date")},
	"weight":          {check: checkPositiveFloat},
	"volume":          {check: checkPositiveFloat},
	"alcohol_abuse":   {check: checkBool},
	"nicotine_abuse":  {check: checkBool},
	"hpv_status":      {check: checkBool},
	"neck_dissection": {check: checkBool},
	"central":         {check: checkBool},
	"extension":       {check: checkBool},
	"tnm_edition":     {required: true, check: checkInt(7, 8)},
	"t_stage":         {required: true, check: checkInt(0, 4)},
	"n_stage":         {required: true, check: checkInt(0, 3)},
	"m_stage":         {check: checkInt(-1, 1)},
	"stage_prefix":    {required: true, check: checkMatch(stagePrefixRegexp, "p or c")},
	"subsite":         {required: true, check: checkMatch(subsiteRegexp, "an ICD code like C09.9")},
}

// Table checks all cells of the table and returns one error per violation,
// identifying row and column. An empty result means the table is valid.
func Table(table *postproc.Table) []error {
	var errs []error
	for col, path := range table.Paths {
		r, ok := rules[path.Field()]
		if !ok {
			continue
		}
		for i, row := range table.Rows {
			if col >= len(row) {
				continue
			}
			if err := checkCell(row[col], r); err != nil {
				errs = append(errs, fmt.Errorf("row %d, column %s: %v", i, path, err))
			}
		}
	}
	return errs
}

// File loads and checks a standardized table from disk.
func File(path string) ([]error, error) {
	table, err := postproc.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return Table(table), nil
}

func checkCell(cell string, r rule) error {
	if cell == "" {
		if r.required {
			return fmt.Errorf("required value is missing")
		}
		return nil
	}
	return r.check(cell)
}

func checkAny(string) error {
	return nil
}

func checkMatch(re *regexp.Regexp, expected string) func(string) error {
	return func(cell string) error {
		if !re.MatchString(cell) {
			return fmt.Errorf("%q is not %s", cell, expected)
		}
		return nil
	}
}

func checkInt(min, max int) func(string) error {
	return func(cell string) error {
		v, err := strconv.Atoi(cell)
		if err != nil {
			return fmt.Errorf("%q is not an integer", cell)
		}
		if v < min || v > max {
			return fmt.Errorf("%d is outside [%d, %d]", v, min, max)
		}
		return nil
	}
}

func checkBool(cell string) error {
	if cell != "True" && cell != "False" {
		return fmt.Errorf("%q is not True or False", cell)
	}
	return nil
}

func checkPositiveFloat(cell string) error {
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return fmt.Errorf("%q is not a number", cell)
	}
	if v <= 0 {
		return fmt.Errorf("%v is not positive", v)
	}
	return nil
}

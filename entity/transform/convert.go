package transform

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"
)

// ISODateFormat is the serialization format for all date values in the
// standardized output.
const ISODateFormat = "2006-01-02"

var icdCodeRegexp = regexp.MustCompile(`C[0-9]{2}(\.[0-9])?`)
var stageDigitRegexp = regexp.MustCompile(`[0-4]`)

// The conversion functions below all follow the same contract: given raw cell
// content they return a typed value, or nil when the input is missing, empty or
// unparseable. They never fail the row.

// RobustInt parses a numeric string to an integer. Float-valued strings such as
// "64.5" are not accepted here; see RobustRoundInt.
func RobustInt(entry string) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	v, err := strconv.Atoi(entry)
	if err != nil {
		return nil
	}
	return v
}

// RobustRoundInt parses integer or float-valued strings to an integer, rounding
// to the nearest. Used for age fields, where some extracts carry values like
// "64.0" computed from dates.
func RobustRoundInt(entry string) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	f, err := strconv.ParseFloat(entry, 64)
	if err != nil {
		return nil
	}
	return int(math.Round(f))
}

func RobustFloat(entry string) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	f, err := strconv.ParseFloat(entry, 64)
	if err != nil {
		return nil
	}
	return f
}

// RobustBool maps recognized truthy/falsy tokens to a bool. Numeric strings
// follow the common clinical encoding zero=false, non-zero=true. The function
// is idempotent on its own canonical output tokens "True" and "False".
func RobustBool(entry string) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	switch strings.ToLower(entry) {
	case "true", "yes", "y":
		return true
	case "false", "no", "n":
		return false
	}
	if v, err := strconv.Atoi(entry); err == nil {
		return v != 0
	}
	return nil
}

// RobustDate leniently parses a date string and returns it in ISO
// "YYYY-MM-DD" form.
func RobustDate(entry string) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	t, err := dateparse.ParseAny(entry)
	if err != nil {
		return nil
	}
	return t.Format(ISODateFormat)
}

// EarliestDate returns the chronologically earliest parseable date among the
// given cells. Cells that fail to parse are skipped, not treated as failures of
// the whole operation. The result is invariant to input order.
func EarliestDate(entries []string) any {
	earliest := ""
	for _, entry := range entries {
		date, ok := RobustDate(entry).(string)
		if !ok {
			continue
		}
		// ISO dates compare chronologically as strings.
		if earliest == "" || date < earliest {
			earliest = date
		}
	}
	if earliest == "" {
		return nil
	}
	return earliest
}

// SmallerOrNaN reports whether the value is smaller than the threshold OR
// missing. Counting missing data as "below" is the documented intent of this
// check, so callers cannot read false as known-and-above-threshold.
// A non-empty value that fails to parse yields nil.
func SmallerOrNaN(entry string, threshold int) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return true
	}
	v, err := strconv.Atoi(entry)
	if err != nil {
		return nil
	}
	return v < threshold
}

// Lookup resolves a raw code against a static code-to-vocabulary table and
// coerces the result to the field type. Codes outside the table map to nil, as
// do table entries holding an empty string. Integral numeric codes are matched
// on their canonical integer form as well, so "2.0" finds a "2" entry while
// "2.4" matches nothing.
func Lookup(entry string, table map[string]string, fieldType string) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	value, ok := table[entry]
	if !ok {
		if f, err := strconv.ParseFloat(entry, 64); err == nil && f == math.Trunc(f) {
			value, ok = table[strconv.FormatFloat(f, 'f', -1, 64)]
		}
	}
	if !ok || value == "" {
		return nil
	}
	return coerce(value, fieldType)
}

// Category extracts a TNM category as an integer from strings like "pN2+",
// "T3a" or "2b": a plain integer parses directly, otherwise the first stage
// digit is taken. Strings without a stage digit (e.g. "x") yield nil.
func Category(entry string) any {
	entry = strings.TrimSpace(entry)
	if entry == "" {
		return nil
	}
	if v, err := strconv.Atoi(entry); err == nil {
		return v
	}
	digit := stageDigitRegexp.FindString(entry)
	if digit == "" {
		return nil
	}
	v, _ := strconv.Atoi(digit)
	return v
}

// ICDSubsite extracts a tumor subsite ICD-O-3 code (e.g. "C13.2") from a raw
// cell that may carry surrounding text.
func ICDSubsite(entry string) any {
	match := icdCodeRegexp.FindString(entry)
	if match == "" {
		return nil
	}
	return match
}

// RecurrenceDate returns the event date only when the companion flag cell
// reports that the event occurred; a date alone is not sufficient. A
// flag/date combination that contradicts itself yields nil plus a warning for
// the caller to surface.
func RecurrenceDate(flag, date string) (any, string) {
	occurred, flagKnown := RobustBool(flag).(bool)
	parsed, hasDate := RobustDate(date).(string)

	if flagKnown && occurred {
		if !hasDate {
			return nil, fmt.Sprintf("recurrence reported in %q but no valid date in %q", flag, date)
		}
		return parsed, ""
	}
	if hasDate {
		return nil, fmt.Sprintf("recurrence date %q present but no recurrence reported", parsed)
	}
	return nil, ""
}

// coerce converts a lookup/default token to the typed value of the field.
func coerce(value string, fieldType string) any {
	switch fieldType {
	case "int":
		return RobustInt(value)
	case "float":
		return RobustFloat(value)
	case "bool":
		return RobustBool(value)
	case "date":
		return RobustDate(value)
	default:
		return value
	}
}

// IDCounter produces sequential row IDs of the form <prefix><n> with n
// zero-padded to the configured width. It is owned by a single Transformer and
// thereby scoped to one conversion run; given a fixed start value and call
// order its output is deterministic.
type IDCounter struct {
	prefix string
	width  int
	next   int
}

func NewIDCounter(prefix string, start, width int) *IDCounter {
	return &IDCounter{prefix: prefix, width: width, next: start}
}

func (c *IDCounter) Next() string {
	id := fmt.Sprintf("%s%0*d", c.prefix, c.width, c.next)
	c.next++
	return id
}

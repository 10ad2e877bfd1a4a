package entity

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// General defaults applied by EnsureValidDefaults().
const (
	DefaultHeaderRows     = 1
	DefaultDelimiter      = ","
	DefaultRowLogInterval = 500
	DefaultIDWidth        = 4
)

// Field value types. A field with an omitted type is treated as FieldTypeStr.
const (
	FieldTypeStr   = "str"
	FieldTypeInt   = "int"
	FieldTypeFloat = "float"
	FieldTypeBool  = "bool"
	FieldTypeDate  = "date"
)

// Dataset names follow the lydata convention <year>-<institution>-<subsites>,
// e.g. "2021-clb-oropharynx".
var datasetNameRegexp = regexp.MustCompile(`^[1-9][0-9]{3}-[a-z]+-[a-z\-]+$`)

// Spec describes the full conversion of one dataset: where the raw records come
// from (Source), which rows to drop and how to build each standardized column
// (Mapping), and where the standardized table goes (Sink).
// Specs are static once registered; a registered dataset is upgraded by
// registering a spec with a higher version number.
type Spec struct {
	// Main metadata (required). Dataset must follow the <year>-<institution>-<subsites>
	// naming convention and is the unique dataset ID.
	Dataset     string `json:"dataset"`
	Description string `json:"description"`
	Version     int    `json:"version"`

	// Institution is the full clinic name, e.g. "University Medical Center Groningen".
	Institution string `json:"institution,omitempty"`

	// Operational config (optional)
	Disabled bool `json:"disabled"`
	Ops      Ops  `json:"ops"`

	// Conversion config (required)
	Source  Source  `json:"source"`
	Mapping Mapping `json:"mapping"`
	Sink    Sink    `json:"sink"`
}

// NewSpec creates a new Spec from JSON and validates it both against the dataset
// spec JSON schema and with the semantic checks in Validate().
func NewSpec(specData []byte) (*Spec, error) {
	var spec Spec
	if len(specData) == 0 {
		return nil, errors.New("no spec data provided")
	}

	if err := validateRawJson(specData); err != nil {
		return nil, err
	}

	err := json.Unmarshal(specData, &spec)
	if err == nil {
		spec.EnsureValidDefaults()
		err = spec.Validate()
	}
	return &spec, err
}

func (s *Spec) Id() string {
	return s.Dataset
}

func (s *Spec) IsDisabled() bool {
	return s.Disabled
}

func (s *Spec) EnsureValidDefaults() {
	if s.Source.Config.HeaderRows <= 0 {
		s.Source.Config.HeaderRows = DefaultHeaderRows
	}
	if s.Source.Config.Delimiter == "" {
		s.Source.Config.Delimiter = DefaultDelimiter
	}
	if s.Sink.Config == nil {
		s.Sink.Config = &SinkConfig{}
	}
	if s.Sink.Config.Delimiter == "" {
		s.Sink.Config.Delimiter = DefaultDelimiter
	}
	if s.Ops.RowLogInterval <= 0 {
		s.Ops.RowLogInterval = DefaultRowLogInterval
	}
	for i := range s.Mapping.Sections {
		section := &s.Mapping.Sections[i]
		for j := range section.Groups {
			group := &section.Groups[j]
			for k := range group.Fields {
				field := &group.Fields[k]
				if field.Type == "" {
					field.Type = FieldTypeStr
				}
				if field.Map != nil && field.Map.Name == MapFuncID {
					if field.Map.Width <= 0 {
						field.Map.Width = DefaultIDWidth
					}
					if field.Map.Start <= 0 {
						field.Map.Start = 1
					}
				}
			}
		}
	}
}

// Validate performs the semantic checks that the JSON schema cannot express.
// Schema validation itself is handled by NewSpec() using validateRawJson().
func (s *Spec) Validate() error {
	if !datasetNameRegexp.MatchString(s.Dataset) {
		return fmt.Errorf("dataset name %q does not match <year>-<institution>-<subsites>", s.Dataset)
	}
	return s.Mapping.Validate()
}

func (s *Spec) JSON() []byte {
	specData, _ := json.Marshal(s)
	return specData
}

// ColumnPaths returns the ordered three-level output column paths, as they will
// appear left to right in the converted table.
func (s *Spec) ColumnPaths() []ColPath {
	var paths []ColPath
	for _, section := range s.Mapping.Sections {
		for _, group := range section.Groups {
			for _, field := range group.Fields {
				paths = append(paths, ColPath{section.Name, group.Name, field.Name})
			}
		}
	}
	return paths
}

// ReferencedColumns returns the deduplicated raw column names the mapping reads
// from, including columns used by exclusion rules. A raw file lacking any of
// these is a configuration error (spec out of sync with the extract).
func (s *Spec) ReferencedColumns() []string {
	seen := make(map[string]bool)
	var cols []string
	add := func(col string) {
		if col != "" && !seen[col] {
			seen[col] = true
			cols = append(cols, col)
		}
	}
	for _, rule := range s.Mapping.ExcludeRowsWith {
		add(rule.Column)
	}
	for _, section := range s.Mapping.Sections {
		for _, group := range section.Groups {
			for _, field := range group.Fields {
				for _, col := range field.Columns {
					add(col)
				}
			}
		}
	}
	return cols
}

type Ops struct {
	// LogRowData enables granular row level debugging for a single dataset
	// conversion without changing the global log config.
	LogRowData bool `json:"logRowData"`

	// RowLogInterval is the number of rows between progress notifications.
	// If omitted it is set to DefaultRowLogInterval.
	RowLogInterval int `json:"rowLogInterval,omitempty"`

	// CustomProperties can be used to configure custom source/sink connectors.
	CustomProperties map[string]string `json:"customProperties,omitempty"`
}

// Source spec
type Source struct {
	Type   EntityType   `json:"type"`
	Config SourceConfig `json:"config"`
}

type SourceConfig struct {
	// Path to the raw extract, e.g. "raw.csv". Interpretation is up to the
	// extractor type.
	Path string `json:"path,omitempty"`

	// HeaderRows is the number of header rows in a CSV extract (1 for flat
	// exports, 3 for extracts already carrying a multi-level header). The
	// levels of a multi-level column name are joined with "|" to form the raw
	// column name referenced from the mapping.
	HeaderRows int `json:"headerRows,omitempty"`

	Delimiter string `json:"delimiter,omitempty"`

	// RecordsPath is a gjson path to the array of record objects in a JSON
	// extract. If empty the document root is assumed to be the array.
	RecordsPath string `json:"recordsPath,omitempty"`

	// Properties holds direct low-level connector properties.
	Properties []Property `json:"properties,omitempty"`
}

// Sink spec
type Sink struct {
	Type   EntityType  `json:"type"`
	Config *SinkConfig `json:"config,omitempty"`
}

type SinkConfig struct {
	// Path of the standardized output table, e.g. "data.csv".
	Path string `json:"path,omitempty"`

	Delimiter string `json:"delimiter,omitempty"`

	Properties []Property `json:"properties,omitempty"`
}

type Property struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Mapping is the declarative raw-to-standard transformation: an ordered set of
// exclusion rules followed by the three-level output column tree.
type Mapping struct {
	// ExcludeRowsWith is checked first, before any field mapping. If multiple
	// rules are provided they are handled as OR type of filters: any matching
	// rule drops the whole row.
	ExcludeRowsWith []ExcludeRowsWith `json:"excludeRowsWith,omitempty"`

	// Sections are the top-level output headers (e.g. "patient", "tumor").
	Sections []Section `json:"sections"`
}

func (m *Mapping) Validate() error {
	if len(m.Sections) == 0 {
		return errors.New("mapping has no sections")
	}
	for _, rule := range m.ExcludeRowsWith {
		if rule.Column == "" {
			return errors.New("exclusion rule without a column")
		}
	}
	for _, section := range m.Sections {
		if err := section.validate(); err != nil {
			return err
		}
	}
	return nil
}

// ExcludeRowsWith specifies rows to be dropped entirely, without further
// processing. If the raw value in Column matches any entry in Values the row is
// excluded (blacklisting). If Values is empty and ValuesNotIn is provided, the
// row is excluded when the value matches none of its entries (whitelisting).
// If ValueIsEmpty is set to true, a missing or empty cell excludes the row.
// A missing raw column is treated as an empty value.
type ExcludeRowsWith struct {
	Column       string   `json:"column"`
	Values       []string `json:"values,omitempty"`
	ValuesNotIn  []string `json:"valuesNotIn,omitempty"`
	ValueIsEmpty *bool    `json:"valueIsEmpty,omitempty"`
}

// Section is a top-level output header holding one or more groups.
// Description strings on sections, groups and fields are a documentation
// side-channel for README generation; they never influence conversion.
type Section struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Groups      []Group `json:"groups"`
}

func (s *Section) validate() error {
	if s.Name == "" {
		return errors.New("section without a name")
	}
	if len(s.Groups) == 0 {
		return fmt.Errorf("section %q has no groups", s.Name)
	}
	for _, group := range s.Groups {
		if err := group.validate(s.Name); err != nil {
			return err
		}
	}
	return nil
}

// Group is the mid-level output header, e.g. "core", "ipsi" or "contra".
type Group struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Fields      []Field `json:"fields"`
}

func (g *Group) validate(section string) error {
	if g.Name == "" {
		return fmt.Errorf("group without a name in section %q", section)
	}
	if len(g.Fields) == 0 {
		return fmt.Errorf("group %q.%q has no fields", section, g.Name)
	}
	for _, field := range g.Fields {
		if err := field.validate(section, g.Name); err != nil {
			return err
		}
	}
	return nil
}

// Field is one leaf of the mapping tree, producing exactly one output column.
// Either Map (plus the raw Columns feeding it) or Default must be provided.
// A field holding only a Default produces that constant for every row; a null
// Default produces an empty output column.
type Field struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`

	// Type is one of "str", "int", "float", "bool" or "date" and governs both
	// output serialization and coercion of lookup/default values.
	// If omitted it is set to "str".
	Type string `json:"type,omitempty"`

	// Columns are the raw columns feeding the map function, in the argument
	// order the function expects.
	Columns []string `json:"columns,omitempty"`

	Map     *MapFunc        `json:"map,omitempty"`
	Default json.RawMessage `json:"default,omitempty"`
}

func (f *Field) validate(section, group string) error {
	if f.Name == "" {
		return fmt.Errorf("field without a name in %q.%q", section, group)
	}
	switch f.Type {
	case FieldTypeStr, FieldTypeInt, FieldTypeFloat, FieldTypeBool, FieldTypeDate:
	default:
		return fmt.Errorf("field %s has invalid type %q", ColPath{section, group, f.Name}, f.Type)
	}
	if f.Map == nil && f.Default == nil {
		return fmt.Errorf("field %s has neither a map function nor a default", ColPath{section, group, f.Name})
	}
	if f.Map != nil {
		if f.Map.Name == "" {
			return fmt.Errorf("field %s has a map function without a name", ColPath{section, group, f.Name})
		}
		if len(f.Columns) == 0 && f.Map.Name != MapFuncID {
			return fmt.Errorf("field %s maps %q but declares no input columns", ColPath{section, group, f.Name}, f.Map.Name)
		}
	}
	return nil
}

// Names of the built-in map functions. Their exact conversion semantics are
// implemented in the transform package.
const (
	MapFuncStr            = "str"
	MapFuncInt            = "int"
	MapFuncAge            = "age"
	MapFuncFloat          = "float"
	MapFuncBool           = "bool"
	MapFuncDate           = "date"
	MapFuncEarliestDate   = "earliest_date"
	MapFuncSmallerOrNaN   = "smaller_or_nan"
	MapFuncLookup         = "lookup"
	MapFuncCategory       = "category"
	MapFuncICDSubsite     = "icd_subsite"
	MapFuncRecurrenceDate = "recurrence_date"
	MapFuncID             = "id"
)

// MapFunc selects one of the built-in pure conversion functions by name,
// together with its static parameters. All functions degrade to null on
// missing, empty or unparseable input.
type MapFunc struct {
	Name string `json:"name"`

	// Table holds the code-to-vocabulary lookup for the "lookup" function,
	// e.g. {"2": "N2"}. Codes outside the table map to null.
	Table map[string]string `json:"table,omitempty"`

	// Threshold is required by "smaller_or_nan". Note the deliberate policy of
	// that function: a missing value counts as below the threshold.
	Threshold *int `json:"threshold,omitempty"`

	// When gates any single-input function on a companion raw column: the last
	// declared column is the gate and the function is only applied (to the
	// first column) when the gate cell equals When.Value; otherwise null.
	When *Gate `json:"when,omitempty"`

	// Prefix, Start and Width configure the "id" function, generating
	// sequential IDs <prefix><n> with n zero-padded to Width digits.
	// Width defaults to DefaultIDWidth.
	Prefix string `json:"prefix,omitempty"`
	Start  int    `json:"start,omitempty"`
	Width  int    `json:"width,omitempty"`
}

// Gate holds the companion-column value that enables a gated map function.
type Gate struct {
	Value string `json:"value"`
}

// ColPath is the fixed three-level output column path (section, group, field).
type ColPath [3]string

func (p ColPath) String() string {
	return strings.Join([]string{p[0], p[1], p[2]}, ".")
}

func (p ColPath) Section() string { return p[0] }
func (p ColPath) Group() string   { return p[1] }
func (p ColPath) Field() string   { return p[2] }

// Package scenario holds the validation scenario read from one spreadsheet
// row, the join-key resolver and the configuration errors raised while
// turning rows into scenarios.
package scenario

import (
	"fmt"
	"strings"

	"github.com/vegasq/mapcheck/query"
)

// ValidationType is the declared category of a scenario
type ValidationType int

const (
	Unspecified ValidationType = iota
	DirectMapping
	Aggregation
	Transformation
	DataCompleteness
	FormatValidation
	RangeValidation
	Concatenation
	DateTransformation
)

var validationTypeNames = map[ValidationType]string{
	Unspecified:        "",
	DirectMapping:      "DirectMapping",
	Aggregation:        "Aggregation",
	Transformation:     "Transformation",
	DataCompleteness:   "DataCompleteness",
	FormatValidation:   "FormatValidation",
	RangeValidation:    "RangeValidation",
	Concatenation:      "Concatenation",
	DateTransformation: "DateTransformation",
}

// spellings seen in mapping sheets, normalized by normalizeName
var validationTypeAliases = map[string]ValidationType{
	"directmapping":         DirectMapping,
	"direct":                DirectMapping,
	"directcopy":            DirectMapping,
	"copy":                  DirectMapping,
	"aggregation":           Aggregation,
	"aggregate":             Aggregation,
	"transformation":        Transformation,
	"calculation":           Transformation,
	"businesslogic":         Transformation,
	"conditionallogic":      Transformation,
	"complexconditional":    Transformation,
	"compositekeylookup":    Transformation,
	"multikeylookup":        Transformation,
	"rangebasedlookup":      Transformation,
	"multitablecalculation": Transformation,
	"lookup":                Transformation,
	"datacompleteness":      DataCompleteness,
	"completeness":          DataCompleteness,
	"dataquality":           DataCompleteness,
	"formatvalidation":      FormatValidation,
	"format":                FormatValidation,
	"rangevalidation":       RangeValidation,
	"range":                 RangeValidation,
	"rangebasedcompliance":  RangeValidation,
	"concatenation":         Concatenation,
	"concat":                Concatenation,
	"datetransformation":    DateTransformation,
	"date":                  DateTransformation,
	"dateformat":            DateTransformation,
}

func (v ValidationType) String() string {
	if name, ok := validationTypeNames[v]; ok {
		return name
	}
	return fmt.Sprintf("ValidationType(%d)", int(v))
}

// ParseValidationType reads a Validation_Type cell. Case, spaces, dashes and
// underscores are ignored; an empty cell is Unspecified.
func ParseValidationType(s string) (ValidationType, error) {
	key := normalizeName(s)
	if key == "" {
		return Unspecified, nil
	}
	if v, ok := validationTypeAliases[key]; ok {
		return v, nil
	}
	return Unspecified, fmt.Errorf("%q is not a known validation type", strings.TrimSpace(s))
}

// AllowsEmptyLogic reports whether a scenario of this type may leave
// Derivation_Logic blank
func (v ValidationType) AllowsEmptyLogic() bool {
	return v == Unspecified || v == DirectMapping
}

func normalizeName(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		switch r {
		case ' ', '_', '-':
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// KeyPair is one position of a composite join key
type KeyPair struct {
	Source string
	Target string
}

// Reference describes the third table of a VLOOKUP-style scenario. Each key
// pair joins a source column to a reference column.
type Reference struct {
	Table        string
	Keys         []KeyPair
	ReturnColumn string
}

// Spec is one validation scenario. It is built once per sheet row and not
// modified afterwards.
type Spec struct {
	Name            string
	SourceTable     string
	TargetTable     string // empty for a source-only profile
	SourceJoinKeys  []string
	TargetJoinKeys  []string
	TargetColumn    string
	DerivationLogic string
	ValidationType  ValidationType
	BusinessRule    string // documentation only

	Reference          *Reference
	BusinessConditions string
	HardcodedValues    string

	Row int // sheet row the scenario came from, 0 when built in code
}

// Profile reports whether the scenario has no target table and only checks
// the source population
func (s *Spec) Profile() bool {
	return s.TargetTable == ""
}

// KeyPairs returns the source/target key positions in declared order. In
// profile mode the target side is empty.
func (s *Spec) KeyPairs() []KeyPair {
	pairs := make([]KeyPair, len(s.SourceJoinKeys))
	for i, key := range s.SourceJoinKeys {
		pairs[i].Source = key
		if i < len(s.TargetJoinKeys) {
			pairs[i].Target = s.TargetJoinKeys[i]
		}
	}
	return pairs
}

// Validate checks the structural invariants of the scenario
func (s *Spec) Validate() error {
	if strings.TrimSpace(s.Name) == "" {
		return s.configError(ColScenarioName, "is required")
	}
	if s.SourceTable == "" {
		return s.configError(ColSourceTable, "is required")
	}
	if len(s.SourceJoinKeys) == 0 {
		return s.configError(ColSourceJoinKey, "at least one join key is required")
	}

	if !s.Profile() {
		if s.TargetColumn == "" {
			return s.configError(ColTargetColumn, "is required when Target_Table is set")
		}
		if len(s.TargetJoinKeys) != len(s.SourceJoinKeys) {
			return s.configError(ColTargetJoinKey, fmt.Sprintf(
				"%d source key(s) %v but %d target key(s) %v",
				len(s.SourceJoinKeys), s.SourceJoinKeys, len(s.TargetJoinKeys), s.TargetJoinKeys))
		}
	}

	if strings.TrimSpace(s.DerivationLogic) == "" &&
		strings.TrimSpace(s.BusinessConditions) == "" &&
		!s.HasReferenceReturn() &&
		!s.ValidationType.AllowsEmptyLogic() {
		return s.configError(ColDerivationLogic, fmt.Sprintf("is required for validation type %s", s.ValidationType))
	}

	if s.Reference != nil {
		if s.Reference.Table == "" {
			return s.configError(ColReferenceTable, "is required when reference columns are set")
		}
	}

	if _, err := query.ParseHardcodedValues(s.HardcodedValues); err != nil {
		return s.configError(ColHardcodedValues, err.Error())
	}

	return nil
}

// HasReferenceReturn reports whether the scenario names a column to read
// from its reference table
func (s *Spec) HasReferenceReturn() bool {
	return s.Reference != nil && strings.TrimSpace(s.Reference.ReturnColumn) != ""
}

func (s *Spec) configError(field, reason string) *ConfigError {
	return &ConfigError{Scenario: s.Name, Row: s.Row, Field: field, Reason: reason}
}

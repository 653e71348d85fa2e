package scenario

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Sheet column names
const (
	ColScenarioName          = "Scenario_Name"
	ColSourceTable           = "Source_Table"
	ColTargetTable           = "Target_Table"
	ColSourceJoinKey         = "Source_Join_Key"
	ColTargetJoinKey         = "Target_Join_Key"
	ColTargetColumn          = "Target_Column"
	ColDerivationLogic       = "Derivation_Logic"
	ColValidationType        = "Validation_Type"
	ColBusinessRule          = "Business_Rule"
	ColReferenceTable        = "Reference_Table"
	ColReferenceJoinKey      = "Reference_Join_Key"
	ColReferenceLookupColumn = "Reference_Lookup_Column"
	ColReferenceReturnColumn = "Reference_Return_Column"
	ColBusinessConditions    = "Business_Conditions"
	ColHardcodedValues       = "Hardcoded_Values"
)

// Columns lists every column a scenario sheet may carry, required ones first
var Columns = []string{
	ColScenarioName,
	ColSourceTable,
	ColTargetTable,
	ColSourceJoinKey,
	ColTargetJoinKey,
	ColTargetColumn,
	ColDerivationLogic,
	ColValidationType,
	ColBusinessRule,
	ColReferenceTable,
	ColReferenceJoinKey,
	ColReferenceLookupColumn,
	ColReferenceReturnColumn,
	ColBusinessConditions,
	ColHardcodedValues,
}

// RequiredColumns must be present in every scenario sheet
var RequiredColumns = []string{ColScenarioName, ColSourceTable, ColSourceJoinKey}

// MissingColumns returns the required columns absent from headers. Header
// matching ignores case, spaces, dashes and underscores.
func MissingColumns(headers []string) []string {
	present := make(map[string]bool, len(headers))
	for _, h := range headers {
		present[normalizeName(h)] = true
	}

	var missing []string
	for _, col := range RequiredColumns {
		if !present[normalizeName(col)] {
			missing = append(missing, col)
		}
	}
	return missing
}

// row gives case and separator insensitive access to one sheet row
type row map[string]string

func newRow(values map[string]interface{}) row {
	r := make(row, len(values))
	for name, value := range values {
		r[normalizeName(name)] = cellString(value)
	}
	return r
}

func (r row) get(column string) string {
	return r[normalizeName(column)]
}

// cellString renders a cell as trimmed text. Blank markers left behind by
// spreadsheet exports (nan, none, null) read as empty.
func cellString(value interface{}) string {
	var s string
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		s = v
	case []byte:
		s = string(v)
	case float64:
		s = strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		s = strconv.FormatFloat(float64(v), 'f', -1, 32)
	default:
		s = fmt.Sprint(v)
	}

	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "nan", "none", "null", "<nil>":
		return ""
	}
	return s
}

// FromRow builds a scenario from one sheet row. index is the sheet row
// number used in error messages.
func FromRow(values map[string]interface{}, index int) (*Spec, error) {
	r := newRow(values)

	spec := &Spec{
		Name:               r.get(ColScenarioName),
		SourceTable:        r.get(ColSourceTable),
		TargetTable:        r.get(ColTargetTable),
		SourceJoinKeys:     SplitKeys(r.get(ColSourceJoinKey)),
		TargetJoinKeys:     SplitKeys(r.get(ColTargetJoinKey)),
		TargetColumn:       r.get(ColTargetColumn),
		DerivationLogic:    r.get(ColDerivationLogic),
		BusinessRule:       r.get(ColBusinessRule),
		BusinessConditions: r.get(ColBusinessConditions),
		HardcodedValues:    r.get(ColHardcodedValues),
		Row:                index,
	}

	validationType, err := ParseValidationType(r.get(ColValidationType))
	if err != nil {
		return nil, spec.configError(ColValidationType, err.Error())
	}
	spec.ValidationType = validationType

	ref, err := referenceFromRow(r)
	if err != nil {
		var cfgErr *ConfigError
		if errors.As(err, &cfgErr) {
			cfgErr.Scenario, cfgErr.Row = spec.Name, spec.Row
		}
		return nil, err
	}
	spec.Reference = ref

	if err := spec.Validate(); err != nil {
		return nil, err
	}

	return spec, nil
}

// referenceFromRow reads the optional reference-table columns. The lookup
// column is the older spelling of the return column and fills in for it.
func referenceFromRow(r row) (*Reference, error) {
	table := r.get(ColReferenceTable)
	keys := r.get(ColReferenceJoinKey)
	returnColumn := r.get(ColReferenceReturnColumn)
	if returnColumn == "" {
		returnColumn = r.get(ColReferenceLookupColumn)
	}

	if table == "" && keys == "" && returnColumn == "" {
		return nil, nil
	}

	pairs, err := ParseReferenceKeys(keys)
	if err != nil {
		return nil, err
	}

	return &Reference{Table: table, Keys: pairs, ReturnColumn: returnColumn}, nil
}

// FromRows builds scenarios from sheet rows. Rows with an empty
// Scenario_Name are skipped. Every malformed row yields one error and the
// remaining rows are still loaded. Row numbers assume a header row, so the
// first data row is row 2.
func FromRows(rows []map[string]interface{}) ([]Spec, []error) {
	var specs []Spec
	var errs []error

	for i, values := range rows {
		if newRow(values).get(ColScenarioName) == "" {
			continue
		}
		spec, err := FromRow(values, i+2)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		specs = append(specs, *spec)
	}

	return specs, errs
}

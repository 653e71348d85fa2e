package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/vegasq/mapcheck/outcome"
)

// Formatter renders scenario outcomes.
//
// Implementers provide Format to write outcomes in their format and
// SetOutput to change the destination.
type Formatter interface {
	// Format writes outcomes in the formatter's specific format
	Format(outcomes []outcome.Outcome) error

	// SetOutput changes the output writer
	SetOutput(w io.Writer)
}

// Names lists the formats accepted by ByName
var Names = []string{"table", "json", "jsonl", "csv", "xlsx"}

// ByName returns the formatter registered under name, writing to w
func ByName(name string, w io.Writer) (Formatter, error) {
	switch strings.ToLower(name) {
	case "table", "":
		return NewTableFormatter(w), nil
	case "json", "jsonl":
		return NewJSONFormatter(w), nil
	case "csv":
		return NewCSVFormatter(w), nil
	case "xlsx", "excel":
		return NewExcelFormatter(w), nil
	default:
		return nil, fmt.Errorf("unsupported format %q (supported: %s)", name, strings.Join(Names, ", "))
	}
}

// detailColumns are the per-scenario columns shared by the CSV and Excel
// outputs
var detailColumns = []string{
	"scenario", "validation_type", "source_table", "target_table", "target_column",
	"derivation_logic", "status", "total_rows", "match_count", "mismatch_count",
	"source_null_count", "target_null_count", "both_null_count", "match_percentage",
	"fallback", "error_kind", "error", "duration_ms", "timestamp", "id",
}

// detailValues returns the values of detailColumns for o
func detailValues(o outcome.Outcome) []interface{} {
	return []interface{}{
		o.Scenario, o.ValidationType, o.SourceTable, o.TargetTable, o.TargetColumn,
		o.DerivationLogic, string(o.Status), o.TotalRows, o.MatchCount, o.MismatchCount,
		o.SourceNullCount, o.TargetNullCount, o.BothNullCount, o.MatchPercentage,
		o.Fallback, string(o.ErrorKind), o.Error, o.Duration.Milliseconds(),
		o.Timestamp.Format("2006-01-02 15:04:05"), o.ID,
	}
}

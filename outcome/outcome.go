package outcome

import (
	"time"

	"github.com/google/uuid"

	"github.com/vegasq/mapcheck/scenario"
)

// ErrorKind tells apart the ways a scenario can fail to produce a verdict
type ErrorKind string

const (
	ErrorNone      ErrorKind = ""
	ErrorConfig    ErrorKind = "config"
	ErrorExecution ErrorKind = "execution"
	ErrorTimeout   ErrorKind = "timeout"
)

// Sample is one non-matching row kept for inspection
type Sample struct {
	Key            string         `json:"key"`
	Calculated     *string        `json:"calculated_value"`
	Actual         *string        `json:"actual_value"`
	Classification Classification `json:"classification"`
}

// Outcome is the result of one scenario run. It is built once and never
// shared, so it can be exported or cached as is.
type Outcome struct {
	ID              string        `json:"id"`
	Scenario        string        `json:"scenario"`
	Row             int           `json:"row,omitempty"`
	ValidationType  string        `json:"validation_type"`
	BusinessRule    string        `json:"business_rule,omitempty"`
	SourceTable     string        `json:"source_table"`
	TargetTable     string        `json:"target_table,omitempty"`
	TargetColumn    string        `json:"target_column,omitempty"`
	DerivationLogic string        `json:"derivation_logic"`
	Status          Status        `json:"status"`
	TotalRows       int64         `json:"total_rows"`
	MatchCount      int64         `json:"match_count"`
	MismatchCount   int64         `json:"mismatch_count"`
	SourceNullCount int64         `json:"source_null_count"`
	TargetNullCount int64         `json:"target_null_count"`
	BothNullCount   int64         `json:"both_null_count"`
	MatchPercentage float64       `json:"match_percentage"`
	SQL             string        `json:"sql,omitempty"`
	Samples         []Sample      `json:"samples,omitempty"`
	Fallback        bool          `json:"fallback,omitempty"`
	FallbackReason  string        `json:"fallback_reason,omitempty"`
	ErrorKind       ErrorKind     `json:"error_kind,omitempty"`
	Error           string        `json:"error,omitempty"`
	Duration        time.Duration `json:"duration_ns"`
	Timestamp       time.Time     `json:"timestamp"`
}

// New starts an outcome for spec with a fresh ID
func New(spec *scenario.Spec) Outcome {
	return Outcome{
		ID:              uuid.NewString(),
		Scenario:        spec.Name,
		Row:             spec.Row,
		ValidationType:  spec.ValidationType.String(),
		BusinessRule:    spec.BusinessRule,
		SourceTable:     spec.SourceTable,
		TargetTable:     spec.TargetTable,
		TargetColumn:    spec.TargetColumn,
		DerivationLogic: spec.DerivationLogic,
		Timestamp:       time.Now().UTC(),
	}
}

// Failed marks o as not evaluated. Timeouts get their own status so a slow
// query is never read as a data defect.
func Failed(o Outcome, kind ErrorKind, err error) Outcome {
	o.ErrorKind = kind
	o.Status = StatusError
	if kind == ErrorTimeout {
		o.Status = StatusTimeout
	}
	if err != nil {
		o.Error = err.Error()
	}
	o.TotalRows, o.MatchCount, o.MismatchCount = 0, 0, 0
	o.SourceNullCount, o.TargetNullCount, o.BothNullCount = 0, 0, 0
	o.MatchPercentage = 0
	o.Samples = nil
	return o
}

// NullCount is the number of rows with a NULL on either side
func (o Outcome) NullCount() int64 {
	return o.SourceNullCount + o.TargetNullCount + o.BothNullCount
}

// NotMatched is every row that is not a MATCH
func (o Outcome) NotMatched() int64 {
	return o.TotalRows - o.MatchCount
}

// Evaluated reports whether the comparison query ran to completion
func (o Outcome) Evaluated() bool {
	return o.ErrorKind == ErrorNone && o.Status != ""
}

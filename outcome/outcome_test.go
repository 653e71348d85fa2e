package outcome

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/vegasq/mapcheck/scenario"
)

func TestNew(t *testing.T) {
	spec := &scenario.Spec{
		Name:            "S001",
		SourceTable:     "customers",
		TargetTable:     "customer_dim",
		TargetColumn:    "full_name",
		DerivationLogic: "CONCAT(first_name, ' ', last_name)",
		ValidationType:  scenario.Concatenation,
		Row:             4,
	}

	a, b := New(spec), New(spec)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "S001", a.Scenario)
	assert.Equal(t, 4, a.Row)
	assert.Equal(t, scenario.Concatenation.String(), a.ValidationType)
	assert.False(t, a.Timestamp.IsZero())
}

func TestFailed(t *testing.T) {
	base := Outcome{Scenario: "S001", SQL: "SELECT 1", TotalRows: 3, MatchCount: 3, Status: StatusPass}

	o := Failed(base, ErrorTimeout, errors.New("deadline exceeded"))
	assert.Equal(t, StatusTimeout, o.Status)
	assert.Equal(t, "deadline exceeded", o.Error)
	assert.Equal(t, "SELECT 1", o.SQL)
	assert.Zero(t, o.TotalRows)
	assert.False(t, o.Evaluated())

	o = Failed(base, ErrorConfig, errors.New("bad keys"))
	assert.Equal(t, StatusError, o.Status)
	assert.Equal(t, ErrorConfig, o.ErrorKind)
}

func TestSummarize(t *testing.T) {
	outcomes := []Outcome{
		{Status: StatusPass, TotalRows: 10, MatchCount: 10, Duration: time.Second},
		{Status: StatusFail, TotalRows: 10, MatchCount: 5, Duration: time.Second},
		{Status: StatusInfo},
		Failed(Outcome{}, ErrorExecution, errors.New("table not found")),
	}

	s := Summarize(outcomes)
	assert.Equal(t, 4, s.Scenarios)
	assert.Equal(t, 1, s.ByStatus[StatusPass])
	assert.Equal(t, 1, s.ByStatus[StatusFail])
	assert.Equal(t, 1, s.ByStatus[StatusError])
	assert.Equal(t, 0, s.ByStatus[StatusWarn])
	assert.Equal(t, 25.0, s.SuccessRate)
	assert.Equal(t, int64(20), s.RowsValidated)
	assert.Equal(t, int64(15), s.RowsMatched)
	assert.Equal(t, int64(5), s.RowsNotMatched)
	assert.Equal(t, 75.0, s.RowMatchRate)
	assert.Equal(t, 2*time.Second, s.Duration)
	assert.Equal(t, 2, s.Problems())
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	assert.Zero(t, s.Scenarios)
	assert.Zero(t, s.SuccessRate)
	assert.Zero(t, s.Problems())
}

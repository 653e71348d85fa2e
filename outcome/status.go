package outcome

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Status is the scenario-level verdict
type Status string

const (
	StatusPass    Status = "PASS"
	StatusWarn    Status = "WARN"
	StatusFail    Status = "FAIL"
	StatusInfo    Status = "INFO"
	StatusError   Status = "ERROR"
	StatusTimeout Status = "TIMEOUT"
)

// Statuses lists every status in report order
var Statuses = []Status{StatusPass, StatusWarn, StatusFail, StatusInfo, StatusError, StatusTimeout}

// ParseStatus converts a validation_status value returned by the warehouse
func ParseStatus(s string) (Status, error) {
	for _, status := range Statuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown validation status %q", s)
}

// Problem reports whether the status should fail a batch run
func (s Status) Problem() bool {
	return s == StatusFail || s == StatusError || s == StatusTimeout
}

// Classification is the per-row comparison result
type Classification string

const (
	Match      Classification = "MATCH"
	Mismatch   Classification = "MISMATCH"
	SourceNull Classification = "SOURCE_NULL"
	TargetNull Classification = "TARGET_NULL"
	BothNull   Classification = "BOTH_NULL"
)

// DefaultWarnPercent is the lowest match percentage that still rates WARN
const DefaultWarnPercent = 95.0

var hundred = decimal.NewFromInt(100)

// DeriveStatus rates a scenario from its counts. Null rows count in the
// total, so they lower the match rate like mismatches do. A scenario with no
// rows is INFO rather than PASS or FAIL.
func DeriveStatus(match, total int64, warnPercent float64) Status {
	switch {
	case total <= 0:
		return StatusInfo
	case match >= total:
		return StatusPass
	case decimal.NewFromInt(match).Mul(hundred).GreaterThanOrEqual(
		decimal.NewFromInt(total).Mul(decimal.NewFromFloat(warnPercent))):
		return StatusWarn
	default:
		return StatusFail
	}
}

// MatchPercentage returns match/total*100 truncated to two decimals, or 0 when
// there are no rows. Truncation keeps 100 for PASS only and keeps a FAIL
// below the WARN threshold.
func MatchPercentage(match, total int64) float64 {
	if total <= 0 {
		return 0
	}
	pct := decimal.NewFromInt(match).Mul(hundred).Div(decimal.NewFromInt(total)).Truncate(2)
	return pct.InexactFloat64()
}

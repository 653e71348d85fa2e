package runner

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vegasq/mapcheck/outcome"
	"github.com/vegasq/mapcheck/sqlgen"
)

// result is the decoded result set of a comparison query
type result struct {
	total, match, mismatch           int64
	sourceNull, targetNull, bothNull int64
	percentage                       float64
	status                           string
	samples                          []outcome.Sample
}

var errNoSummary = errors.New("result set has no SUMMARY row")

// decode reads the SUMMARY row and the SAMPLE rows
func decode(rows []map[string]interface{}) (*result, error) {
	var res *result
	var samples []outcome.Sample

	for i, row := range rows {
		switch rowType := asString(row[sqlgen.ColRowType]); rowType {
		case sqlgen.RowTypeSummary:
			if res != nil {
				return nil, errors.New("result set has more than one SUMMARY row")
			}
			var err error
			res, err = decodeSummary(row)
			if err != nil {
				return nil, fmt.Errorf("summary row: %w", err)
			}
		case sqlgen.RowTypeSample:
			samples = append(samples, outcome.Sample{
				Key:            asString(row[sqlgen.ColSampleKey]),
				Calculated:     asOptionalString(row[sqlgen.ColCalculatedValue]),
				Actual:         asOptionalString(row[sqlgen.ColActualValue]),
				Classification: outcome.Classification(asString(row[sqlgen.ColClassification])),
			})
		default:
			return nil, fmt.Errorf("row %d: unexpected row_type %q", i+1, rowType)
		}
	}

	if res == nil {
		return nil, errNoSummary
	}
	res.samples = samples
	return res, nil
}

func decodeSummary(row map[string]interface{}) (*result, error) {
	res := &result{status: asString(row[sqlgen.ColStatus])}

	counts := []struct {
		col string
		dst *int64
	}{
		{sqlgen.ColTotalRows, &res.total},
		{sqlgen.ColMatchCount, &res.match},
		{sqlgen.ColMismatchCount, &res.mismatch},
		{sqlgen.ColSourceNullCount, &res.sourceNull},
		{sqlgen.ColTargetNullCount, &res.targetNull},
		{sqlgen.ColBothNullCount, &res.bothNull},
	}
	for _, c := range counts {
		n, err := asInt(row[c.col])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", c.col, err)
		}
		*c.dst = n
	}

	if v := row[sqlgen.ColMatchPercentage]; v != nil {
		pct, err := asDecimal(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", sqlgen.ColMatchPercentage, err)
		}
		res.percentage = pct.InexactFloat64()
	}

	sum := res.match + res.mismatch + res.sourceNull + res.targetNull + res.bothNull
	if sum != res.total {
		return nil, fmt.Errorf("classification counts add up to %d, total_rows is %d", sum, res.total)
	}
	return res, nil
}

func asInt(v interface{}) (int64, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("%v is not a whole number", n)
		}
		return int64(n), nil
	default:
		d, err := asDecimal(v)
		if err != nil {
			return 0, err
		}
		if !d.IsInteger() {
			return 0, fmt.Errorf("%s is not a whole number", d)
		}
		return d.IntPart(), nil
	}
}

func asDecimal(v interface{}) (decimal.Decimal, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case float32:
		return decimal.NewFromFloat32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case int:
		return decimal.NewFromInt(int64(n)), nil
	case string:
		return decimal.NewFromString(strings.TrimSpace(n))
	case fmt.Stringer:
		return decimal.NewFromString(n.String())
	default:
		return decimal.Decimal{}, fmt.Errorf("unexpected numeric value %v (%T)", v, v)
	}
}

func asString(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case []byte:
		return string(s)
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	case time.Time:
		return s.Format(time.RFC3339Nano)
	default:
		return fmt.Sprint(s)
	}
}

func asOptionalString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s := asString(v)
	return &s
}

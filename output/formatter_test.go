package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/vegasq/mapcheck/outcome"
)

func TestByName(t *testing.T) {
	tests := []struct {
		name string
		want interface{}
	}{
		{"", &TableFormatter{}},
		{"table", &TableFormatter{}},
		{"JSON", &JSONFormatter{}},
		{"jsonl", &JSONFormatter{}},
		{"csv", &CSVFormatter{}},
		{"xlsx", &ExcelFormatter{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ByName(tt.name, &bytes.Buffer{})
			require.NoError(t, err)
			assert.IsType(t, tt.want, f)
		})
	}

	_, err := ByName("xml", &bytes.Buffer{})
	assert.Error(t, err)
}

func TestJSONFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter(&buf).Format(sampleOutcomes()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "S001_Full_Name", first["scenario"])
	assert.Equal(t, "FAIL", first["status"])
	assert.Equal(t, "SELECT 1", first["sql"])

	samples, ok := first["samples"].([]interface{})
	require.True(t, ok)
	require.Len(t, samples, 1)
	assert.Equal(t, "MISMATCH", samples[0].(map[string]interface{})["classification"])

	var second map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "config", second["error_kind"])
	assert.NotContains(t, second, "samples")
}

func TestTableFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewTableFormatter(&buf).Format(sampleOutcomes()))

	out := buf.String()
	for _, want := range []string{"Scenario", "S001_Full_Name", "FAIL", "50.00", "S002_Negated", "ERROR", "2 scenarios", "2 problem(s)"} {
		assert.Contains(t, out, want)
	}
}

func TestNote(t *testing.T) {
	assert.Equal(t, "no rows compared", note(outcome.Outcome{Status: outcome.StatusInfo}))
	assert.Equal(t, "derivation passed through: unknown function: X",
		note(outcome.Outcome{Status: outcome.StatusPass, Fallback: true, FallbackReason: "unknown function: X"}))

	long := note(outcome.Outcome{Error: strings.Repeat("x", 100)})
	assert.Len(t, long, 60)
	assert.True(t, strings.HasSuffix(long, "..."))
}

func TestExcelFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewExcelFormatter(&buf).Format(sampleOutcomes()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	assert.Equal(t, []string{SheetSummary, SheetDetails, SheetSQL, SheetSamples}, f.GetSheetList())

	summary, err := f.GetRows(SheetSummary)
	require.NoError(t, err)
	assert.Equal(t, []string{"Metric", "Value"}, summary[0])
	assert.Equal(t, []string{"Total Scenarios", "2"}, summary[1])

	details, err := f.GetRows(SheetDetails)
	require.NoError(t, err)
	require.Len(t, details, 3)
	assert.Equal(t, "S001_Full_Name", details[1][0])
	// cells are stored as text, so no formula escaping is needed
	assert.Equal(t, "-balance", details[2][5])

	queries, err := f.GetRows(SheetSQL)
	require.NoError(t, err)
	require.Len(t, queries, 2)
	assert.Equal(t, []string{"S001_Full_Name", "SELECT 1"}, queries[1])

	samples, err := f.GetRows(SheetSamples)
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, []string{"S001_Full_Name", "2", "Jane Doe", "Jane X. Doe", "MISMATCH"}, samples[1])
}

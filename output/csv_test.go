package output

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/vegasq/mapcheck/outcome"
)

func sampleOutcomes() []outcome.Outcome {
	calc, actual := "Jane Doe", "Jane X. Doe"
	return []outcome.Outcome{
		{
			ID:              "a",
			Scenario:        "S001_Full_Name",
			SourceTable:     "customers",
			TargetTable:     "customer_dim",
			TargetColumn:    "full_name",
			DerivationLogic: "CONCAT(first_name, ' ', last_name)",
			Status:          outcome.StatusFail,
			TotalRows:       2,
			MatchCount:      1,
			MismatchCount:   1,
			MatchPercentage: 50,
			SQL:             "SELECT 1",
			Samples: []outcome.Sample{
				{Key: "2", Calculated: &calc, Actual: &actual, Classification: outcome.Mismatch},
			},
			Duration:  1500 * time.Millisecond,
			Timestamp: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		},
		{
			ID:              "b",
			Scenario:        "S002_Negated",
			DerivationLogic: "-balance",
			Status:          outcome.StatusError,
			ErrorKind:       outcome.ErrorConfig,
			Error:           `scenario "S002_Negated": Target_Join_Key has 2 key(s)`,
		},
	}
}

func TestCSVFormatter_Format(t *testing.T) {
	tests := []struct {
		name      string
		outcomes  []outcome.Outcome
		wantLines int
	}{
		{name: "no outcomes", outcomes: nil, wantLines: 1},
		{name: "two outcomes", outcomes: sampleOutcomes(), wantLines: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := NewCSVFormatter(&buf).Format(tt.outcomes); err != nil {
				t.Fatalf("Format() error = %v", err)
			}

			records, err := csv.NewReader(&buf).ReadAll()
			if err != nil {
				t.Fatalf("output is not valid CSV: %v", err)
			}
			if len(records) != tt.wantLines {
				t.Errorf("Format() wrote %d records, want %d", len(records), tt.wantLines)
			}
			if strings.Join(records[0], ",") != strings.Join(detailColumns, ",") {
				t.Errorf("Format() header = %v", records[0])
			}
		})
	}
}

func TestCSVFormatter_Values(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVFormatter(&buf).Format(sampleOutcomes()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	row := make(map[string]string)
	for i, col := range records[0] {
		row[col] = records[1][i]
	}

	want := map[string]string{
		"scenario":         "S001_Full_Name",
		"status":           "FAIL",
		"total_rows":       "2",
		"match_percentage": "50",
		"fallback":         "false",
		"duration_ms":      "1500",
		"timestamp":        "2026-01-02 03:04:05",
	}
	for col, v := range want {
		if row[col] != v {
			t.Errorf("column %s = %q, want %q", col, row[col], v)
		}
	}
}

func TestCSVFormatter_FormulaInjection(t *testing.T) {
	var buf bytes.Buffer
	if err := NewCSVFormatter(&buf).Format(sampleOutcomes()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("output is not valid CSV: %v", err)
	}

	for i, col := range records[0] {
		if col == "derivation_logic" && records[2][i] != "'-balance" {
			t.Errorf("derivation_logic = %q, want quoted prefix", records[2][i])
		}
	}
}

func TestSanitize(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"plain", "plain"},
		{"=SUM(A1:A9)", "'=SUM(A1:A9)"},
		{"+1", "'+1"},
		{"@cmd", "'@cmd"},
		{"=it's", "'=it''s"},
		{"a=b", "a=b"},
	}

	for _, tt := range tests {
		if got := sanitize(tt.in); got != tt.want {
			t.Errorf("sanitize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestCSVFormatter_SetOutput(t *testing.T) {
	var first, second bytes.Buffer
	formatter := NewCSVFormatter(&first)
	formatter.SetOutput(&second)

	if err := formatter.Format(sampleOutcomes()); err != nil {
		t.Fatalf("Format() error = %v", err)
	}
	if first.Len() != 0 {
		t.Errorf("original writer should be unused, got %d bytes", first.Len())
	}
	if second.Len() == 0 {
		t.Errorf("new writer received no output")
	}
}

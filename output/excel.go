package output

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/vegasq/mapcheck/outcome"
)

// Workbook sheet names
const (
	SheetSummary = "Executive_Summary"
	SheetDetails = "Scenario_Details"
	SheetSQL     = "SQL_Queries_Used"
	SheetSamples = "Mismatch_Samples"
)

// ExcelFormatter writes a validation report workbook with an executive
// summary, per-scenario details, the SQL each scenario ran and the
// mismatch samples
type ExcelFormatter struct {
	writer io.Writer
}

// NewExcelFormatter creates a new workbook formatter
func NewExcelFormatter(w io.Writer) *ExcelFormatter {
	return &ExcelFormatter{writer: w}
}

// SetOutput sets the output writer
func (e *ExcelFormatter) SetOutput(w io.Writer) {
	e.writer = w
}

// Format builds the workbook and writes it
func (e *ExcelFormatter) Format(outcomes []outcome.Outcome) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	for _, name := range []string{SheetDetails, SheetSQL, SheetSamples} {
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("failed to create sheet %s: %w", name, err)
		}
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	w := &sheetWriter{f: f, header: bold}

	s := outcome.Summarize(outcomes)
	w.rows(SheetSummary, []string{"Metric", "Value"}, [][]interface{}{
		{"Total Scenarios", s.Scenarios},
		{"Scenarios Passed", s.ByStatus[outcome.StatusPass]},
		{"Scenarios Warned", s.ByStatus[outcome.StatusWarn]},
		{"Scenarios Failed", s.ByStatus[outcome.StatusFail]},
		{"Scenarios Without Rows", s.ByStatus[outcome.StatusInfo]},
		{"Scenarios Errored", s.ByStatus[outcome.StatusError]},
		{"Scenarios Timed Out", s.ByStatus[outcome.StatusTimeout]},
		{"Scenario Success Rate (%)", s.SuccessRate},
		{"Total Rows Validated", s.RowsValidated},
		{"Total Matched Rows", s.RowsMatched},
		{"Total Unmatched Rows", s.RowsNotMatched},
		{"Row Match Rate (%)", s.RowMatchRate},
		{"Execution Date", s.GeneratedAt.Format("2006-01-02 15:04:05")},
	})

	details := make([][]interface{}, len(outcomes))
	queries := make([][]interface{}, 0, len(outcomes))
	var samples [][]interface{}
	for i, o := range outcomes {
		details[i] = detailValues(o)
		if o.SQL != "" {
			queries = append(queries, []interface{}{o.Scenario, o.SQL})
		}
		for _, sample := range o.Samples {
			samples = append(samples, []interface{}{
				o.Scenario, sample.Key, deref(sample.Calculated), deref(sample.Actual), string(sample.Classification),
			})
		}
	}
	w.rows(SheetDetails, detailColumns, details)
	w.rows(SheetSQL, []string{"Scenario_Name", "SQL_Query_Used"}, queries)
	w.rows(SheetSamples, []string{"Scenario_Name", "Join_Key", "Calculated_Value", "Actual_Value", "Classification"}, samples)

	if w.err != nil {
		return w.err
	}

	f.SetActiveSheet(0)
	if err := f.Write(e.writer); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

// sheetWriter fills sheets and keeps the first error
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) rows(sheet string, header []string, rows [][]interface{}) {
	if w.err != nil {
		return
	}

	values := make([]interface{}, len(header))
	for i, h := range header {
		values[i] = h
	}
	if err := w.f.SetSheetRow(sheet, "A1", &values); err != nil {
		w.err = fmt.Errorf("sheet %s: %w", sheet, err)
		return
	}
	last, err := excelize.CoordinatesToCellName(len(header), 1)
	if err == nil {
		err = w.f.SetCellStyle(sheet, "A1", last, w.header)
	}
	if err != nil {
		w.err = fmt.Errorf("sheet %s: %w", sheet, err)
		return
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			w.err = err
			return
		}
		if err := w.f.SetSheetRow(sheet, cell, &row); err != nil {
			w.err = fmt.Errorf("sheet %s row %d: %w", sheet, i+2, err)
			return
		}
	}
}

func deref(s *string) interface{} {
	if s == nil {
		return nil
	}
	return *s
}

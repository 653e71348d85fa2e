package output

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/vegasq/mapcheck/outcome"
)

// TableFormatter prints a console table with one line per scenario and a
// summary footer
type TableFormatter struct {
	writer io.Writer
}

// NewTableFormatter creates a new table formatter
func NewTableFormatter(w io.Writer) *TableFormatter {
	return &TableFormatter{writer: w}
}

// SetOutput sets the output writer
func (f *TableFormatter) SetOutput(w io.Writer) {
	f.writer = w
}

// Format renders outcomes as a table
func (f *TableFormatter) Format(outcomes []outcome.Outcome) error {
	table := tablewriter.NewWriter(f.writer)
	table.SetHeader([]string{"Scenario", "Status", "Rows", "Match", "Mismatch", "Src Null", "Tgt Null", "Both Null", "Match %", "Note"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)

	for _, o := range outcomes {
		table.Append([]string{
			o.Scenario,
			string(o.Status),
			strconv.FormatInt(o.TotalRows, 10),
			strconv.FormatInt(o.MatchCount, 10),
			strconv.FormatInt(o.MismatchCount, 10),
			strconv.FormatInt(o.SourceNullCount, 10),
			strconv.FormatInt(o.TargetNullCount, 10),
			strconv.FormatInt(o.BothNullCount, 10),
			strconv.FormatFloat(o.MatchPercentage, 'f', 2, 64),
			note(o),
		})
	}

	s := outcome.Summarize(outcomes)
	table.SetFooter([]string{
		fmt.Sprintf("%d scenarios", s.Scenarios),
		fmt.Sprintf("%d passed", s.ByStatus[outcome.StatusPass]),
		strconv.FormatInt(s.RowsValidated, 10),
		strconv.FormatInt(s.RowsMatched, 10),
		strconv.FormatInt(s.RowsNotMatched, 10),
		"", "", "",
		strconv.FormatFloat(s.RowMatchRate, 'f', 2, 64),
		fmt.Sprintf("%d problem(s)", s.Problems()),
	})

	table.Render()
	return nil
}

// note is the short explanation shown next to a scenario
func note(o outcome.Outcome) string {
	const limit = 60
	text := o.Error
	switch {
	case text != "":
	case o.Status == outcome.StatusInfo:
		text = "no rows compared"
	case o.Fallback:
		text = "derivation passed through: " + o.FallbackReason
	}
	if len(text) > limit {
		text = text[:limit-3] + "..."
	}
	return text
}

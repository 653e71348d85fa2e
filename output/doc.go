// Package output renders scenario outcomes for people and for other tools.
//
// # Supported Formats
//
//   - table: console table with a summary footer (default)
//   - json / jsonl: one JSON object per outcome, samples and SQL included
//   - csv: one row per scenario; text that a spreadsheet would evaluate as a
//     formula is prefixed with a quote
//   - xlsx: workbook with Executive_Summary, Scenario_Details,
//     SQL_Queries_Used and Mismatch_Samples sheets
//
// # Basic Usage
//
//	formatter, err := output.ByName("csv", os.Stdout)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := formatter.Format(outcomes); err != nil {
//	    log.Fatal(err)
//	}
//
// # Writing to Different Destinations
//
//	file, err := os.Create("report.xlsx")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer file.Close()
//
//	formatter := output.NewExcelFormatter(os.Stdout)
//	formatter.SetOutput(file)
//	if err := formatter.Format(outcomes); err != nil {
//	    log.Fatal(err)
//	}
package output

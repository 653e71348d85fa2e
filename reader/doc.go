// Package reader loads scenario sheets.
//
// A sheet has one scenario per row and a header row naming the columns
// (Scenario_Name, Source_Table, Source_Join_Key, ...). Headers match without
// regard to case, spaces, dashes or underscores. Supported files:
//
//   - Excel workbooks (.xlsx, .xlsm); pick the worksheet with Options.Sheet
//   - CSV with a header row
//   - Parquet, one file or a glob pattern such as "sheets/*.parquet"
//   - YAML, a list of scenario mappings or a mapping with a scenarios key
//
// # Basic Usage
//
//	specs, rowErrs, err := reader.LoadScenarios("mapping.xlsx", reader.Options{Sheet: "Scenarios"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	for _, rowErr := range rowErrs {
//	    log.Printf("skipped: %v", rowErr)
//	}
package reader

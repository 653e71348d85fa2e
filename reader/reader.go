package reader

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/vegasq/mapcheck/scenario"
)

// Format is a scenario sheet file format
type Format string

const (
	FormatExcel   Format = "xlsx"
	FormatCSV     Format = "csv"
	FormatParquet Format = "parquet"
	FormatYAML    Format = "yaml"
)

// Options control how a sheet is read
type Options struct {
	// Sheet selects the worksheet of an Excel workbook; the first sheet is
	// used when empty
	Sheet string
}

// DetectFormat picks the format from the file extension
func DetectFormat(path string) (Format, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		return FormatExcel, nil
	case ".csv":
		return FormatCSV, nil
	case ".parquet":
		return FormatParquet, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported scenario file type %q (expected .xlsx, .csv, .parquet or .yaml)", ext)
	}
}

// ReadRows reads every row of a scenario sheet as a map keyed by column
// header. Parquet paths may be glob patterns.
func ReadRows(path string, opts Options) ([]map[string]interface{}, error) {
	rows, _, err := read(path, opts)
	return rows, err
}

func read(path string, opts Options) ([]map[string]interface{}, []string, error) {
	format, err := DetectFormat(path)
	if err != nil {
		return nil, nil, err
	}

	switch format {
	case FormatExcel:
		return readExcel(path, opts.Sheet)
	case FormatCSV:
		return readCSV(path)
	case FormatParquet:
		return readParquet(path)
	default:
		return readYAML(path)
	}
}

// LoadScenarios reads a sheet and converts its rows. Rows that fail
// validation are returned as errors next to the valid scenarios so one bad
// row does not block the rest; the final error is reserved for a file that
// cannot be read or lacks the required columns.
func LoadScenarios(path string, opts Options) ([]scenario.Spec, []error, error) {
	rows, columns, err := read(path, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s contains no scenarios", path)
	}
	if missing := scenario.MissingColumns(columns); len(missing) > 0 {
		return nil, nil, fmt.Errorf("%s is missing required column(s): %s", path, strings.Join(missing, ", "))
	}

	specs, errs := scenario.FromRows(rows)
	return specs, errs, nil
}

package reader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

func readCSV(path string) ([]map[string]interface{}, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	// a UTF-8 BOM from spreadsheet exports would otherwise end up in the
	// first header name
	if len(records) > 0 && len(records[0]) > 0 {
		records[0][0] = trimBOM(records[0][0])
	}

	rows, header := fromGrid(records)
	return rows, header, nil
}

func trimBOM(s string) string {
	return strings.TrimPrefix(s, "\ufeff")
}

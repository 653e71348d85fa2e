package reader

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// readExcel reads one worksheet. The first non-empty row is the header;
// rows after it become maps keyed by header text.
func readExcel(path, sheet string) ([]map[string]interface{}, []string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, nil, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheet = sheets[0]
	} else if idx, err := f.GetSheetIndex(sheet); err != nil || idx < 0 {
		return nil, nil, fmt.Errorf("workbook %s has no sheet %q (sheets: %s)",
			path, sheet, strings.Join(f.GetSheetList(), ", "))
	}

	cells, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	rows, header := fromGrid(cells)
	return rows, header, nil
}

// fromGrid converts a header row plus data rows into maps. Short rows are
// padded with empty cells, cells past the header and blank rows are ignored.
func fromGrid(cells [][]string) ([]map[string]interface{}, []string) {
	start := 0
	for start < len(cells) && blank(cells[start]) {
		start++
	}
	if start == len(cells) {
		return nil, nil
	}

	header := make([]string, len(cells[start]))
	for i, h := range cells[start] {
		header[i] = strings.TrimSpace(h)
	}

	rows := make([]map[string]interface{}, 0, len(cells)-start-1)
	for _, record := range cells[start+1:] {
		if blank(record) {
			continue
		}
		row := make(map[string]interface{}, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(record) {
				row[name] = record[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}

	return rows, header
}

func blank(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

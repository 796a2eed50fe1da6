package ingest

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// readXLSXTable reads one worksheet into a header and data rows. An empty
// sheet name selects the workbook's first sheet.
func readXLSXTable(path, sheet string) ([]string, [][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: read sheet %q: %w", path, sheet, err)
	}
	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("%s: sheet %q is empty", path, sheet)
	}
	return rows[0], rows[1:], nil
}

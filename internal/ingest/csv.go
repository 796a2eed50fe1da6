package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// readCSVTable reads a CSV file into a header and data rows. The sheet
// argument is ignored for CSV inputs.
func readCSVTable(path, _ string) ([]string, [][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("read %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, nil, fmt.Errorf("%s: empty file", path)
	}

	header := records[0]
	if len(header) > 0 {
		// Spreadsheet tools prepend a BOM when exporting UTF-8.
		header[0] = strings.TrimPrefix(header[0], "\uFEFF")
	}
	return header, records[1:], nil
}

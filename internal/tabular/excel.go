package tabular

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/banshee-data/trips.ingest/internal/telemetry"
)

// readWorkbook reads the first worksheet of an .xlsx or .xlsm file.
func readWorkbook(data []byte) (*telemetry.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, ErrNoData
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}
	return toTable(rows)
}

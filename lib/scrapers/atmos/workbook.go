package atmos

import (
	"bytes"
	"fmt"
	"time"

	"github.com/shakinm/xlsReader/xls"
)

// Reading is one decoded spreadsheet row. Time is midnight of the row's
// date column in the decoding location; Value is the consumption cell's
// text kept verbatim, downstream consumers format it as-is.
type Reading struct {
	Time  time.Time
	Value string
}

const usageDateLayout = "01/02/2006"

// column layout of the daily usage workbook, row 0 is a header
const (
	consumptionCol = 1
	weatherDateCol = 3
)

// DecodeUsageWorkbook parses the raw bytes of a daily usage download as a
// legacy binary (.xls) workbook and extracts one reading per data row of
// the first sheet. Anything that is not a valid legacy workbook, including
// the modern zip-based format, fails with ErrWorkbookDecode rather than
// returning partial data.
func DecodeUsageWorkbook(raw []byte, loc *time.Location) ([]Reading, error) {
	workbook, err := xls.OpenReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkbookDecode, err)
	}
	sheet, err := workbook.GetSheet(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrWorkbookDecode, err)
	}

	var usage []Reading
	for idx := 1; idx < sheet.GetNumberRows(); idx++ {
		row, err := sheet.GetRow(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", ErrWorkbookDecode, idx, err)
		}
		value, err := row.GetCol(consumptionCol)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", ErrWorkbookDecode, idx, err)
		}
		date, err := row.GetCol(weatherDateCol)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", ErrWorkbookDecode, idx, err)
		}

		day, err := time.ParseInLocation(usageDateLayout, date.GetString(), loc)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %s", ErrWorkbookDecode, idx, err)
		}

		usage = append(usage, Reading{Time: day, Value: value.GetString()})
	}

	return usage, nil
}

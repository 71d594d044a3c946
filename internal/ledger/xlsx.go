package ledger

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	excelDateLayout = "2006-01-02 15:04:05"
	maxExcelSerial  = 2958465 // 9999-12-31
)

// XLSXSource reads one sheet of a workbook whose first row is a header.
type XLSXSource struct {
	path  string
	sheet string
}

// NewXLSXSource returns a source for the named sheet of path. An empty sheet
// selects the first sheet of the workbook.
func NewXLSXSource(path, sheet string) *XLSXSource {
	return &XLSXSource{path: path, sheet: sheet}
}

func (s *XLSXSource) Name() string {
	if s.sheet == "" {
		return s.path
	}
	return s.path + "#" + s.sheet
}

// Load reads the raw cell values of the sheet. Order dates stored as Excel
// serial numbers are rendered as text so the decoder can parse them.
func (s *XLSXSource) Load(ctx context.Context) (*Table, error) {
	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	sheet := s.sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return &Table{}, nil
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read sheet %s: %w", sheet, err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	date1904 := false
	if props, err := f.GetWorkbookProps(); err == nil && props.Date1904 != nil {
		date1904 = *props.Date1904
	}

	t := splitTable(rows)
	for _, row := range t.Rows {
		if len(row) > ColOrderDate {
			row[ColOrderDate] = excelSerialToText(row[ColOrderDate], date1904)
		}
	}
	return t, nil
}

func excelSerialToText(cell string, date1904 bool) string {
	serial, err := strconv.ParseFloat(strings.TrimSpace(cell), 64)
	if err != nil || serial <= 0 || serial > maxExcelSerial {
		return cell
	}
	t, err := excelize.ExcelDateToTime(serial, date1904)
	if err != nil {
		return cell
	}
	return t.Format(excelDateLayout)
}

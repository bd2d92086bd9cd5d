package export

import (
	"fmt"
	"strconv"

	"github.com/xuri/excelize/v2"
)

// Sheet is one worksheet of an XLSX workbook.
type Sheet struct {
	Name string
	Data Dataset
}

// XLSXExporter renders datasets into Excel workbooks.
type XLSXExporter struct{}

// NewXLSXExporter builds an XLSX exporter.
func NewXLSXExporter() *XLSXExporter {
	return &XLSXExporter{}
}

// Render writes a single-sheet workbook.
func (e *XLSXExporter) Render(data Dataset, sheet string) ([]byte, error) {
	return e.RenderSheets([]Sheet{{Name: sheet, Data: data}})
}

// RenderSheets writes one worksheet per sheet with a bold, frozen header row.
// Numeric cells are stored as numbers so they can be sorted in Excel.
func (e *XLSXExporter) RenderSheets(sheets []Sheet) ([]byte, error) {
	if len(sheets) == 0 {
		return nil, fmt.Errorf("xlsx requires at least one sheet")
	}
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DCE6F1"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx header style: %w", err)
	}

	for i, sheet := range sheets {
		if len(sheet.Data.Headers) == 0 {
			return nil, fmt.Errorf("xlsx sheet %q requires at least one header", sheet.Name)
		}
		name := sheet.Name
		if name == "" {
			name = fmt.Sprintf("Sheet%d", i+1)
		}
		if i == 0 {
			if err := f.SetSheetName("Sheet1", name); err != nil {
				return nil, fmt.Errorf("xlsx rename sheet: %w", err)
			}
		} else if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("xlsx new sheet %q: %w", name, err)
		}

		header := make([]interface{}, len(sheet.Data.Headers))
		for j, h := range sheet.Data.Headers {
			header[j] = h
		}
		if err := f.SetSheetRow(name, "A1", &header); err != nil {
			return nil, fmt.Errorf("xlsx header row: %w", err)
		}
		last, _ := excelize.CoordinatesToCellName(len(sheet.Data.Headers), 1)
		if err := f.SetCellStyle(name, "A1", last, headerStyle); err != nil {
			return nil, fmt.Errorf("xlsx header style: %w", err)
		}

		for r, row := range sheet.Data.Rows {
			values := make([]interface{}, len(sheet.Data.Headers))
			for j, h := range sheet.Data.Headers {
				values[j] = cellValue(row[h])
			}
			cell, _ := excelize.CoordinatesToCellName(1, r+2)
			if err := f.SetSheetRow(name, cell, &values); err != nil {
				return nil, fmt.Errorf("xlsx row %d: %w", r+1, err)
			}
		}

		if err := f.SetPanes(name, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
			return nil, fmt.Errorf("xlsx freeze header: %w", err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(raw string) interface{} {
	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}
	return raw
}

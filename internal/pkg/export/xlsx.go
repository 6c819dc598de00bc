package export

import (
	"fmt"
	"io"
	"time"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
)

const defaultSheet = "Export"

// XLSXWriter writes one worksheet with a styled, filterable header row.
type XLSXWriter struct {
	SheetName string
}

func (XLSXWriter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXWriter) Extension() string { return "xlsx" }

func (xw XLSXWriter) Write(w io.Writer, t Table) error {
	sheet := xw.SheetName
	if sheet == "" {
		sheet = defaultSheet
	}

	f := excelize.NewFile()
	defer f.Close()
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"28916C"}, Pattern: 1},
	})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}
	dateStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: strPtr("yyyy-mm-dd hh:mm")})
	if err != nil {
		return fmt.Errorf("create style: %w", err)
	}

	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		widths[i] = utf8.RuneCountInString(h)
	}
	if len(t.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), 1)
		_ = f.SetCellStyle(sheet, "A1", last, header)
	}

	for r, row := range t.Rows {
		for c := 0; c < len(t.Headers) && c < len(row); c++ {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			v := row[c]
			switch x := v.(type) {
			case *time.Time:
				if x == nil {
					continue
				}
				v = *x
			case nil:
				continue
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return fmt.Errorf("write cell %s: %w", cell, err)
			}
			if _, isTime := v.(time.Time); isTime {
				_ = f.SetCellStyle(sheet, cell, cell, dateStyle)
			}
			if n := utf8.RuneCountInString(text(v)); n > widths[c] {
				widths[c] = n
			}
		}
	}

	for i, wdt := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		_ = f.SetColWidth(sheet, col, col, float64(clamp(wdt+2, 8, 60)))
	}
	if len(t.Headers) > 0 {
		last, _ := excelize.CoordinatesToCellName(len(t.Headers), len(t.Rows)+1)
		if err := f.AutoFilter(sheet, "A1:"+last, nil); err != nil {
			return fmt.Errorf("set auto filter: %w", err)
		}
		_ = f.SetPanes(sheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"})
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func strPtr(s string) *string { return &s }

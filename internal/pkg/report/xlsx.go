package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/xuri/excelize/v2"
)

const xlsxSheet = "Report"

// XLSXRenderer writes a Document as a single worksheet, one section after another.
type XLSXRenderer struct{}

func (XLSXRenderer) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

func (XLSXRenderer) Extension() string { return "xlsx" }

type xlsxStyles struct {
	title, bold, header int
}

func (XLSXRenderer) Render(w io.Writer, doc Document) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}

	styles, err := newXLSXStyles(f)
	if err != nil {
		return err
	}

	row := 1
	put := func(col int, value interface{}, style int) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(xlsxSheet, cell, value)
		if style != 0 {
			_ = f.SetCellStyle(xlsxSheet, cell, cell, style)
		}
	}

	put(1, doc.Title, styles.title)
	row++
	if doc.Subtitle != "" {
		put(1, doc.Subtitle, 0)
		row++
	}
	for _, m := range doc.Meta {
		put(1, m.Label, styles.bold)
		put(2, m.Value, 0)
		row++
	}
	row++

	maxCols := 2
	for _, s := range doc.Sections {
		switch s.Kind {
		case KindHeading:
			put(1, s.Title, styles.bold)
			row++
		case KindKeyValues:
			if s.Title != "" {
				put(1, s.Title, styles.bold)
				row++
			}
			for _, p := range s.Pairs {
				put(1, p.Label, 0)
				put(2, p.Value, 0)
				row++
			}
			row++
		case KindTable:
			if s.Title != "" {
				put(1, s.Title, styles.bold)
				row++
			}
			for i, c := range s.Columns {
				put(i+1, c.Header, styles.header)
			}
			if len(s.Columns) > maxCols {
				maxCols = len(s.Columns)
			}
			row++
			for _, r := range s.Rows {
				for i, v := range r {
					put(i+1, cellValue(s.Columns, i, v), 0)
				}
				row++
			}
			row++
		case KindParagraph:
			if s.Title != "" {
				put(1, s.Title, styles.bold)
				row++
			}
			put(1, s.Text, 0)
			row += 2
		case KindSignature:
			for i, label := range s.Labels {
				put(i+1, label+": ____________", 0)
			}
			row += 2
		}
	}

	lastCol, _ := excelize.ColumnNumberToName(maxCols)
	if err := f.SetColWidth(xlsxSheet, "A", lastCol, 22); err != nil {
		return fmt.Errorf("set column width: %w", err)
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func newXLSXStyles(f *excelize.File) (xlsxStyles, error) {
	var s xlsxStyles
	var err error
	if s.title, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true, Size: 14}}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	if s.bold, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	s.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"28916C"}, Pattern: 1},
	})
	if err != nil {
		return s, fmt.Errorf("create style: %w", err)
	}
	return s, nil
}

// cellValue writes right-aligned numeric columns as numbers so they can be summed.
func cellValue(cols []Column, i int, v string) interface{} {
	if i < len(cols) && cols[i].Align == "R" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return v
}

package export

import (
	"encoding/csv"
	"fmt"
	"io"
)

// CSVWriter writes RFC 4180 CSV.
type CSVWriter struct {
	// BOM prefixes the UTF-8 byte order mark so spreadsheet apps detect the encoding.
	BOM bool
}

func (CSVWriter) ContentType() string { return "text/csv; charset=utf-8" }
func (CSVWriter) Extension() string   { return "csv" }

func (cw CSVWriter) Write(w io.Writer, t Table) error {
	if cw.BOM {
		if _, err := w.Write([]byte("\xEF\xBB\xBF")); err != nil {
			return fmt.Errorf("write csv: %w", err)
		}
	}
	out := csv.NewWriter(w)
	if err := out.Write(t.Headers); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	record := make([]string, len(t.Headers))
	for _, row := range t.Rows {
		for i := range record {
			record[i] = ""
			if i < len(row) {
				record[i] = neutralize(text(row[i]))
			}
		}
		if err := out.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	out.Flush()
	return out.Error()
}

// neutralize keeps spreadsheet apps from evaluating user text as a formula.
func neutralize(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		return "'" + s
	}
	return s
}

// Package export writes flat tables as CSV or XLSX downloads.
package export

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrUnsupportedFormat is returned for formats other than csv and xlsx.
var ErrUnsupportedFormat = errors.New("unsupported export format")

// Table is a header row plus data rows. Cells may be string, bool, integers,
// float64, time.Time, *time.Time or nil.
type Table struct {
	Title   string
	Headers []string
	Rows    [][]interface{}
}

// Writer renders a Table to a download format.
type Writer interface {
	Write(w io.Writer, t Table) error
	ContentType() string
	Extension() string
}

// For picks the writer for a format query value. Empty means CSV.
func For(format string) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "csv":
		return CSVWriter{BOM: true}, nil
	case "xlsx":
		return XLSXWriter{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

// Filename builds "<base>-YYYYMMDD.<ext>".
func Filename(base string, w Writer, now time.Time) string {
	return fmt.Sprintf("%s-%s.%s", base, now.Format("20060102"), w.Extension())
}

// ContentDisposition is the attachment header value for filename.
func ContentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="%s"`, strings.ReplaceAll(filename, `"`, ""))
}

const timeLayout = "2006-01-02 15:04"

// text formats a cell for text based output.
func text(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		if x.IsZero() {
			return ""
		}
		return x.Format(timeLayout)
	case *time.Time:
		if x == nil {
			return ""
		}
		return text(*x)
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

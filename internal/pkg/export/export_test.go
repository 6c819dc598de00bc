package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func sampleTable() Table {
	sent := time.Date(2025, 10, 3, 9, 30, 0, 0, time.UTC)
	return Table{
		Headers: []string{"id", "sentAt", "title", "content", "isRead", "readAt"},
		Rows: [][]interface{}{
			{int64(1), sent, "Ouderavond", "Donderdag, 19:00 \"aula\"\nGraag bevestigen", false, (*time.Time)(nil)},
			{int64(2), sent, "=HYPERLINK(\"x\")", "ok", true, &sent},
		},
	}
}

func TestCSVWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, CSVWriter{BOM: true}.Write(&buf, sampleTable()))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\xEF\xBB\xBF")))

	records, err := csv.NewReader(bytes.NewReader(buf.Bytes()[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)

	assert.Equal(t, []string{"id", "sentAt", "title", "content", "isRead", "readAt"}, records[0])
	assert.Equal(t, "2025-10-03 09:30", records[1][1])
	assert.Equal(t, "Donderdag, 19:00 \"aula\"\nGraag bevestigen", records[1][3], "quotes and newlines survive")
	assert.Equal(t, "", records[1][5])
	assert.Equal(t, "'=HYPERLINK(\"x\")", records[2][2], "formulas are neutralized")
	assert.Equal(t, "true", records[2][4])
}

func TestXLSXWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, XLSXWriter{SheetName: "Berichten"}.Write(&buf, sampleTable()))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows("Berichten")
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "title", rows[0][2])
	assert.Equal(t, "Ouderavond", rows[1][2])
	assert.Equal(t, "=HYPERLINK(\"x\")", rows[2][2], "stored as text, not a formula")
	assert.Equal(t, "TRUE", rows[2][4])
}

func TestFor(t *testing.T) {
	w, err := For("")
	require.NoError(t, err)
	assert.Equal(t, "csv", w.Extension())

	w, err = For("XLSX")
	require.NoError(t, err)
	assert.Equal(t, "xlsx", w.Extension())

	_, err = For("pdf")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	name := Filename("messages", CSVWriter{}, time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, "messages-20250102.csv", name)
	assert.Equal(t, `attachment; filename="messages-20250102.csv"`, ContentDisposition(name))
}

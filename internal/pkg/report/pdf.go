package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

const (
	pdfMargin       = 15.0
	pdfLineHeight   = 6.0
	pdfRowHeight    = 7.0
	pdfFontFamily   = "Helvetica"
	pdfLabelWidth   = 55.0
	pdfSignatureGap = 22.0
)

// PDFRenderer lays a Document out on A4 portrait pages with gofpdf.
type PDFRenderer struct {
	// Brand is printed in the footer of every page.
	Brand string
}

func (r PDFRenderer) ContentType() string { return "application/pdf" }
func (r PDFRenderer) Extension() string   { return "pdf" }

// Render writes doc as PDF.
func (r PDFRenderer) Render(w io.Writer, doc Document) error {
	pdf, err := r.build(doc)
	if err != nil {
		return err
	}
	return pdf.Output(w)
}

type pdfLayout struct {
	pdf        *gofpdf.Fpdf
	tr         func(string) string
	width      float64 // usable width between margins
	pageHeight float64
}

func (r PDFRenderer) build(doc Document) (*gofpdf.Fpdf, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.SetAutoPageBreak(true, pdfMargin+5)
	pdf.AliasNbPages("")
	if !doc.GeneratedAt.IsZero() {
		pdf.SetCreationDate(doc.GeneratedAt)
	}
	pdf.SetTitle(doc.Title, true)

	pageW, pageH := pdf.GetPageSize()
	l := &pdfLayout{
		pdf:        pdf,
		tr:         pdf.UnicodeTranslatorFromDescriptor(""),
		width:      pageW - 2*pdfMargin,
		pageHeight: pageH,
	}

	pdf.SetFooterFunc(func() {
		pdf.SetY(-pdfMargin)
		pdf.SetFont(pdfFontFamily, "I", 8)
		pdf.SetTextColor(120, 120, 120)
		left := r.Brand
		if !doc.GeneratedAt.IsZero() {
			left = strings.TrimSpace(fmt.Sprintf("%s  %s", left, doc.GeneratedAt.Format("02-01-2006 15:04")))
		}
		pdf.CellFormat(l.width/2, 5, l.tr(left), "", 0, "L", false, 0, "")
		pdf.CellFormat(l.width/2, 5, fmt.Sprintf("%d / {nb}", pdf.PageNo()), "", 0, "R", false, 0, "")
	})

	pdf.AddPage()
	l.header(doc)

	for i, s := range doc.Sections {
		if err := l.section(s); err != nil {
			return nil, fmt.Errorf("section %d (%s): %w", i, s.Kind, err)
		}
	}

	if err := pdf.Error(); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return pdf, nil
}

func (l *pdfLayout) header(doc Document) {
	pdf := l.pdf
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(pdfFontFamily, "B", 16)
	pdf.CellFormat(l.width, 9, l.tr(doc.Title), "", 1, "L", false, 0, "")
	if doc.Subtitle != "" {
		pdf.SetFont(pdfFontFamily, "", 11)
		pdf.CellFormat(l.width, pdfLineHeight, l.tr(doc.Subtitle), "", 1, "L", false, 0, "")
	}
	if len(doc.Meta) > 0 {
		parts := make([]string, 0, len(doc.Meta))
		for _, m := range doc.Meta {
			parts = append(parts, m.Label+": "+m.Value)
		}
		pdf.SetFont(pdfFontFamily, "", 9)
		pdf.SetTextColor(90, 90, 90)
		pdf.MultiCell(l.width, 5, l.tr(strings.Join(parts, "   |   ")), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(1)
	pdf.SetDrawColor(40, 145, 108)
	pdf.SetLineWidth(0.5)
	pdf.Line(pdfMargin, pdf.GetY(), pdfMargin+l.width, pdf.GetY())
	pdf.Ln(5)
}

func (l *pdfLayout) section(s Section) error {
	switch s.Kind {
	case KindHeading:
		l.ensureSpace(pdfLineHeight * 3)
		l.title(s.Title)
	case KindKeyValues:
		l.ensureSpace(pdfLineHeight * 2)
		l.title(s.Title)
		l.keyValues(s.Pairs)
	case KindTable:
		if len(s.Columns) == 0 {
			return fmt.Errorf("table without columns")
		}
		l.ensureSpace(pdfLineHeight + 2*pdfRowHeight)
		l.title(s.Title)
		l.table(s.Columns, s.Rows)
	case KindParagraph:
		l.title(s.Title)
		l.pdf.SetFont(pdfFontFamily, "", 10)
		l.pdf.MultiCell(l.width, 5, l.tr(s.Text), "", "L", false)
		l.pdf.Ln(3)
	case KindSpacer:
		l.pdf.Ln(s.Height)
	case KindSignature:
		l.signature(s.Labels)
	default:
		return fmt.Errorf("unknown section kind %q", s.Kind)
	}
	return nil
}

// ensureSpace starts a new page when fewer than h millimetres are left.
func (l *pdfLayout) ensureSpace(h float64) {
	_, _, _, bottom := l.pdf.GetMargins()
	if l.pdf.GetY()+h > l.pageHeight-bottom-5 {
		l.pdf.AddPage()
	}
}

func (l *pdfLayout) title(title string) {
	if title == "" {
		return
	}
	pdf := l.pdf
	pdf.SetFont(pdfFontFamily, "B", 12)
	pdf.CellFormat(l.width, 7, l.tr(title), "", 1, "L", false, 0, "")
	pdf.SetDrawColor(200, 200, 200)
	pdf.SetLineWidth(0.3)
	pdf.Line(pdfMargin, pdf.GetY(), pdfMargin+l.width, pdf.GetY())
	pdf.Ln(2)
}

func (l *pdfLayout) keyValues(pairs []Pair) {
	pdf := l.pdf
	for _, p := range pairs {
		l.ensureSpace(pdfLineHeight)
		pdf.SetFont(pdfFontFamily, "", 10)
		pdf.CellFormat(pdfLabelWidth, pdfLineHeight, l.tr(p.Label), "", 0, "L", false, 0, "")
		pdf.SetFont(pdfFontFamily, "B", 10)
		pdf.CellFormat(l.width-pdfLabelWidth, pdfLineHeight, l.fit(p.Value, l.width-pdfLabelWidth), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

// columnWidths spreads the usable width over the relative column widths.
func (l *pdfLayout) columnWidths(cols []Column) []float64 {
	var total float64
	for _, c := range cols {
		if c.Width > 0 {
			total += c.Width
		} else {
			total++
		}
	}
	widths := make([]float64, len(cols))
	for i, c := range cols {
		w := c.Width
		if w <= 0 {
			w = 1
		}
		widths[i] = l.width * w / total
	}
	return widths
}

func (l *pdfLayout) tableHeader(cols []Column, widths []float64) {
	pdf := l.pdf
	pdf.SetFont(pdfFontFamily, "B", 9)
	pdf.SetFillColor(40, 145, 108)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetDrawColor(200, 200, 200)
	for i, c := range cols {
		pdf.CellFormat(widths[i], pdfRowHeight+1, l.fit(c.Header, widths[i]), "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont(pdfFontFamily, "", 9)
}

// table draws the rows, breaking pages itself so every page repeats the header.
func (l *pdfLayout) table(cols []Column, rows [][]string) {
	pdf := l.pdf
	widths := l.columnWidths(cols)
	l.tableHeader(cols, widths)

	_, _, _, bottom := pdf.GetMargins()
	for r, row := range rows {
		if pdf.GetY()+pdfRowHeight > l.pageHeight-bottom-5 {
			pdf.AddPage()
			l.tableHeader(cols, widths)
		}
		fill := r%2 == 1
		pdf.SetFillColor(242, 247, 245)
		for i := range cols {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			align := cols[i].Align
			if align == "" {
				align = "L"
			}
			pdf.CellFormat(widths[i], pdfRowHeight, l.fit(cell, widths[i]), "1", 0, align, fill, 0, "")
		}
		pdf.Ln(-1)
	}
	if len(rows) == 0 {
		pdf.SetFont(pdfFontFamily, "I", 9)
		pdf.CellFormat(l.width, pdfRowHeight, l.tr("No records"), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
}

func (l *pdfLayout) signature(labels []string) {
	if len(labels) == 0 {
		return
	}
	pdf := l.pdf
	l.ensureSpace(pdfSignatureGap + pdfLineHeight)
	pdf.Ln(pdfSignatureGap - 6)

	gap := 10.0
	w := (l.width - gap*float64(len(labels)-1)) / float64(len(labels))
	y := pdf.GetY()
	pdf.SetDrawColor(0, 0, 0)
	pdf.SetLineWidth(0.3)
	for i, label := range labels {
		x := pdfMargin + float64(i)*(w+gap)
		pdf.Line(x, y, x+w, y)
		pdf.SetXY(x, y+1)
		pdf.SetFont(pdfFontFamily, "", 9)
		pdf.CellFormat(w, 5, l.fit(label, w), "", 0, "C", false, 0, "")
	}
	pdf.Ln(8)
}

// fit translates s for the core fonts and shortens it to fit within width.
func (l *pdfLayout) fit(s string, width float64) string {
	out := l.tr(s)
	limit := width - 2
	if l.pdf.GetStringWidth(out) <= limit {
		return out
	}
	runes := []rune(s)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		out = l.tr(string(runes) + "...")
		if l.pdf.GetStringWidth(out) <= limit {
			return out
		}
	}
	return ""
}

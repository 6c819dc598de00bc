package report

import (
	"io"
	"time"
)

// SectionKind selects how a section is laid out.
type SectionKind string

const (
	KindHeading   SectionKind = "heading"
	KindKeyValues SectionKind = "key_values"
	KindTable     SectionKind = "table"
	KindParagraph SectionKind = "paragraph"
	KindSpacer    SectionKind = "spacer"
	KindSignature SectionKind = "signature"
)

// Pair is a label/value line.
type Pair struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Column describes one table column. Width is relative to the other columns.
type Column struct {
	Header string  `json:"header"`
	Width  float64 `json:"width"`
	Align  string  `json:"align,omitempty"` // L, C or R
}

// Section is one block of a Document. Which fields are used depends on Kind.
type Section struct {
	Kind    SectionKind `json:"kind"`
	Title   string      `json:"title,omitempty"`
	Text    string      `json:"text,omitempty"`
	Pairs   []Pair      `json:"pairs,omitempty"`
	Columns []Column    `json:"columns,omitempty"`
	Rows    [][]string  `json:"rows,omitempty"`
	// Height is the gap in millimetres for spacers.
	Height float64 `json:"height,omitempty"`
	// Labels are the signature lines.
	Labels []string `json:"labels,omitempty"`
}

// Document is a renderer-independent description of a report. Sections are
// laid out top to bottom; renderers decide coordinates and page breaks.
type Document struct {
	Title       string    `json:"title"`
	Subtitle    string    `json:"subtitle,omitempty"`
	Meta        []Pair    `json:"meta,omitempty"`
	Sections    []Section `json:"sections"`
	GeneratedAt time.Time `json:"generatedAt"`
}

// Renderer writes a Document in one output format.
type Renderer interface {
	Render(w io.Writer, doc Document) error
	ContentType() string
	Extension() string
}

func Heading(title string) Section {
	return Section{Kind: KindHeading, Title: title}
}

func KeyValues(title string, pairs ...Pair) Section {
	return Section{Kind: KindKeyValues, Title: title, Pairs: pairs}
}

func Table(title string, columns []Column, rows [][]string) Section {
	return Section{Kind: KindTable, Title: title, Columns: columns, Rows: rows}
}

func Paragraph(title, text string) Section {
	return Section{Kind: KindParagraph, Title: title, Text: text}
}

func Spacer(height float64) Section {
	return Section{Kind: KindSpacer, Height: height}
}

func Signature(labels ...string) Section {
	return Section{Kind: KindSignature, Labels: labels}
}

package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func entries(statuses ...string) []AttendanceEntry {
	out := make([]AttendanceEntry, len(statuses))
	day := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)
	for i, s := range statuses {
		out[i] = AttendanceEntry{Date: day.AddDate(0, 0, i), Status: s}
	}
	return out
}

func TestPercentage(t *testing.T) {
	tests := []struct {
		name           string
		present, total int
		want           int
	}{
		{"no records is zero", 0, 0, 0},
		{"all present", 5, 5, 100},
		{"two of three rounds up", 2, 3, 67},
		{"one of three rounds down", 1, 3, 33},
		{"half", 1, 2, 50},
		{"one of eight rounds half up", 1, 8, 13},
		{"none present", 0, 4, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Percentage(tt.present, tt.total))
		})
	}
}

func TestSummarizeAttendance(t *testing.T) {
	s := SummarizeAttendance(entries("present", "absent", "late", "PRESENT", "excused", "present"))
	assert.Equal(t, AttendanceSummary{Total: 6, Present: 3, Absent: 1, Late: 1, Excused: 1, Percentage: 50}, s)

	assert.Equal(t, AttendanceSummary{}, SummarizeAttendance(nil))
}

func TestSummarizeGrades(t *testing.T) {
	grades := []GradeEntry{
		{Subject: "Arabic", Kind: "test", Score: 8},
		{Subject: "Arabic", Kind: "test", Score: 6},
		{Subject: "Arabic", Kind: "task", Score: 9},
		{Subject: "Arabic", Kind: "homework", Score: 10},
		{Subject: "Quran", Kind: "homework", Score: 7},
		{Subject: "Quran", Kind: "quiz", Score: 1}, // unknown bucket is ignored
	}

	s := SummarizeGrades(grades, DefaultWeights())
	require.Len(t, s.Subjects, 2)

	arabic := s.Subjects[0]
	assert.Equal(t, "Arabic", arabic.Subject)
	assert.Equal(t, Bucket{Count: 2, Average: 7}, arabic.Tests)
	assert.Equal(t, Bucket{Count: 1, Average: 9}, arabic.Tasks)
	// 0.5*7 + 0.3*9 + 0.2*10 = 8.2
	assert.Equal(t, 8.2, arabic.Average)

	quran := s.Subjects[1]
	assert.Equal(t, Bucket{}, quran.Tests)
	// only homework present: weights renormalise to the bucket mean
	assert.Equal(t, 7.0, quran.Average)

	assert.Equal(t, 7.6, s.Overall)
}

func TestSummarizeGrades_Empty(t *testing.T) {
	s := SummarizeGrades(nil, DefaultWeights())
	assert.Empty(t, s.Subjects)
	assert.Zero(t, s.Overall)
}

func TestSummarizeBehavior(t *testing.T) {
	d := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	s := SummarizeBehavior([]BehaviorEntry{
		{Date: d, Category: "positive", Description: "helped"},
		{Date: d.AddDate(0, 0, 2), Category: "negative", Description: "late twice"},
		{Date: d.AddDate(0, 0, 1), Category: "neutral", Description: "note"},
	})
	assert.Equal(t, 1, s.Positive)
	assert.Equal(t, 1, s.Negative)
	assert.Equal(t, 1, s.Neutral)
	assert.Equal(t, "late twice", s.Entries[0].Description, "newest first")
}

func TestValidateSections(t *testing.T) {
	tests := []struct {
		name    string
		typ     TemplateType
		keys    []string
		wantErr error
	}{
		{"defaults are valid", TemplateReportCard, DefaultSections(TemplateReportCard), nil},
		{"subset in custom order", TemplateReportCard, []string{SectionGrades, SectionStudentInfo}, nil},
		{"section of another type", TemplateReportCard, []string{SectionGroupAttendance}, ErrUnknownSection},
		{"duplicate", TemplateAttendance, []string{SectionAttendance, SectionAttendance}, ErrDuplicateSection},
		{"unknown type", "transcript", nil, ErrUnknownTemplateType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateSections(tt.typ, tt.keys)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func sampleStudentReport() StudentReport {
	dob := time.Date(2014, 3, 2, 0, 0, 0, 0, time.UTC)
	return StudentReport{
		School:     "Madrasa Al-Huda",
		Student:    StudentInfo{Name: "Yusuf El Amrani", StudentNumber: "S-0042", Group: "Groep 3A", AcademicYear: "2025-2026", DateOfBirth: &dob},
		Period:     "01-09-2025 - 31-01-2026",
		Attendance: entries("present", "present", "absent", "late"),
		Grades: []GradeEntry{
			{Subject: "Arabisch", Kind: "test", Score: 7},
			{Subject: "Koran", Kind: "homework", Score: 9},
		},
		Behavior:    []BehaviorEntry{{Date: dob.AddDate(11, 7, 0), Category: "positive", Description: "Hielp een klasgenoot (één keer)"}},
		Remarks:     "Goede inzet.",
		GeneratedAt: time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC),
	}
}

func TestBuildStudentDocument_FollowsTemplateOrder(t *testing.T) {
	doc, err := BuildStudentDocument(TemplateReportCard, sampleStudentReport(), []string{SectionGrades, SectionAttendance})
	require.NoError(t, err)

	require.Len(t, doc.Sections, 2)
	assert.Equal(t, "Grades", doc.Sections[0].Title)
	assert.Equal(t, KindTable, doc.Sections[0].Kind)
	assert.Equal(t, "Attendance", doc.Sections[1].Title)
	assert.Contains(t, doc.Sections[1].Pairs, Pair{Label: "Attendance", Value: "50%"})
}

func TestBuildStudentDocument_RejectsUnknownSection(t *testing.T) {
	_, err := BuildStudentDocument(TemplateAttendance, sampleStudentReport(), []string{SectionGrades})
	assert.ErrorIs(t, err, ErrUnknownSection)

	_, err = BuildStudentDocument(TemplateGroupOverview, sampleStudentReport(), nil)
	assert.ErrorIs(t, err, ErrUnknownTemplateType)
}

func TestPDFRenderer_RendersAllSections(t *testing.T) {
	doc, err := BuildStudentDocument(TemplateReportCard, sampleStudentReport(), nil)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, PDFRenderer{Brand: "Madrasa"}.Render(&buf, doc))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
}

func TestPDFRenderer_LongTablesBreakPages(t *testing.T) {
	students := make([]GroupStudent, 120)
	for i := range students {
		students[i] = GroupStudent{
			Name:          fmt.Sprintf("Student %03d with a rather long family name that will not fit", i),
			StudentNumber: fmt.Sprintf("S-%04d", i),
			Attendance:    entries("present", "absent"),
		}
	}
	doc, err := BuildGroupDocument(GroupReport{School: "Madrasa", GroupName: "3A", Students: students}, nil)
	require.NoError(t, err)

	pdf, err := PDFRenderer{}.build(doc)
	require.NoError(t, err)
	assert.Greater(t, pdf.PageNo(), 2)
}

func TestPDFRenderer_UnknownKind(t *testing.T) {
	err := PDFRenderer{}.Render(&bytes.Buffer{}, Document{Title: "x", Sections: []Section{{Kind: "chart"}}})
	assert.Error(t, err)
}

func TestXLSXRenderer(t *testing.T) {
	doc, err := BuildGroupDocument(GroupReport{
		School:    "Madrasa",
		GroupName: "3A",
		Students: []GroupStudent{
			{Name: "Amina", StudentNumber: "0007", Attendance: entries("present", "present", "late")},
		},
	}, []string{SectionGroupAttendance})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, XLSXRenderer{}.Render(&buf, doc))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(xlsxSheet)
	require.NoError(t, err)
	assert.Equal(t, "Group attendance overview", rows[0][0])

	var found []string
	for _, r := range rows {
		if len(r) > 0 && r[0] == "Amina" {
			found = r
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "0007", found[1], "identifiers stay text")
	assert.Equal(t, "67", found[6])
}

func TestJSONRendererAndRendererFor(t *testing.T) {
	r, err := RendererFor("JSON", "")
	require.NoError(t, err)
	assert.Equal(t, "json", r.Extension())

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, Document{Title: "Preview", Sections: []Section{Heading("A")}}))
	var decoded Document
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, "Preview", decoded.Title)

	r, err = RendererFor("", "x")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", r.ContentType())

	_, err = RendererFor("docx", "")
	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

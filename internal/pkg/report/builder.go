package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// TemplateType names a family of reports sharing data and allowed sections.
type TemplateType string

const (
	TemplateReportCard    TemplateType = "report_card"
	TemplateAttendance    TemplateType = "attendance"
	TemplateGroupOverview TemplateType = "group_overview"
)

// Section keys a template may list, in the order it wants them.
const (
	SectionStudentInfo      = "student_info"
	SectionAttendance       = "attendance"
	SectionAttendanceDetail = "attendance_detail"
	SectionGrades           = "grades"
	SectionBehavior         = "behavior"
	SectionRemarks          = "remarks"
	SectionSignature        = "signature"
	SectionGroupInfo        = "group_info"
	SectionGroupAttendance  = "group_attendance"
)

var (
	ErrUnknownTemplateType = errors.New("unknown report template type")
	ErrUnknownSection      = errors.New("unknown report section")
	ErrDuplicateSection    = errors.New("duplicate report section")
	ErrUnsupportedFormat   = errors.New("unsupported report format")
)

var allowedSections = map[TemplateType][]string{
	TemplateReportCard:    {SectionStudentInfo, SectionAttendance, SectionGrades, SectionBehavior, SectionRemarks, SectionSignature},
	TemplateAttendance:    {SectionStudentInfo, SectionAttendance, SectionAttendanceDetail, SectionSignature},
	TemplateGroupOverview: {SectionGroupInfo, SectionGroupAttendance, SectionSignature},
}

// DefaultSections is the full section list of t in its natural order.
func DefaultSections(t TemplateType) []string {
	return append([]string(nil), allowedSections[t]...)
}

// ValidateSections checks that every key is known for t and listed once.
func ValidateSections(t TemplateType, keys []string) error {
	allowed, ok := allowedSections[t]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownTemplateType, t)
	}
	seen := make(map[string]bool, len(keys))
	for _, k := range keys {
		if !contains(allowed, k) {
			return fmt.Errorf("%w: %q is not available for %s (allowed: %s)", ErrUnknownSection, k, t, strings.Join(allowed, ", "))
		}
		if seen[k] {
			return fmt.Errorf("%w: %q", ErrDuplicateSection, k)
		}
		seen[k] = true
	}
	return nil
}

// StudentInfo identifies the student a report is about.
type StudentInfo struct {
	Name          string
	StudentNumber string
	Group         string
	AcademicYear  string
	DateOfBirth   *time.Time
}

// StudentReport is the raw input of a report card or a student attendance report.
type StudentReport struct {
	School      string
	Student     StudentInfo
	Period      string
	Attendance  []AttendanceEntry
	Grades      []GradeEntry
	Behavior    []BehaviorEntry
	Remarks     string
	Weights     Weights
	GeneratedAt time.Time
}

// GroupStudent is one row of a group overview.
type GroupStudent struct {
	Name          string
	StudentNumber string
	Attendance    []AttendanceEntry
}

// GroupReport is the raw input of a group attendance overview.
type GroupReport struct {
	School       string
	GroupName    string
	AcademicYear string
	Program      string
	Instructor   string
	Period       string
	Students     []GroupStudent
	GeneratedAt  time.Time
}

// BuildStudentDocument composes the sections of a student report in the given order.
// An empty section list means the template type's defaults.
func BuildStudentDocument(t TemplateType, data StudentReport, sections []string) (Document, error) {
	if t != TemplateReportCard && t != TemplateAttendance {
		return Document{}, fmt.Errorf("%w: %q is not a student report", ErrUnknownTemplateType, t)
	}
	if len(sections) == 0 {
		sections = DefaultSections(t)
	}
	if err := ValidateSections(t, sections); err != nil {
		return Document{}, err
	}

	title := "Report card"
	if t == TemplateAttendance {
		title = "Attendance report"
	}
	doc := Document{
		Title:       title,
		Subtitle:    data.School,
		Meta:        studentMeta(data),
		GeneratedAt: data.GeneratedAt,
	}

	attendance := SummarizeAttendance(data.Attendance)
	for _, key := range sections {
		switch key {
		case SectionStudentInfo:
			doc.Sections = append(doc.Sections, studentInfoSection(data.Student))
		case SectionAttendance:
			doc.Sections = append(doc.Sections, attendanceSection(attendance))
		case SectionAttendanceDetail:
			doc.Sections = append(doc.Sections, attendanceDetailSection(data.Attendance))
		case SectionGrades:
			weights := data.Weights
			if weights == (Weights{}) {
				weights = DefaultWeights()
			}
			doc.Sections = append(doc.Sections, gradesSection(SummarizeGrades(data.Grades, weights)))
		case SectionBehavior:
			doc.Sections = append(doc.Sections, behaviorSections(SummarizeBehavior(data.Behavior))...)
		case SectionRemarks:
			remarks := data.Remarks
			if remarks == "" {
				remarks = "-"
			}
			doc.Sections = append(doc.Sections, Paragraph("Remarks", remarks))
		case SectionSignature:
			doc.Sections = append(doc.Sections, Spacer(6), Signature("Teacher", "Director", "Guardian"))
		}
	}
	return doc, nil
}

// BuildGroupDocument composes a group attendance overview, one row per student.
func BuildGroupDocument(data GroupReport, sections []string) (Document, error) {
	if len(sections) == 0 {
		sections = DefaultSections(TemplateGroupOverview)
	}
	if err := ValidateSections(TemplateGroupOverview, sections); err != nil {
		return Document{}, err
	}

	doc := Document{
		Title:       "Group attendance overview",
		Subtitle:    data.School,
		GeneratedAt: data.GeneratedAt,
	}
	if data.Period != "" {
		doc.Meta = append(doc.Meta, Pair{Label: "Period", Value: data.Period})
	}

	for _, key := range sections {
		switch key {
		case SectionGroupInfo:
			doc.Sections = append(doc.Sections, KeyValues("Group",
				Pair{Label: "Name", Value: data.GroupName},
				Pair{Label: "Academic year", Value: orDash(data.AcademicYear)},
				Pair{Label: "Program", Value: orDash(data.Program)},
				Pair{Label: "Instructor", Value: orDash(data.Instructor)},
				Pair{Label: "Students", Value: strconv.Itoa(len(data.Students))},
			))
		case SectionGroupAttendance:
			doc.Sections = append(doc.Sections, groupAttendanceSection(data.Students))
		case SectionSignature:
			doc.Sections = append(doc.Sections, Spacer(6), Signature("Teacher", "Director"))
		}
	}
	return doc, nil
}

func studentMeta(data StudentReport) []Pair {
	var meta []Pair
	if data.Student.AcademicYear != "" {
		meta = append(meta, Pair{Label: "Academic year", Value: data.Student.AcademicYear})
	}
	if data.Period != "" {
		meta = append(meta, Pair{Label: "Period", Value: data.Period})
	}
	return meta
}

func studentInfoSection(s StudentInfo) Section {
	dob := "-"
	if s.DateOfBirth != nil {
		dob = s.DateOfBirth.Format("02-01-2006")
	}
	return KeyValues("Student",
		Pair{Label: "Name", Value: s.Name},
		Pair{Label: "Student number", Value: orDash(s.StudentNumber)},
		Pair{Label: "Date of birth", Value: dob},
		Pair{Label: "Group", Value: orDash(s.Group)},
	)
}

func attendanceSection(a AttendanceSummary) Section {
	return KeyValues("Attendance",
		Pair{Label: "Registered lessons", Value: strconv.Itoa(a.Total)},
		Pair{Label: "Present", Value: strconv.Itoa(a.Present)},
		Pair{Label: "Absent", Value: strconv.Itoa(a.Absent)},
		Pair{Label: "Late", Value: strconv.Itoa(a.Late)},
		Pair{Label: "Excused", Value: strconv.Itoa(a.Excused)},
		Pair{Label: "Attendance", Value: fmt.Sprintf("%d%%", a.Percentage)},
	)
}

func attendanceDetailSection(entries []AttendanceEntry) Section {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.Date.Format("02-01-2006"), e.Status, e.Note})
	}
	return Table("Attendance per lesson", []Column{
		{Header: "Date", Width: 1},
		{Header: "Status", Width: 1},
		{Header: "Note", Width: 3},
	}, rows)
}

func gradesSection(g GradeSummary) Section {
	rows := make([][]string, 0, len(g.Subjects)+1)
	for _, s := range g.Subjects {
		rows = append(rows, []string{
			s.Subject,
			bucketCell(s.Tests),
			bucketCell(s.Tasks),
			bucketCell(s.Homework),
			formatScore(s.Average),
		})
	}
	if len(g.Subjects) > 0 {
		rows = append(rows, []string{"Overall", "", "", "", formatScore(g.Overall)})
	}
	return Table("Grades", []Column{
		{Header: "Subject", Width: 3},
		{Header: "Tests", Width: 1.2, Align: "R"},
		{Header: "Tasks", Width: 1.2, Align: "R"},
		{Header: "Homework", Width: 1.2, Align: "R"},
		{Header: "Average", Width: 1.2, Align: "R"},
	}, rows)
}

func behaviorSections(b BehaviorSummary) []Section {
	sections := []Section{KeyValues("Behaviour",
		Pair{Label: "Positive", Value: strconv.Itoa(b.Positive)},
		Pair{Label: "Negative", Value: strconv.Itoa(b.Negative)},
		Pair{Label: "Neutral", Value: strconv.Itoa(b.Neutral)},
	)}
	if len(b.Entries) == 0 {
		return sections
	}
	rows := make([][]string, 0, len(b.Entries))
	for _, e := range b.Entries {
		rows = append(rows, []string{e.Date.Format("02-01-2006"), e.Category, e.Description})
	}
	return append(sections, Table("", []Column{
		{Header: "Date", Width: 1},
		{Header: "Category", Width: 1},
		{Header: "Description", Width: 4},
	}, rows))
}

func groupAttendanceSection(students []GroupStudent) Section {
	rows := make([][]string, 0, len(students))
	for _, s := range students {
		a := SummarizeAttendance(s.Attendance)
		rows = append(rows, []string{
			s.Name,
			s.StudentNumber,
			strconv.Itoa(a.Present),
			strconv.Itoa(a.Absent),
			strconv.Itoa(a.Late),
			strconv.Itoa(a.Excused),
			strconv.Itoa(a.Percentage),
		})
	}
	return Table("Attendance", []Column{
		{Header: "Student", Width: 3},
		{Header: "Number", Width: 1.5},
		{Header: "Present", Width: 1, Align: "R"},
		{Header: "Absent", Width: 1, Align: "R"},
		{Header: "Late", Width: 1, Align: "R"},
		{Header: "Excused", Width: 1, Align: "R"},
		{Header: "%", Width: 1, Align: "R"},
	}, rows)
}

func bucketCell(b Bucket) string {
	if b.Count == 0 {
		return "-"
	}
	return formatScore(b.Average)
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

// JSONRenderer writes the Document itself, for previews in the dashboard.
type JSONRenderer struct{}

func (JSONRenderer) ContentType() string { return "application/json; charset=utf-8" }
func (JSONRenderer) Extension() string   { return "json" }

func (JSONRenderer) Render(w io.Writer, doc Document) error {
	return json.NewEncoder(w).Encode(doc)
}

// RendererFor picks the renderer for a format query value. Empty means PDF.
func RendererFor(format, brand string) (Renderer, error) {
	switch strings.ToLower(format) {
	case "", "pdf":
		return PDFRenderer{Brand: brand}, nil
	case "xlsx":
		return XLSXRenderer{}, nil
	case "json":
		return JSONRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, format)
}

package services

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/repositories"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/report"
)

type fakeYears struct {
	*memStore[models.AcademicYear]
}

func (y fakeYears) GetActive(ctx context.Context) (*models.AcademicYear, error) {
	y.mu.Lock()
	defer y.mu.Unlock()
	for _, year := range y.items {
		if year.IsActive {
			found := year
			return &found, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("no academic year is active")
}

func (y fakeYears) Activate(context.Context, int64) error { return nil }

type fakeStudents struct {
	*memStore[models.Student]
	groups map[int64][]int64
}

func (s fakeStudents) ListByGroup(ctx context.Context, groupID int64) ([]*models.Student, error) {
	var out []*models.Student
	for _, id := range s.groups[groupID] {
		st, err := s.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, nil
}

func (s fakeStudents) Guardians(context.Context, int64) ([]*models.Guardian, error) { return nil, nil }
func (s fakeStudents) LinkGuardian(context.Context, int64, int64) error             { return nil }
func (s fakeStudents) UnlinkGuardian(context.Context, int64, int64) error           { return nil }

type fakeReportStore struct {
	attendance map[int64][]report.AttendanceEntry
	grades     []report.GradeEntry
	periods    []repositories.Period
	gradeYear  *int64
}

func (f *fakeReportStore) StudentAttendance(_ context.Context, studentID int64, p repositories.Period) ([]report.AttendanceEntry, error) {
	f.periods = append(f.periods, p)
	return f.attendance[studentID], nil
}

func (f *fakeReportStore) GroupAttendance(_ context.Context, _ int64, p repositories.Period) (map[int64][]report.AttendanceEntry, error) {
	f.periods = append(f.periods, p)
	return f.attendance, nil
}

func (f *fakeReportStore) Grades(_ context.Context, _ int64, academicYearID *int64) ([]report.GradeEntry, error) {
	f.gradeYear = academicYearID
	return f.grades, nil
}

func (f *fakeReportStore) Behavior(context.Context, int64, repositories.Period) ([]report.BehaviorEntry, error) {
	return nil, nil
}

func (f *fakeReportStore) CurrentGroup(context.Context, int64) (string, error) { return "Groep 3A", nil }

type fixedText map[string]string

func (t fixedText) String(_ context.Context, section, key string) string { return t[section+"."+key] }

type reportFixture struct {
	svc   ReportService
	store *fakeReportStore
}

func newReportFixture(t *testing.T) reportFixture {
	t.Helper()
	ctx := context.Background()
	qc := newTestCache()
	log := zerolog.Nop()

	years := fakeYears{newMemStore(func(y *models.AcademicYear) int64 { return y.ID }, func(y *models.AcademicYear, id int64) { y.ID = id })}
	_, err := years.Create(ctx, &models.AcademicYear{
		Name: "2025-2026", IsActive: true,
		StartDate: models.NewDate(2025, time.September, 1), EndDate: models.NewDate(2026, time.July, 10),
	})
	require.NoError(t, err)

	students := fakeStudents{
		memStore: newMemStore(func(s *models.Student) int64 { return s.ID }, func(s *models.Student, id int64) { s.ID = id }),
		groups:   map[int64][]int64{1: {1, 2}},
	}
	for _, st := range []models.Student{
		{StudentNumber: "S-001", FirstName: "Yusuf", LastName: "El Amrani"},
		{StudentNumber: "S-002", FirstName: "Maryam", LastName: "Jansen"},
	} {
		st := st
		_, err := students.Create(ctx, &st)
		require.NoError(t, err)
	}

	teachers := newMemStore(func(x *models.Teacher) int64 { return x.ID }, func(x *models.Teacher, id int64) { x.ID = id })
	_, err = teachers.Create(ctx, &models.Teacher{FirstName: "Ahmed", LastName: "Bakker"})
	require.NoError(t, err)

	groups := newMemStore(func(g *models.StudentGroup) int64 { return g.ID }, func(g *models.StudentGroup, id int64) { g.ID = id })
	_, err = groups.Create(ctx, &models.StudentGroup{Name: "Groep 3A", AcademicYearID: 1, Program: "Koran", InstructorID: int64Ptr(1), Capacity: 20})
	require.NoError(t, err)

	templates := newMemStore(func(x *models.ReportTemplate) int64 { return x.ID }, func(x *models.ReportTemplate, id int64) { x.ID = id })
	_, err = templates.Create(ctx, &models.ReportTemplate{
		Name: "Kort rapport", Type: string(report.TemplateReportCard),
		Sections: []string{report.SectionGrades, report.SectionStudentInfo}, IsDefault: true,
	})
	require.NoError(t, err)

	day := func(d int) time.Time { return time.Date(2025, time.October, d, 0, 0, 0, 0, time.UTC) }
	store := &fakeReportStore{
		attendance: map[int64][]report.AttendanceEntry{
			1: {{Date: day(1), Status: report.StatusPresent}, {Date: day(2), Status: report.StatusPresent}, {Date: day(3), Status: report.StatusLate}},
			2: {{Date: day(1), Status: report.StatusAbsent}},
		},
		grades: []report.GradeEntry{
			{Subject: "Arabisch", Kind: report.KindTest, Score: 8},
			{Subject: "Arabisch", Kind: report.KindHomework, Score: 6},
		},
	}

	studentSvc := NewStudentService(students, listing.Schema{}, qc, log)
	svc := NewReportService(ReportServiceDeps{
		Reports:       store,
		Students:      studentSvc,
		Groups:        NewStudentGroupService(groups, students, listing.Schema{}, qc, log),
		AcademicYears: NewAcademicYearService(years, listing.Schema{}, qc, log),
		Teachers: NewResourceService[models.Teacher](teachers, qc, ResourceConfig[models.Teacher]{
			Name: ResTeachers, SetID: func(x *models.Teacher, id int64) { x.ID = id },
		}, log),
		Templates: NewResourceService[models.ReportTemplate](templates, qc, ResourceConfig[models.ReportTemplate]{
			Name: ResReportTemplates, SetID: func(x *models.ReportTemplate, id int64) { x.ID = id },
		}, log),
		Settings:   fixedText{"general.schoolName": "Madrasa Al-Noor"},
		SchoolName: "Madrasa",
	}, log)
	return reportFixture{svc: svc, store: store}
}

func sectionTitles(doc report.Document) []string {
	var titles []string
	for _, s := range doc.Sections {
		titles = append(titles, s.Title)
	}
	return titles
}

func TestStudentCard_UsesDefaultTemplateAndActiveYear(t *testing.T) {
	f := newReportFixture(t)

	doc, err := f.svc.StudentCard(context.Background(), 1, ReportOptions{})
	require.NoError(t, err)

	assert.Equal(t, "Madrasa Al-Noor", doc.Subtitle)
	assert.Equal(t, []string{"Grades", "Student"}, sectionTitles(doc))
	require.NotNil(t, f.store.gradeYear)
	assert.Equal(t, int64(1), *f.store.gradeYear)

	require.Len(t, f.store.periods, 1)
	assert.Equal(t, time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC), *f.store.periods[0].From)
}

func TestStudentCard_TemplateMustMatchType(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.StudentAttendance(context.Background(), 1, ReportOptions{TemplateID: int64Ptr(1)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	_, err = f.svc.StudentCard(context.Background(), 1, ReportOptions{TemplateID: int64Ptr(99)})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)
}

func TestStudentCard_UnknownStudent(t *testing.T) {
	f := newReportFixture(t)

	_, err := f.svc.StudentCard(context.Background(), 42, ReportOptions{})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

func TestStudentAttendance_ExplicitPeriod(t *testing.T) {
	f := newReportFixture(t)
	from := time.Date(2025, time.October, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, time.September, 1, 0, 0, 0, 0, time.UTC)

	_, err := f.svc.StudentAttendance(context.Background(), 1, ReportOptions{From: &from, To: &to})
	assert.ErrorIs(t, err, apperrors.ErrValidationFailed)

	to = time.Date(2025, time.October, 31, 0, 0, 0, 0, time.UTC)
	doc, err := f.svc.StudentAttendance(context.Background(), 1, ReportOptions{From: &from, To: &to})
	require.NoError(t, err)
	assert.Equal(t, "Attendance report", doc.Title)
	assert.Contains(t, doc.Meta, report.Pair{Label: "Period", Value: "01-10-2025 - 31-10-2025"})
}

func TestGroupAttendance_OneRowPerStudent(t *testing.T) {
	f := newReportFixture(t)

	doc, err := f.svc.GroupAttendance(context.Background(), 1, ReportOptions{})
	require.NoError(t, err)

	var table *report.Section
	for i := range doc.Sections {
		if doc.Sections[i].Kind == report.KindTable {
			table = &doc.Sections[i]
		}
	}
	require.NotNil(t, table)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Yusuf El Amrani", table.Rows[0][0])
	assert.Equal(t, "67", table.Rows[0][6], "late does not count as present")
	assert.Equal(t, "0", table.Rows[1][6])

	_, err = f.svc.GroupAttendance(context.Background(), 9, ReportOptions{})
	assert.ErrorIs(t, err, apperrors.ErrResourceNotFound)
}

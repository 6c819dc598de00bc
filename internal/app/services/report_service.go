package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/app/repositories"
	"github.com/yigit/madrasa/internal/pkg/apperrors"
	"github.com/yigit/madrasa/internal/pkg/listing"
	"github.com/yigit/madrasa/internal/pkg/report"
)

// ReportStore reads the raw records that reports aggregate.
type ReportStore interface {
	StudentAttendance(ctx context.Context, studentID int64, period repositories.Period) ([]report.AttendanceEntry, error)
	GroupAttendance(ctx context.Context, groupID int64, period repositories.Period) (map[int64][]report.AttendanceEntry, error)
	Grades(ctx context.Context, studentID int64, academicYearID *int64) ([]report.GradeEntry, error)
	Behavior(ctx context.Context, studentID int64, period repositories.Period) ([]report.BehaviorEntry, error)
	CurrentGroup(ctx context.Context, studentID int64) (string, error)
}

// SettingsText reads a text setting.
type SettingsText interface {
	String(ctx context.Context, section, key string) string
}

// ReportOptions narrow a report. Nil fields fall back to the active academic
// year and the default template of the report type.
type ReportOptions struct {
	AcademicYearID *int64
	TemplateID     *int64
	From           *time.Time
	To             *time.Time
	Remarks        string
}

// ReportService builds report documents ready for a renderer.
type ReportService interface {
	StudentCard(ctx context.Context, studentID int64, opts ReportOptions) (report.Document, error)
	StudentAttendance(ctx context.Context, studentID int64, opts ReportOptions) (report.Document, error)
	GroupAttendance(ctx context.Context, groupID int64, opts ReportOptions) (report.Document, error)
}

// ReportServiceDeps groups the collaborators of the report service.
type ReportServiceDeps struct {
	Reports       ReportStore
	Students      StudentService
	Groups        StudentGroupService
	AcademicYears AcademicYearService
	Teachers      ResourceService[models.Teacher]
	Templates     ResourceService[models.ReportTemplate]
	Settings      SettingsText
	// SchoolName is used when the general settings carry no school name.
	SchoolName string
	Weights    report.Weights
}

type reportServiceImpl struct {
	deps   ReportServiceDeps
	now    func() time.Time
	logger zerolog.Logger
}

// NewReportService creates a new ReportService
func NewReportService(deps ReportServiceDeps, logger zerolog.Logger) ReportService {
	if deps.Weights == (report.Weights{}) {
		deps.Weights = report.DefaultWeights()
	}
	return &reportServiceImpl{deps: deps, now: time.Now, logger: logger}
}

func (s *reportServiceImpl) schoolName(ctx context.Context) string {
	if s.deps.Settings != nil {
		if name := s.deps.Settings.String(ctx, models.SettingsGeneral, "schoolName"); name != "" {
			return name
		}
	}
	return s.deps.SchoolName
}

// sections resolves the template of a report: the requested one, which must
// be of type t, or the default template of t, or the built-in section list.
func (s *reportServiceImpl) sections(ctx context.Context, t report.TemplateType, templateID *int64) ([]string, error) {
	if s.deps.Templates == nil {
		return nil, nil
	}
	if templateID != nil {
		tpl, err := s.deps.Templates.Get(ctx, *templateID)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				return nil, fieldErrors{"templateId": "report template does not exist"}.err()
			}
			return nil, err
		}
		if report.TemplateType(tpl.Type) != t {
			return nil, fieldErrors{"templateId": fmt.Sprintf("template %q is a %s template, not %s", tpl.Name, tpl.Type, t)}.err()
		}
		return tpl.Sections, nil
	}

	q := listing.NewQuery().WithFilter("type", string(t)).WithFilter("isDefault", "true")
	page, err := s.deps.Templates.List(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("error loading default template: %w", err)
	}
	for _, tpl := range page.Items {
		if report.TemplateType(tpl.Type) == t && tpl.IsDefault {
			return tpl.Sections, nil
		}
	}
	return nil, nil
}

// year resolves the academic year a report covers. Without an explicit id the
// active year is used; no active year means no restriction.
func (s *reportServiceImpl) year(ctx context.Context, id *int64) (*models.AcademicYear, error) {
	if id != nil {
		y, err := s.deps.AcademicYears.Get(ctx, *id)
		if err != nil {
			if errors.Is(err, apperrors.ErrResourceNotFound) {
				return nil, fieldErrors{"academicYearId": "academic year does not exist"}.err()
			}
			return nil, err
		}
		return y, nil
	}
	y, err := s.deps.AcademicYears.Active(ctx)
	if errors.Is(err, apperrors.ErrResourceNotFound) {
		return nil, nil
	}
	return y, err
}

// period combines explicit bounds with the bounds of the academic year.
func period(opts ReportOptions, year *models.AcademicYear) (repositories.Period, error) {
	p := repositories.Period{From: opts.From, To: opts.To}
	if year != nil {
		if p.From == nil {
			start := year.StartDate.Time
			p.From = &start
		}
		if p.To == nil {
			end := year.EndDate.Time
			p.To = &end
		}
	}
	if p.From != nil && p.To != nil && p.To.Before(*p.From) {
		return p, fieldErrors{"to": "must not be before from"}.err()
	}
	return p, nil
}

func periodLabel(p repositories.Period) string {
	const layout = "02-01-2006"
	switch {
	case p.From != nil && p.To != nil:
		return p.From.Format(layout) + " - " + p.To.Format(layout)
	case p.From != nil:
		return "from " + p.From.Format(layout)
	case p.To != nil:
		return "until " + p.To.Format(layout)
	}
	return "all records"
}

func (s *reportServiceImpl) studentInfo(ctx context.Context, studentID int64, year *models.AcademicYear) (report.StudentInfo, error) {
	student, err := s.deps.Students.Get(ctx, studentID)
	if err != nil {
		return report.StudentInfo{}, err
	}
	group, err := s.deps.Reports.CurrentGroup(ctx, studentID)
	if err != nil {
		return report.StudentInfo{}, err
	}
	info := report.StudentInfo{
		Name:          student.FullName(),
		StudentNumber: student.StudentNumber,
		Group:         group,
	}
	if student.DateOfBirth != nil {
		dob := student.DateOfBirth.Time
		info.DateOfBirth = &dob
	}
	if year != nil {
		info.AcademicYear = year.Name
	}
	return info, nil
}

// StudentCard builds the report card of one student for an academic year.
func (s *reportServiceImpl) StudentCard(ctx context.Context, studentID int64, opts ReportOptions) (report.Document, error) {
	year, err := s.year(ctx, opts.AcademicYearID)
	if err != nil {
		return report.Document{}, err
	}
	p, err := period(opts, year)
	if err != nil {
		return report.Document{}, err
	}
	sections, err := s.sections(ctx, report.TemplateReportCard, opts.TemplateID)
	if err != nil {
		return report.Document{}, err
	}
	info, err := s.studentInfo(ctx, studentID, year)
	if err != nil {
		return report.Document{}, err
	}

	attendance, err := s.deps.Reports.StudentAttendance(ctx, studentID, p)
	if err != nil {
		return report.Document{}, err
	}
	var yearID *int64
	if year != nil {
		yearID = &year.ID
	}
	grades, err := s.deps.Reports.Grades(ctx, studentID, yearID)
	if err != nil {
		return report.Document{}, err
	}
	behavior, err := s.deps.Reports.Behavior(ctx, studentID, p)
	if err != nil {
		return report.Document{}, err
	}

	return s.build(report.TemplateReportCard, report.StudentReport{
		School:      s.schoolName(ctx),
		Student:     info,
		Period:      periodLabel(p),
		Attendance:  attendance,
		Grades:      grades,
		Behavior:    behavior,
		Remarks:     opts.Remarks,
		Weights:     s.deps.Weights,
		GeneratedAt: s.now(),
	}, sections)
}

// StudentAttendance builds the attendance report of one student.
func (s *reportServiceImpl) StudentAttendance(ctx context.Context, studentID int64, opts ReportOptions) (report.Document, error) {
	var year *models.AcademicYear
	if opts.AcademicYearID != nil || (opts.From == nil && opts.To == nil) {
		y, err := s.year(ctx, opts.AcademicYearID)
		if err != nil {
			return report.Document{}, err
		}
		year = y
	}
	p, err := period(opts, year)
	if err != nil {
		return report.Document{}, err
	}
	sections, err := s.sections(ctx, report.TemplateAttendance, opts.TemplateID)
	if err != nil {
		return report.Document{}, err
	}
	info, err := s.studentInfo(ctx, studentID, year)
	if err != nil {
		return report.Document{}, err
	}
	attendance, err := s.deps.Reports.StudentAttendance(ctx, studentID, p)
	if err != nil {
		return report.Document{}, err
	}

	return s.build(report.TemplateAttendance, report.StudentReport{
		School:      s.schoolName(ctx),
		Student:     info,
		Period:      periodLabel(p),
		Attendance:  attendance,
		Weights:     s.deps.Weights,
		GeneratedAt: s.now(),
	}, sections)
}

func (s *reportServiceImpl) build(t report.TemplateType, data report.StudentReport, sections []string) (report.Document, error) {
	doc, err := report.BuildStudentDocument(t, data, sections)
	if err != nil {
		// a stored template that no longer validates
		return report.Document{}, fieldErrors{"templateId": err.Error()}.err()
	}
	return doc, nil
}

// GroupAttendance builds the attendance overview of a group: one row per
// enrolled student with their percentage.
func (s *reportServiceImpl) GroupAttendance(ctx context.Context, groupID int64, opts ReportOptions) (report.Document, error) {
	group, err := s.deps.Groups.Get(ctx, groupID)
	if err != nil {
		return report.Document{}, err
	}
	year, err := s.deps.AcademicYears.Get(ctx, group.AcademicYearID)
	if err != nil && !errors.Is(err, apperrors.ErrResourceNotFound) {
		return report.Document{}, err
	}
	p, err := period(opts, year)
	if err != nil {
		return report.Document{}, err
	}
	sections, err := s.sections(ctx, report.TemplateGroupOverview, opts.TemplateID)
	if err != nil {
		return report.Document{}, err
	}

	students, err := s.deps.Groups.Students(ctx, groupID)
	if err != nil {
		return report.Document{}, err
	}
	byStudent, err := s.deps.Reports.GroupAttendance(ctx, groupID, p)
	if err != nil {
		return report.Document{}, err
	}

	data := report.GroupReport{
		School:      s.schoolName(ctx),
		GroupName:   group.Name,
		Program:     group.Program,
		Period:      periodLabel(p),
		Students:    make([]report.GroupStudent, 0, len(students)),
		GeneratedAt: s.now(),
	}
	if year != nil {
		data.AcademicYear = year.Name
	}
	if group.InstructorID != nil && s.deps.Teachers != nil {
		if teacher, err := s.deps.Teachers.Get(ctx, *group.InstructorID); err == nil {
			data.Instructor = teacher.FullName()
		} else if !errors.Is(err, apperrors.ErrResourceNotFound) {
			return report.Document{}, err
		}
	}
	for _, st := range students {
		data.Students = append(data.Students, report.GroupStudent{
			Name:          st.FullName(),
			StudentNumber: st.StudentNumber,
			Attendance:    byStudent[st.ID],
		})
	}

	doc, err := report.BuildGroupDocument(data, sections)
	if err != nil {
		return report.Document{}, fieldErrors{"templateId": err.Error()}.err()
	}
	s.logger.Debug().Int64("groupID", groupID).Int("students", len(students)).Msg("Group report built")
	return doc, nil
}

package services

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/yigit/madrasa/internal/app/models"
	"github.com/yigit/madrasa/internal/pkg/cache"
	"github.com/yigit/madrasa/internal/pkg/listing"
)

// Cache resource names. They double as the URL segment of each resource.
const (
	ResAcademicYears   = "academic-years"
	ResHolidays        = "holidays"
	ResRooms           = "rooms"
	ResGuardians       = "guardians"
	ResStudentGroups   = "student-groups"
	ResStudents        = "students"
	ResTeachers        = "teachers"
	ResEnrollments     = "enrollments"
	ResAttendance      = "attendance"
	ResGrades          = "grades"
	ResBehaviorRecords = "behavior-records"
	ResReportTemplates = "report-templates"
	ResUserAccounts    = "user-accounts"
	ResSettings        = "settings"
	ResDirectory       = "directory"
	ResDashboard       = "dashboard"
)

// AcademicYearStore is the persistence of academic years.
type AcademicYearStore interface {
	Store[models.AcademicYear]
	GetActive(ctx context.Context) (*models.AcademicYear, error)
	Activate(ctx context.Context, id int64) error
}

// AcademicYearService adds the single-active switch to the generic resource.
type AcademicYearService interface {
	ResourceService[models.AcademicYear]
	Active(ctx context.Context) (*models.AcademicYear, error)
	Activate(ctx context.Context, id int64) (*models.AcademicYear, error)
}

type academicYearServiceImpl struct {
	ResourceService[models.AcademicYear]
	store  AcademicYearStore
	cache  *cache.QueryCache
	logger zerolog.Logger
}

// NewAcademicYearService creates a new AcademicYearService
func NewAcademicYearService(store AcademicYearStore, schema listing.Schema, queryCache *cache.QueryCache, logger zerolog.Logger) AcademicYearService {
	return &academicYearServiceImpl{
		ResourceService: NewResourceService[models.AcademicYear](store, queryCache, ResourceConfig[models.AcademicYear]{
			Name:       ResAcademicYears,
			Schema:     schema,
			SetID:      func(y *models.AcademicYear, id int64) { y.ID = id },
			Validate:   validateAcademicYear,
			// holidays cascade, grades lose their year
			Dependents: []string{ResDashboard, ResHolidays, ResGrades},
		}, logger),
		store:  store,
		cache:  queryCache,
		logger: logger,
	}
}

// Active returns the active academic year.
func (s *academicYearServiceImpl) Active(ctx context.Context) (*models.AcademicYear, error) {
	return cache.Remember(ctx, s.cache, ResAcademicYears, "active",
		func(ctx context.Context) (*models.AcademicYear, error) {
			return s.store.GetActive(ctx)
		})
}

// Activate makes id the only active year and returns it.
func (s *academicYearServiceImpl) Activate(ctx context.Context, id int64) (*models.AcademicYear, error) {
	if err := s.store.Activate(ctx, id); err != nil {
		return nil, err
	}
	s.cache.Invalidate(ctx, ResAcademicYears, ResDashboard)
	s.logger.Info().Int64("academicYearID", id).Msg("Academic year activated")
	return s.store.GetByID(ctx, id)
}

// StudentStore is the persistence of students and their guardian links.
type StudentStore interface {
	Store[models.Student]
	ListByGroup(ctx context.Context, groupID int64) ([]*models.Student, error)
	Guardians(ctx context.Context, studentID int64) ([]*models.Guardian, error)
	LinkGuardian(ctx context.Context, studentID, guardianID int64) error
	UnlinkGuardian(ctx context.Context, studentID, guardianID int64) error
}

// StudentService adds guardian links to the generic resource.
type StudentService interface {
	ResourceService[models.Student]
	Guardians(ctx context.Context, studentID int64) ([]*models.Guardian, error)
	LinkGuardian(ctx context.Context, studentID, guardianID int64) error
	UnlinkGuardian(ctx context.Context, studentID, guardianID int64) error
}

type studentServiceImpl struct {
	ResourceService[models.Student]
	store  StudentStore
	cache  *cache.QueryCache
	logger zerolog.Logger
}

// NewStudentService creates a new StudentService
func NewStudentService(store StudentStore, schema listing.Schema, queryCache *cache.QueryCache, logger zerolog.Logger) StudentService {
	return &studentServiceImpl{
		ResourceService: NewResourceService[models.Student](store, queryCache, ResourceConfig[models.Student]{
			Name:       ResStudents,
			Schema:     schema,
			SetID:      func(st *models.Student, id int64) { st.ID = id },
			Validate:   validateStudent,
			// enrollments, records and guardian links cascade with the student
			Dependents: []string{ResDirectory, ResDashboard, ResStudentGroups,
				ResEnrollments, ResAttendance, ResGrades, ResBehaviorRecords},
		}, logger),
		store:  store,
		cache:  queryCache,
		logger: logger,
	}
}

func guardianLinkKey(studentID int64) string {
	return cache.Key("guardians", studentID)
}

// Guardians lists the guardians linked to a student.
func (s *studentServiceImpl) Guardians(ctx context.Context, studentID int64) ([]*models.Guardian, error) {
	if _, err := s.Get(ctx, studentID); err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, ResStudents, guardianLinkKey(studentID),
		func(ctx context.Context) ([]*models.Guardian, error) {
			return s.store.Guardians(ctx, studentID)
		})
}

// LinkGuardian links an existing guardian to an existing student.
func (s *studentServiceImpl) LinkGuardian(ctx context.Context, studentID, guardianID int64) error {
	if err := s.store.LinkGuardian(ctx, studentID, guardianID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, ResStudents)
	s.logger.Info().Int64("studentID", studentID).Int64("guardianID", guardianID).Msg("Guardian linked")
	return nil
}

// UnlinkGuardian removes the link; both records stay.
func (s *studentServiceImpl) UnlinkGuardian(ctx context.Context, studentID, guardianID int64) error {
	if err := s.store.UnlinkGuardian(ctx, studentID, guardianID); err != nil {
		return err
	}
	s.cache.Invalidate(ctx, ResStudents)
	s.logger.Info().Int64("studentID", studentID).Int64("guardianID", guardianID).Msg("Guardian unlinked")
	return nil
}

// StudentGroupService adds the member list to the generic resource.
type StudentGroupService interface {
	ResourceService[models.StudentGroup]
	Students(ctx context.Context, groupID int64) ([]*models.Student, error)
}

type studentGroupServiceImpl struct {
	ResourceService[models.StudentGroup]
	students StudentStore
	cache    *cache.QueryCache
}

// NewStudentGroupService creates a new StudentGroupService
func NewStudentGroupService(store Store[models.StudentGroup], students StudentStore, schema listing.Schema, queryCache *cache.QueryCache, logger zerolog.Logger) StudentGroupService {
	return &studentGroupServiceImpl{
		ResourceService: NewResourceService(store, queryCache, ResourceConfig[models.StudentGroup]{
			Name:       ResStudentGroups,
			Schema:     schema,
			SetID:      func(g *models.StudentGroup, id int64) { g.ID = id },
			Validate:   validateStudentGroup,
			Dependents: []string{ResDashboard, ResEnrollments, ResAttendance},
		}, logger),
		students: students,
		cache:    queryCache,
	}
}

// Students lists the actively enrolled students of a group.
func (s *studentGroupServiceImpl) Students(ctx context.Context, groupID int64) ([]*models.Student, error) {
	if _, err := s.Get(ctx, groupID); err != nil {
		return nil, err
	}
	return cache.Remember(ctx, s.cache, ResStudentGroups, cache.Key("students", groupID),
		func(ctx context.Context) ([]*models.Student, error) {
			students, err := s.students.ListByGroup(ctx, groupID)
			if err != nil {
				return nil, fmt.Errorf("error listing group students: %w", err)
			}
			return students, nil
		})
}

// SchoolServices are the generic administration resources.
type SchoolServices struct {
	AcademicYears   AcademicYearService
	Holidays        ResourceService[models.Holiday]
	Rooms           ResourceService[models.Room]
	Guardians       ResourceService[models.Guardian]
	StudentGroups   StudentGroupService
	Students        StudentService
	Teachers        ResourceService[models.Teacher]
	Enrollments     ResourceService[models.Enrollment]
	Attendance      ResourceService[models.AttendanceRecord]
	Grades          ResourceService[models.Grade]
	BehaviorRecords ResourceService[models.BehaviorRecord]
	ReportTemplates ResourceService[models.ReportTemplate]
}

// SchoolStores are the stores behind SchoolServices with their list schemas.
type SchoolStores struct {
	AcademicYears   AcademicYearStore
	Holidays        Store[models.Holiday]
	Rooms           Store[models.Room]
	Guardians       Store[models.Guardian]
	StudentGroups   Store[models.StudentGroup]
	Students        StudentStore
	Teachers        Store[models.Teacher]
	Enrollments     Store[models.Enrollment]
	Attendance      Store[models.AttendanceRecord]
	Grades          Store[models.Grade]
	BehaviorRecords Store[models.BehaviorRecord]
	ReportTemplates Store[models.ReportTemplate]

	Schemas map[string]listing.Schema
}

// NewSchoolServices wires one service per administration resource.
func NewSchoolServices(stores SchoolStores, queryCache *cache.QueryCache, logger zerolog.Logger) *SchoolServices {
	schema := func(name string) listing.Schema { return stores.Schemas[name] }

	return &SchoolServices{
		AcademicYears: NewAcademicYearService(stores.AcademicYears, schema(ResAcademicYears), queryCache, logger),
		Holidays: NewResourceService(stores.Holidays, queryCache, ResourceConfig[models.Holiday]{
			Name:     ResHolidays,
			Schema:   schema(ResHolidays),
			SetID:    func(h *models.Holiday, id int64) { h.ID = id },
			Validate: holidayValidator(stores.AcademicYears),
		}, logger),
		Rooms: NewResourceService(stores.Rooms, queryCache, ResourceConfig[models.Room]{
			Name:       ResRooms,
			Schema:     schema(ResRooms),
			SetID:      func(r *models.Room, id int64) { r.ID = id },
			Dependents: []string{ResDashboard},
		}, logger),
		Guardians: NewResourceService(stores.Guardians, queryCache, ResourceConfig[models.Guardian]{
			Name:       ResGuardians,
			Schema:     schema(ResGuardians),
			SetID:      func(g *models.Guardian, id int64) { g.ID = id },
			Validate:   validateGuardian,
			Dependents: []string{ResStudents, ResDirectory, ResDashboard},
		}, logger),
		StudentGroups: NewStudentGroupService(stores.StudentGroups, stores.Students, schema(ResStudentGroups), queryCache, logger),
		Students:      NewStudentService(stores.Students, schema(ResStudents), queryCache, logger),
		Teachers: NewResourceService(stores.Teachers, queryCache, ResourceConfig[models.Teacher]{
			Name:       ResTeachers,
			Schema:     schema(ResTeachers),
			SetID:      func(t *models.Teacher, id int64) { t.ID = id },
			Dependents: []string{ResDirectory, ResDashboard, ResStudentGroups},
		}, logger),
		Enrollments: NewResourceService(stores.Enrollments, queryCache, ResourceConfig[models.Enrollment]{
			Name:       ResEnrollments,
			Schema:     schema(ResEnrollments),
			SetID:      func(e *models.Enrollment, id int64) { e.ID = id },
			Dependents: []string{ResStudentGroups},
		}, logger),
		Attendance: NewResourceService(stores.Attendance, queryCache, ResourceConfig[models.AttendanceRecord]{
			Name:     ResAttendance,
			Schema:   schema(ResAttendance),
			SetID:    func(a *models.AttendanceRecord, id int64) { a.ID = id },
			Validate: validateAttendance,
		}, logger),
		Grades: NewResourceService(stores.Grades, queryCache, ResourceConfig[models.Grade]{
			Name:     ResGrades,
			Schema:   schema(ResGrades),
			SetID:    func(g *models.Grade, id int64) { g.ID = id },
			Validate: validateGrade,
		}, logger),
		BehaviorRecords: NewResourceService(stores.BehaviorRecords, queryCache, ResourceConfig[models.BehaviorRecord]{
			Name:     ResBehaviorRecords,
			Schema:   schema(ResBehaviorRecords),
			SetID:    func(b *models.BehaviorRecord, id int64) { b.ID = id },
			Validate: validateBehavior,
		}, logger),
		ReportTemplates: NewResourceService(stores.ReportTemplates, queryCache, ResourceConfig[models.ReportTemplate]{
			Name:     ResReportTemplates,
			Schema:   schema(ResReportTemplates),
			SetID:    func(t *models.ReportTemplate, id int64) { t.ID = id },
			Validate: validateReportTemplate,
		}, logger),
	}
}

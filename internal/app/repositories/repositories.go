package repositories

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/yigit/madrasa/internal/app/models"
)

// Repositories holds all the repository instances
type Repositories struct {
	AcademicYears   *AcademicYearRepository
	Holidays        *Table[models.Holiday]
	Rooms           *Table[models.Room]
	Guardians       *Table[models.Guardian]
	StudentGroups   *StudentGroupRepository
	Students        *StudentRepository
	Teachers        *Table[models.Teacher]
	Enrollments     *EnrollmentRepository
	Attendance      *Table[models.AttendanceRecord]
	Grades          *Table[models.Grade]
	BehaviorRecords *Table[models.BehaviorRecord]
	ReportTemplates *Table[models.ReportTemplate]

	Accounts  *AccountRepository
	Tokens    *TokenRepository
	Files     *FileRepository
	Messages  *MessageRepository
	Settings  *SettingsRepository
	Directory *DirectoryRepository
	Dashboard *DashboardRepository
	Reports   *ReportRepository
}

// NewRepositories initializes all repositories
func NewRepositories(db *pgxpool.Pool) *Repositories {
	return &Repositories{
		AcademicYears:   NewAcademicYearRepository(db),
		Holidays:        NewTable(db, HolidaySpec()),
		Rooms:           NewTable(db, RoomSpec()),
		Guardians:       NewTable(db, GuardianSpec()),
		StudentGroups:   NewStudentGroupRepository(db),
		Students:        NewStudentRepository(db),
		Teachers:        NewTable(db, TeacherSpec()),
		Enrollments:     NewEnrollmentRepository(db),
		Attendance:      NewTable(db, AttendanceSpec()),
		Grades:          NewTable(db, GradeSpec()),
		BehaviorRecords: NewTable(db, BehaviorSpec()),
		ReportTemplates: NewTable(db, ReportTemplateSpec()),

		Accounts:  NewAccountRepository(db),
		Tokens:    NewTokenRepository(db),
		Files:     NewFileRepository(db),
		Messages:  NewMessageRepository(db),
		Settings:  NewSettingsRepository(db),
		Directory: NewDirectoryRepository(db),
		Dashboard: NewDashboardRepository(db),
		Reports:   NewReportRepository(db),
	}
}

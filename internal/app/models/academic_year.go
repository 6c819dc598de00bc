package models

import "time"

// AcademicYear is a school year. At most one is active.
type AcademicYear struct {
	ID                int64     `json:"id" db:"id"`
	Name              string    `json:"name" db:"name" binding:"required,max=100" example:"2025-2026"`
	StartDate         Date      `json:"startDate" db:"start_date" swaggertype:"string" example:"2025-09-01"`
	EndDate           Date      `json:"endDate" db:"end_date" swaggertype:"string" example:"2026-07-10"`
	RegistrationStart *Date     `json:"registrationStart,omitempty" db:"registration_start" swaggertype:"string"`
	RegistrationEnd   *Date     `json:"registrationEnd,omitempty" db:"registration_end" swaggertype:"string"`
	IsActive          bool      `json:"isActive" db:"is_active"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt         time.Time `json:"updatedAt" db:"updated_at"`
}

// Holiday types
const (
	HolidayVacation      = "vacation"
	HolidayPublicHoliday = "public_holiday"
	HolidayStudyBreak    = "study_break"
)

// Holiday is a period without lessons inside an academic year.
type Holiday struct {
	ID             int64     `json:"id" db:"id"`
	Name           string    `json:"name" db:"name" binding:"required,max=150" example:"Herfstvakantie"`
	StartDate      Date      `json:"startDate" db:"start_date" swaggertype:"string"`
	EndDate        Date      `json:"endDate" db:"end_date" swaggertype:"string"`
	Type           string    `json:"type" db:"type" binding:"required,oneof=vacation public_holiday study_break" example:"vacation"`
	AcademicYearID int64     `json:"academicYearId" db:"academic_year_id" binding:"required,gt=0"`
	Description    string    `json:"description" db:"description"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}
